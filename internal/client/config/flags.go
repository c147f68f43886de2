package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/townsquare/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the auth server
//	-s string   path of the local session store
//	-i int      keep-alive refresh interval in minutes
//
// os.Args is filtered with flagx.FilterArgs so other components' flags do
// not trip the parser.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-s", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the auth server")
	fs.StringVar(&cfg.StatePath, "s", cfg.StatePath, "path of the local session store")
	refreshInterval := fs.Int("i", int(cfg.RefreshInterval.Minutes()), "keep-alive refresh interval (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RefreshInterval = time.Duration(*refreshInterval) * time.Minute
}
