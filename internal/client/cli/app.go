package cli

import (
	"bufio"
	"context"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/dmitrijs2005/townsquare/internal/client/client"
	"github.com/dmitrijs2005/townsquare/internal/client/config"
	"github.com/dmitrijs2005/townsquare/internal/client/services"
	"github.com/dmitrijs2005/townsquare/internal/filex"
	"github.com/dmitrijs2005/townsquare/internal/logging"
)

const (
	stateDirName  = ".townsquare"
	stateFileName = "client.db"
)

type App struct {
	config      *config.Config
	authService services.AuthService
	db          *sql.DB
	log         logging.Logger
	reader      *bufio.Reader
	out         io.Writer

	mu       sync.Mutex
	userName string
}

// statePath returns the configured store path or .townsquare/client.db under
// the working directory.
func statePath(c *config.Config) (string, error) {
	if c.StatePath != "" {
		return c.StatePath, nil
	}
	dir, err := filex.EnsurePrivateDir(stateDirName)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, stateFileName), nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	log, err := logging.NewJSONLogger(os.Stderr, "warn")
	if err != nil {
		return nil, err
	}

	path, err := statePath(c)
	if err != nil {
		return nil, err
	}

	db, err := client.InitDatabase(ctx, path)
	if err != nil {
		return nil, err
	}

	api := client.NewHTTPClient(c.ServerURL, c.RequestTimeout)
	as := services.NewAuthService(api, db, c.ActivityRefreshThrottle, services.WithLogger(log))

	return newApp(c, as, db, log, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, as services.AuthService, db *sql.DB, log logging.Logger, in io.Reader, out io.Writer) *App {
	return &App{
		config:      c,
		authService: as,
		db:          db,
		log:         log,
		reader:      bufio.NewReader(in),
		out:         out,
	}
}

// Run restores a saved session, starts the keep-alive and blocks in the
// REPL until the user quits or ctx ends.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.restore(ctx)

	go a.authService.KeepAlive(ctx, a.config.RefreshInterval)

	a.Root(ctx)
	return nil
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *App) isLoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.userName != ""
}

func (a *App) setUser(name string) {
	a.mu.Lock()
	a.userName = name
	a.mu.Unlock()
}
