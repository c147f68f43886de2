// Package authctl implements the operator CLI of the townsquare auth server:
// schema migrations, role management, suspension and session listing.
package authctl

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/townsquare/internal/logging"
	"github.com/dmitrijs2005/townsquare/internal/server/config"
	"github.com/dmitrijs2005/townsquare/internal/server/models"
	"github.com/dmitrijs2005/townsquare/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/townsquare/internal/server/services"
)

// Operator is the administrative surface the commands drive.
type Operator interface {
	Migrate(ctx context.Context) error
	GrantRole(ctx context.Context, userID, role string) error
	RevokeRole(ctx context.Context, userID, role string) (bool, error)
	Suspend(ctx context.Context, userID string) (int, error)
	ListSessions(ctx context.Context, userID string) ([]*models.Session, error)
	Close() error
}

// Connector builds an Operator from the loaded configuration.
type Connector func(ctx context.Context, cfg *config.Config) (Operator, error)

// NewRootCmd returns the authctl command tree. connect is called lazily by
// each subcommand.
func NewRootCmd(connect Connector) *cobra.Command {
	var (
		configPath string
		dsn        string
	)

	root := &cobra.Command{
		Use:           "authctl",
		Short:         "Operate the townsquare auth server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (JSON or YAML)")
	root.PersistentFlags().StringVarP(&dsn, "dsn", "d", "", "Database DSN (overrides config and environment)")

	// run opens an Operator for the duration of fn.
	run := func(cmd *cobra.Command, fn func(ctx context.Context, op Operator) error) error {
		cfg, err := config.LoadConfigFrom(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if dsn != "" {
			cfg.DatabaseDSN = dsn
		}

		ctx := cmd.Context()
		op, err := connect(ctx, cfg)
		if err != nil {
			return err
		}
		defer op.Close()

		return fn(ctx, op)
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply pending schema migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd, func(ctx context.Context, op Operator) error {
					if err := op.Migrate(ctx); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "grant-role <user-id> <role>",
			Short: "Grant a role (admin or moderator) to a user",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, func(ctx context.Context, op Operator) error {
					if err := op.GrantRole(ctx, args[0], args[1]); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "granted %s to %s\n", args[1], args[0])
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "revoke-role <user-id> <role>",
			Short: "Revoke a role from a user",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, func(ctx context.Context, op Operator) error {
					revoked, err := op.RevokeRole(ctx, args[0], args[1])
					if err != nil {
						return err
					}
					if revoked {
						fmt.Fprintf(cmd.OutOrStdout(), "revoked %s from %s\n", args[1], args[0])
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "%s did not have %s\n", args[0], args[1])
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "suspend <user-id>",
			Short: "Block a user and end all of their sessions",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, func(ctx context.Context, op Operator) error {
					n, err := op.Suspend(ctx, args[0])
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "suspended %s, ended %d session(s)\n", args[0], n)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "sessions <user-id>",
			Short: "List a user's sessions, newest first",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, func(ctx context.Context, op Operator) error {
					list, err := op.ListSessions(ctx, args[0])
					if err != nil {
						return err
					}
					return printSessions(cmd.OutOrStdout(), list, time.Now())
				})
			},
		},
	)

	return root
}

// printSessions never prints full tokens.
func printSessions(w io.Writer, list []*models.Session, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TOKEN\tSTATE\tCREATED\tEXPIRES")
	for _, s := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			maskToken(s.Token),
			s.State(now),
			s.CreatedAt.UTC().Format(time.RFC3339),
			s.ExpiresAt.UTC().Format(time.RFC3339),
		)
	}
	return tw.Flush()
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "********"
	}
	return token[:8] + "…"
}

// operator adapts the auth service and repository manager to Operator.
type operator struct {
	*services.AuthService
	db *sql.DB
	rm *repomanager.PostgresRepositoryManager
}

func (o *operator) Migrate(ctx context.Context) error {
	return o.rm.RunMigrations(ctx, o.db)
}

func (o *operator) Close() error {
	return o.db.Close()
}

// openDB is swapped in tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

// PostgresConnector opens the configured database and logs to stderr.
func PostgresConnector(ctx context.Context, cfg *config.Config) (Operator, error) {
	logger, err := logging.NewJSONLogger(os.Stderr, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	db, err := openDB(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	return &operator{
		AuthService: services.NewAuthService(db, rm, cfg, logger),
		db:          db,
		rm:          rm,
	}, nil
}
