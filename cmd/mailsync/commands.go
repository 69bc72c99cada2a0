package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/welldanyogia/helpdesk-mailsync/internal/app"
	"github.com/welldanyogia/helpdesk-mailsync/internal/config"
	"github.com/welldanyogia/helpdesk-mailsync/internal/database"
	"github.com/welldanyogia/helpdesk-mailsync/internal/logger"
	"github.com/welldanyogia/helpdesk-mailsync/internal/mail"
	"github.com/welldanyogia/helpdesk-mailsync/internal/services"
	"gorm.io/gorm"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "mailsync",
		Short:         "Helpdesk mailbox sync",
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newSyncCmd(),
		newMigrateCmd(),
		newTestConnectionCmd(),
	)
	return rootCmd
}

func versionString() string {
	if commit != "" {
		return fmt.Sprintf("%s (%s)", version, commit)
	}
	return version
}

// setup loads configuration and opens the database
func setup(ctx context.Context) (*config.Config, *slog.Logger, *gorm.DB, error) {
	cfg, err := config.LoadWithValidation()
	if err != nil {
		return nil, nil, nil, err
	}
	log := logger.Setup(cfg.LogLevel)

	db, err := app.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return cfg, log, db, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the periodic mailbox sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, log, db, err := setup(ctx)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				_ = database.Close(db)
				return err
			}
			cfg.LogConfig(log)

			a, err := app.New(cfg, db, log)
			if err != nil {
				_ = database.Close(db)
				return err
			}
			defer a.Close()
			return a.Serve(ctx)
		},
	}
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync [mailbox-id]",
		Short: "Sync one mailbox, or every active mailbox when no ID is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var mailboxID uint64
			if len(args) == 1 {
				id, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil || id == 0 {
					return fmt.Errorf("invalid mailbox ID %q", args[0])
				}
				mailboxID = id
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, log, db, err := setup(ctx)
			if err != nil {
				return err
			}
			a, err := app.New(cfg, db, log)
			if err != nil {
				_ = database.Close(db)
				return err
			}
			defer a.Close()

			if mailboxID != 0 {
				res := a.Sync.SyncMailbox(ctx, uint(mailboxID))
				if err := printJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
				if !res.Success {
					return fmt.Errorf("sync failed: %s", res.Error)
				}
				return nil
			}

			res := a.Sync.SyncAllMailboxes(ctx)
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("sync failed: %s", res.Error)
			}
			return nil
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, db, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer database.Close(db)
			return database.Migrate(db)
		},
	}
}

// connectionOptions are the credentials checked by test-connection
type connectionOptions struct {
	protocol string
	host     string
	port     int
	user     string
	pass     string
	tls      bool
	timeout  time.Duration
}

func newTestConnectionCmd() *cobra.Command {
	o := &connectionOptions{}
	cmd := &cobra.Command{
		Use:   "test-connection",
		Short: "Check IMAP, POP3 or SMTP credentials without touching the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTestConnection(cmd.Context(), cmd.OutOrStdout(), o)
		},
	}
	cmd.Flags().StringVar(&o.protocol, "protocol", "imap", "Protocol to test: imap, pop3 or smtp")
	cmd.Flags().StringVar(&o.host, "host", "", "Server host")
	cmd.Flags().IntVar(&o.port, "port", 0, "Server port (default depends on protocol)")
	cmd.Flags().StringVar(&o.user, "user", "", "Username")
	cmd.Flags().StringVar(&o.pass, "pass", "", "Password")
	cmd.Flags().BoolVar(&o.tls, "tls", true, "Use implicit TLS")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 10*time.Second, "Authentication timeout")
	_ = cmd.MarkFlagRequired("host")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func runTestConnection(ctx context.Context, out io.Writer, o *connectionOptions) error {
	tester := mail.NewConnectionTester(o.timeout, o.timeout, nil)

	var result mail.ConnectionResult
	switch o.protocol {
	case "imap":
		result = tester.TestIMAP(ctx, mail.InboundConfig{
			Host: o.host, Port: portOr(o.port, services.DefaultIMAPPort), User: o.user, Password: o.pass, TLS: o.tls,
		})
	case "pop3":
		result = tester.TestPOP3(ctx, mail.InboundConfig{
			Host: o.host, Port: portOr(o.port, services.DefaultPOP3Port), User: o.user, Password: o.pass, TLS: o.tls,
		})
	case "smtp":
		result = tester.TestSMTP(ctx, mail.OutboundConfig{
			Host: o.host, Port: portOr(o.port, services.DefaultSMTPPort), User: o.user, Password: o.pass, TLS: o.tls,
		})
	default:
		return fmt.Errorf("unknown protocol %q", o.protocol)
	}

	if err := printJSON(out, result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("%s connection failed: %s", o.protocol, result.Error)
	}
	return nil
}

func portOr(port, def int) int {
	if port > 0 {
		return port
	}
	return def
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
