// Package cli implements the postbook command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/abelbrown/postbook/internal/config"
	"github.com/abelbrown/postbook/internal/controller/controllers"
	"github.com/abelbrown/postbook/internal/logging"
	"github.com/abelbrown/postbook/internal/model"
	"github.com/abelbrown/postbook/internal/otel"
	"github.com/abelbrown/postbook/internal/repository"
	"github.com/abelbrown/postbook/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	Database   string
	Verbose    bool

	// Config is loaded in PersistentPreRunE.
	Config *config.Config
}

// NewRootCommand creates the root command. Without a subcommand it runs the TUI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "postbook",
		Short: "postbook - a tiny local post journal",
		Long: `postbook keeps posts (title, description, author) in a local SQLite
database and shows them in a terminal UI that updates live as posts change.

Settings come from ~/.postbook/config.yaml, .env files and POSTBOOK_*
environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default ~/.postbook/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "SQLite database path, or :memory:")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "postbook:", err)
		return 1
	}
	return 0
}

func loadConfig(opts *RootOptions) error {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return err
	}
	if opts.Database != "" {
		cfg.Database.Path = opts.Database
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}
	opts.Config = cfg
	return nil
}

// session is everything a command needs to talk to the data layer.
type session struct {
	cfg    *config.Config
	events *otel.Logger
	ring   *otel.RingBuffer
	store  *model.Store
	repo   repository.ItemsRepository
}

// openSession sets up logging, the event log and the store.
func openSession(opts *RootOptions) (*session, error) {
	cfg := opts.Config
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}
	if err := logging.Init(cfg.Log.Dir, cfg.Log.Level); err != nil {
		return nil, err
	}

	events := otel.NewNullLogger()
	if cfg.Events.Enabled {
		l, err := otel.OpenLogger(cfg.Events.File)
		if err != nil {
			logging.Warn("Event log unavailable", "path", cfg.Events.File, "error", err)
		} else {
			events.Close()
			events = l
		}
	}
	ring := otel.NewRingBuffer(256)
	events.SetRingBuffer(ring)
	events.Info(otel.KindStartup, "main", "session started")
	if cfg.InMemory() {
		events.Warn(otel.KindStartup, "main", "in-memory database, posts are lost on exit")
	}

	st, err := model.NewStore(cfg.Database.Path,
		model.WithEventLogger(events),
		model.WithMinInterval(cfg.Live.MinInterval))
	if err != nil {
		events.Close()
		logging.Close()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	return &session{
		cfg:    cfg,
		events: events,
		ring:   ring,
		store:  st,
		repo:   repository.NewOfflineRepository(st),
	}, nil
}

func (s *session) controllerConfig() controllers.Config {
	return controllers.Config{KeepAlive: s.cfg.Controller.KeepAlive, Events: s.events}
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		logging.Error("Error closing store", "error", err)
	}
	s.events.Info(otel.KindShutdown, "main", "session ended")
	s.events.Close()
	logging.Close()
}

// runTUI runs the Bubble Tea program until the user quits or ctx is cancelled.
func runTUI(ctx context.Context, opts *RootOptions) error {
	s, err := openSession(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	app := ui.NewApp(s.repo, s.controllerConfig(), s.ring)
	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})
	g.Go(func() error {
		defer close(done)
		final, err := program.Run()
		if m, ok := final.(ui.App); ok {
			m.Close()
		} else {
			app.Close()
		}
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			program.Quit()
		case <-done:
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("ui: %w", err)
	}
	logging.Info("TUI exited")
	return nil
}
