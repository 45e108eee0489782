package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrijs2005/dentdocs/internal/client/config"
	"github.com/dmitrijs2005/dentdocs/internal/client/journal"
	"github.com/dmitrijs2005/dentdocs/internal/client/store"
	"github.com/dmitrijs2005/dentdocs/internal/client/transfer"
	"github.com/dmitrijs2005/dentdocs/internal/client/upload"
	"github.com/dmitrijs2005/dentdocs/internal/filex"
	"github.com/dmitrijs2005/dentdocs/internal/logging"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	metrics *upload.Metrics
	errOut  io.Writer

	openStore   func(*config.Config) (store.Store, error)
	openJournal func(ctx context.Context, path string) (*sql.DB, error)
	transfer    upload.Transferer
	notify      func() (<-chan os.Signal, func())
	tty         func(io.Writer) bool
}

func NewApp(c *config.Config) *App {
	return &App{
		config:      c,
		logger:      logging.Nop(),
		metrics:     upload.NewMetrics("dentctl"),
		errOut:      os.Stderr,
		openStore:   openStore,
		openJournal: openJournal,
		transfer:    transfer.New(),
		notify:      notifyInterrupt,
		tty:         isTerminal,
	}
}

// Execute runs dentctl with the process arguments.
func Execute(ctx context.Context, c *config.Config, version string) error {
	return NewApp(c).rootCommand(version).ExecuteContext(ctx)
}

func openStore(c *config.Config) (store.Store, error) {
	switch c.Transport {
	case config.TransportHTTP:
		return store.NewHTTPClient(c.BaseURL, c.AccessToken, nil), nil
	case config.TransportGRPC:
		return store.NewGRPCClient(c.ServerEndpointAddr, c.AccessToken)
	default:
		return nil, fmt.Errorf("unknown transport %q", c.Transport)
	}
}

func openJournal(ctx context.Context, path string) (*sql.DB, error) {
	if _, err := filex.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}
	return journal.OpenDatabase(ctx, path)
}

func notifyInterrupt() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	return ch, func() { signal.Stop(ch) }
}

func (a *App) withStore(fn func(store.Store) error) error {
	st, err := a.openStore(a.config)
	if err != nil {
		return fmt.Errorf("connect to document store: %w", err)
	}
	defer st.Close()
	return fn(st)
}

func (a *App) withJournal(ctx context.Context, fn func(journal.Repository) error) error {
	db, err := a.openJournal(ctx, a.config.JournalPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer db.Close()
	return fn(journal.NewSQLiteRepository(db))
}

func (a *App) coordinator(st upload.Store, repo journal.Repository) *upload.Coordinator {
	c := a.config
	return upload.New(st, a.transfer,
		upload.WithTimeouts(c.ReserveTimeout, c.TransferTimeout, c.ConfirmTimeout),
		upload.WithLogger(a.logger),
		upload.WithObserver(a.metrics),
		upload.WithObserver(journal.NewObserver(repo, a.logger)),
	)
}

// writeMetrics dumps upload metrics for the node exporter textfile
// collector when a path is configured.
func (a *App) writeMetrics() error {
	if a.config.MetricsTextfile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(a.config.MetricsTextfile, a.metrics.Registry()); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
