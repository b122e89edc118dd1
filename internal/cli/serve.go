package cli

import (
	"context"
	stderrors "errors"
	"net"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/taskclock/internal/ai"
	"github.com/mrz1836/taskclock/internal/board"
	"github.com/mrz1836/taskclock/internal/config"
	"github.com/mrz1836/taskclock/internal/constants"
	"github.com/mrz1836/taskclock/internal/errors"
	"github.com/mrz1836/taskclock/internal/server"
	"github.com/mrz1836/taskclock/internal/signal"
	"github.com/mrz1836/taskclock/internal/store"
	"github.com/mrz1836/taskclock/internal/timer"
	"github.com/mrz1836/taskclock/internal/tracker"
)

// serveFlags holds the flags of the serve command.
type serveFlags struct {
	addr      string
	storePath string
}

// AddServeCommand adds the serve subcommand to root.
func AddServeCommand(root *cobra.Command) {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the task HTTP server",
		Long: `Run the task HTTP server.

Countdowns left running by a previous process are resumed on startup.
The first SIGINT or SIGTERM shuts down gracefully; a second one stops
waiting for in-flight requests.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.addr, "addr", "", "listen address (default from config, "+constants.DefaultServerAddress+")")
	cmd.Flags().StringVar(&flags.storePath, "store", "", "task document path (default ~/.taskclock/tasks.json)")

	root.AddCommand(cmd)
}

func runServe(ctx context.Context, flags *serveFlags) error {
	logger := GetLogger()

	cfg, err := config.LoadWithOverrides(ctx, &config.Config{
		Server: config.ServerConfig{Address: flags.addr},
		Store:  config.StoreConfig{Path: flags.storePath},
	})
	if err != nil {
		return err
	}

	if logger.GetLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Server.Address)
	if err != nil {
		_ = a.reg.Shutdown(ctx)
		return errors.Wrapf(err, "failed to listen on %s", cfg.Server.Address)
	}

	sig := signal.NewHandler(ctx, logger)
	defer sig.Stop()

	return a.serve(sig.Context(), ln, sig.Forced())
}

// app is the wired server: store, registry, service and HTTP front end.
type app struct {
	cfg    *config.Config
	store  *store.FileStore
	reg    *timer.Registry
	svc    *tracker.Service
	server *server.Server
	logger zerolog.Logger
}

// newApp wires the components described by cfg and resumes countdowns
// persisted by a previous process.
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	fs, err := store.NewFileStore(cfg.Store.Path,
		store.WithLockTimeout(cfg.Store.LockTimeout),
		store.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	reg := timer.New(fs,
		timer.WithTickInterval(cfg.Timer.TickInterval),
		timer.WithLogger(logger),
	)

	resumed, err := reg.Reconcile(ctx)
	if err != nil {
		// A corrupt or unreadable document still lets the server start; reads degrade to an empty list.
		logger.Warn().Err(err).Str("path", fs.Path()).Msg("could not resume countdowns")
	} else if resumed > 0 {
		logger.Info().Int("count", resumed).Msg("resumed countdowns")
	}

	svc := tracker.New(reg,
		tracker.WithLogger(logger),
		tracker.WithNotifier(newNotifier(cfg.Board, logger)),
		tracker.WithSuggester(newSuggester(cfg.AI, logger)),
		tracker.WithNotifyTimeout(constants.DefaultBoardNotifyTimeout),
		tracker.WithSuggestTimeout(cfg.AI.Timeout),
	)

	logger.Info().
		Str("store", fs.Path()).
		Dur("tick_interval", cfg.Timer.TickInterval).
		Bool("board", cfg.Board.Enabled).
		Msg("taskclock ready")

	return &app{
		cfg:    cfg,
		store:  fs,
		reg:    reg,
		svc:    svc,
		server: server.New(svc, cfg.Server.Address, logger),
		logger: logger,
	}, nil
}

// newNotifier returns the serial notifier when the board is enabled.
func newNotifier(cfg config.BoardConfig, logger zerolog.Logger) board.Notifier {
	if !cfg.Enabled {
		return board.NopNotifier{}
	}
	return board.NewSerialNotifier(board.Options{
		Port:        cfg.Port,
		BaudRate:    cfg.BaudRate,
		ReadTimeout: cfg.ReadTimeout,
		SettleDelay: cfg.SettleDelay,
		Retries:     cfg.Retries,
		RetryDelay:  cfg.RetryDelay,
	}, logger)
}

// newSuggester returns the chat client when suggestions are enabled and an
// API key is present in the configured environment variable.
func newSuggester(cfg config.AIConfig, logger zerolog.Logger) ai.Suggester {
	if !cfg.Enabled {
		return ai.NopSuggester{}
	}

	client, err := ai.NewChatClient(ai.ChatOptions{
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		APIKey:     os.Getenv(cfg.APIKeyEnvVar),
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
	}, logger)
	if err != nil {
		logger.Warn().Err(err).Str("env_var", cfg.APIKeyEnvVar).Msg("duration suggestions disabled")
		return ai.NopSuggester{}
	}
	return client
}

// serve runs the HTTP server on ln until ctx is done, then shuts down the
// server, the countdowns and the background notifications in that order.
// Closing forced cuts the graceful wait short.
func (a *app) serve(ctx context.Context, ln net.Listener, forced <-chan struct{}) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.server.Serve(ln)
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown(ctx, forced)
	})

	return g.Wait()
}

func (a *app) shutdown(ctx context.Context, forced <-chan struct{}) error {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	go func() {
		select {
		case <-forced:
			a.logger.Warn().Msg("forced shutdown")
			cancel()
		case <-sctx.Done():
		}
	}()

	serverErr := a.server.Shutdown(sctx)
	regErr := a.reg.Shutdown(sctx)
	a.svc.Wait()

	a.logger.Info().Msg("taskclock stopped")
	return stderrors.Join(serverErr, regErr)
}
