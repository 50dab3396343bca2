package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"exotoura_chat/internal/chat/app"
	"exotoura_chat/internal/chat/domain"
	"exotoura_chat/internal/chat/repository"
	"exotoura_chat/internal/chat/transport"
	"exotoura_chat/pkg/config"
	"exotoura_chat/pkg/database"
	errprocess "exotoura_chat/pkg/err"
	"exotoura_chat/pkg/logger"
	testtool "exotoura_chat/pkg/test_tool"
	"exotoura_chat/pkg/token"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type options struct {
	configDir   string
	token       string
	metricsAddr string
	debug       bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "chat_client",
		Short:        "Terminal client for the chat gateway",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	root.PersistentFlags().StringVar(&opts.configDir, "config", "", "directory of chat_client.yaml (default $CHAT_CLIENT_YAML)")
	root.PersistentFlags().StringVar(&opts.token, "token", "", "bearer token, overrides the config")
	root.PersistentFlags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve prometheus metrics and pprof on this address")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logs")

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Connect and chat (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "whoami",
		Short: "Print the user id of the configured token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return whoami(opts, cmd.OutOrStdout())
		},
	})
	return root
}

func loadConfig(opts *options) (config.Client, error) {
	env := config.EnvConfig()
	dir := opts.configDir
	if dir == "" {
		dir = env.ChatClientYAMLPath
	}
	cfg, err := config.LoadConfig[config.Client](env.ChatClient, dir, config.Defaults)
	if err != nil {
		return cfg, err
	}
	if opts.token != "" {
		cfg.Token = opts.token
	}
	return cfg, nil
}

func whoami(opts *options, out io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	session, err := token.NewSession(cfg.Token)
	if err != nil {
		return err
	}
	if session.CurrentUserID() == "" {
		return token.ErrMissingToken
	}
	_, err = fmt.Fprintln(out, session.CurrentUserID())
	return err
}

func run(ctx context.Context, opts *options, in io.Reader, out io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	env := config.EnvConfig()
	logger.Log = logger.Initialize(env.ChatClient, env.ChatClientLogPath)
	logger.Log.SetDebugMode(opts.debug)
	defer logger.Log.Sync()

	session, err := token.NewSession(cfg.Token)
	if err != nil {
		return errprocess.Wrap("parse token", err)
	}

	store := app.NewChatStore(
		func() transport.Transport { return transport.NewSocketTransport(transport.OptionsFromConfig(cfg)) },
		session,
		app.WithTypingTimeout(cfg.Typing.Timeout),
	)
	defer store.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache, closeCache := openCache(ctx, cfg.Redis)
	defer closeCache()

	c := newConsole(store, repository.NewChatAPI(cfg.API.BaseURL, cfg.API.Timeout, session), cache, session, out)
	store.OnChange(c.render)

	store.InitializeSocket(ctx)
	c.loadChats(ctx)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if opts.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		testtool.RegisterPprof(mux)
		srv := &http.Server{Addr: opts.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			logger.Log.Info("metrics listening", zap.String("addr", opts.metricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		defer cancel()
		return c.readLoop(gctx, in)
	})

	return g.Wait()
}

// openCache connects redis when configured; failures disable the cache
func openCache(ctx context.Context, cfg config.RedisConfig) (*repository.ChatCache, func()) {
	if cfg.Addr == "" {
		return nil, func() {}
	}
	client, err := database.NewRedisClient(ctx, cfg.Addr, cfg.Password, cfg.RedisDB)
	if err != nil {
		logger.Log.Warn("chat cache disabled", zap.Error(err))
		return nil, func() {}
	}
	repo := database.NewRedisRepository[[]domain.Chat](client)
	return repository.NewChatCache(repo, cfg.ChatTTL), func() { _ = client.Close() }
}
