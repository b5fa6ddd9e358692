package main

import (
	"context"
	"database/sql"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/errgroup"

	"github.com/theschoolhq/gatekeeper/pkg/api"
	"github.com/theschoolhq/gatekeeper/pkg/auth"
	"github.com/theschoolhq/gatekeeper/pkg/config"
	"github.com/theschoolhq/gatekeeper/pkg/contextkeys"
	"github.com/theschoolhq/gatekeeper/pkg/delivery"
	"github.com/theschoolhq/gatekeeper/pkg/observability"
	"github.com/theschoolhq/gatekeeper/pkg/store"
	"github.com/theschoolhq/gatekeeper/pkg/ws"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.ParseLogLevel(cfg.LogLevel), os.Stdout)

	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.WithError(err).Error("failed to open database")
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.RunMigrations(ctx, db, cfg.Database.Driver); err != nil {
		logger.WithError(err).Error("failed to run migrations")
		os.Exit(1)
	}

	credStore := store.NewSQLStore(db)
	hasher := auth.NewBcryptHasher()

	fields := make([]auth.Field, 0, len(cfg.Auth.LoginFields))
	for _, name := range cfg.Auth.LoginFields {
		field, err := auth.ParseField(name)
		if err != nil {
			logger.WithError(err).Error("invalid login field")
			os.Exit(1)
		}
		fields = append(fields, field)
	}

	var sender auth.Sender
	switch cfg.Delivery.Mode {
	case "smtp":
		sender = &delivery.SMTPSender{
			Addr:     cfg.Delivery.SMTPAddr,
			From:     cfg.Delivery.EmailFrom,
			LinkBase: cfg.Delivery.ResetLinkBase,
		}
	default:
		sender = delivery.NewLogSender(logger, cfg.Delivery.ResetLinkBase)
	}

	metrics := observability.NewMetrics()
	resolver := auth.NewResolver(credStore, hasher, fields...)
	service := auth.NewService(credStore, resolver)
	resetFlow := auth.NewResetFlow(credStore, hasher, sender, logger)
	authenticator := auth.NewTokenAuthenticator(credStore)

	onConnect := func(ctx context.Context, conn *websocket.Conn) {
		defer conn.Close()
		connLogger := logger
		if identity := contextkeys.IdentityFrom(ctx); identity != nil {
			connLogger = logger.WithField("identity_id", identity.ID)
		}
		connLogger.Info("websocket connected")
		for {
			messageType, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(messageType, payload); err != nil {
				return
			}
		}
	}
	gateway := ws.NewGateway(authenticator, onConnect, logger, metrics)

	server := &http.Server{
		Addr: cfg.Addr(),
		Handler: api.NewServer(api.Deps{
			Store:         credStore,
			Service:       service,
			ResetFlow:     resetFlow,
			Authenticator: authenticator,
			Gateway:       gateway,
			Logger:        logger,
			Metrics:       metrics,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", server.Addr).Info("starting gatekeeper server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("server error")
		os.Exit(1)
	}
}
