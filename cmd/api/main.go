// cmd/api/main.go

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/thejerf/suture/v4"

	"sightmap/internal/adapter/storage"
	"sightmap/internal/adapter/stream"
	"sightmap/internal/config"
	"sightmap/internal/domain/observation"
	"sightmap/internal/logging"
	"sightmap/internal/server"
	"sightmap/internal/server/handlers"
	"sightmap/internal/service/session"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log := logging.With("main")

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize dependencies
	db, err := initDatabase(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	var subscriber observation.Subscriber
	switch cfg.Push.Source {
	case "postgres":
		subscriber = stream.NewPGListener(db, cfg.Push.ChannelPrefix)
	default:
		natsConn, err := initNATS(cfg.NATS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to NATS")
		}
		defer natsConn.Close()
		subscriber = stream.NewNATSSubscriber(natsConn, cfg.Push.SubjectPrefix)
	}

	loc, err := cfg.Dashboard.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid dashboard time zone")
	}

	// Initialize services
	sess := session.New(
		storage.NewObservationStore(db),
		subscriber,
		session.Config{
			Dedupe:       cfg.Dashboard.Dedupe,
			FetchTimeout: cfg.Dashboard.FetchTimeout,
			Buffer:       cfg.Push.Buffer,
			Location:     loc,
		},
	)

	hub := handlers.NewHub()
	sess.OnEvent(hub.BroadcastEvent)

	// Initialize HTTP server
	httpServer := server.NewServer(cfg.Server, sess, hub)

	supervisor := suture.New("sightmap", suture.Spec{
		EventHook: func(e suture.Event) {
			log.Warn().Str("event", e.String()).Msg("supervisor event")
		},
		Timeout: cfg.Server.ShutdownTimeout,
	})
	supervisor.Add(sess)
	supervisor.Add(hub)
	supervisor.Add(httpServer)

	log.Info().
		Str("environment", cfg.Environment).
		Str("push_source", cfg.Push.Source).
		Str("timezone", loc.String()).
		Bool("dedupe", cfg.Dashboard.Dedupe).
		Msg("starting services")

	// Blocks until a shutdown signal cancels ctx
	if err := supervisor.Serve(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("supervisor stopped")
	}

	log.Info().Msg("shutdown complete")
}

// Initialize database connection
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

// Initialize NATS connection
func initNATS(cfg config.NATSConfig) (*nats.Conn, error) {
	log := logging.With("nats")

	options := []nats.Option{
		nats.Name("sightmap"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info().Msg("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, nil
}
