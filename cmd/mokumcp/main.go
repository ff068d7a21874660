// Moku control core - MCP tool server for Liquid Instruments Moku devices.
//
// mokumcp speaks the Model Context Protocol over stdio and exposes eight
// tools that discover devices, take and release ownership, deploy
// multi-instrument configurations, and inspect live slot state. The same
// tools are optionally served over HTTP with a websocket event stream.
//
// Usage:
//
//	mokumcp                                  serve MCP on stdin/stdout
//	mokumcp token -subject alice -role viewer  print an API token
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	_ "github.com/nerrad567/moku-core/migrations"

	"github.com/nerrad567/moku-core/internal/api"
	"github.com/nerrad567/moku-core/internal/audit"
	"github.com/nerrad567/moku-core/internal/auth"
	"github.com/nerrad567/moku-core/internal/deploy"
	"github.com/nerrad567/moku-core/internal/device"
	"github.com/nerrad567/moku-core/internal/discovery"
	"github.com/nerrad567/moku-core/internal/events"
	"github.com/nerrad567/moku-core/internal/infrastructure/config"
	"github.com/nerrad567/moku-core/internal/infrastructure/database"
	"github.com/nerrad567/moku-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/moku-core/internal/infrastructure/logging"
	"github.com/nerrad567/moku-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/moku-core/internal/moku"
	"github.com/nerrad567/moku-core/internal/session"
	"github.com/nerrad567/moku-core/internal/tools"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path. A missing default file is not an error.
const defaultConfigPath = "configs/config.yaml"

// eventBuffer is the event bus queue depth.
const eventBuffer = 256

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	if len(os.Args) > 1 && os.Args[1] == "token" {
		err = runToken(os.Args[2:], os.Stdout)
	} else {
		err = run(ctx, os.Stdin, os.Stdout)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the control core and serves MCP on stdin/stdout until ctx is
// cancelled or the client closes the stream.
func run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := logging.New(cfg.Logging, version)
	log.Info("starting moku control core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Device registry and session
	registry := device.NewRegistry(cfg.Cache.Path)
	registry.SetLogger(log)
	resolver := device.NewResolver(registry)
	resolver.SetLogger(log)

	client := moku.NewClient(cfg.Device)
	sess := session.New(client, resolver, registry)
	sess.SetLogger(log)
	log.Info("device registry loaded", "path", registry.Path(), "devices", len(registry.List()))

	engine := deploy.NewEngine()
	engine.SetLogger(log)

	scanner := discovery.NewService(discovery.ZeroconfBrowser{}, client, registry, cfg.Discovery)
	scanner.SetLogger(log)

	bus := events.NewBus(eventBuffer)
	bus.SetLogger(log)

	// Database (deployment history and audit trail)
	var (
		db        *database.DB
		history   deploy.History
		auditRepo audit.Repository
	)
	if cfg.Database.Enabled {
		db, err = database.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		if migrateErr := db.Migrate(ctx); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("database ready", "path", cfg.Database.Path)

		history = deploy.NewSQLiteHistory(db.DB)
		engine.SetHistory(history)
		repo := audit.NewSQLiteRepository(db.DB)
		auditRepo = repo
		bus.AddSink(events.NewAuditSink(repo))
	} else {
		log.Info("database disabled, deployment history and audit off")
	}

	// MQTT (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		mqttClient.SetLogger(log)
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		bus.AddSink(events.NewMQTTSink(mqttClient))
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	}

	// InfluxDB (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		bus.AddSink(events.NewInfluxSink(influxClient))
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	svc := tools.NewService(sess, engine, scanner)
	svc.SetLogger(log)
	svc.SetPublisher(bus)

	// HTTP API (optional)
	if cfg.API.Enabled {
		srv, apiErr := api.New(api.Deps{
			Config:   cfg.API,
			WS:       cfg.WebSocket,
			Security: cfg.Security,
			Logger:   log,
			Tools:    svc,
			Registry: registry,
			Session:  sess,
			History:  history,
			Audit:    auditRepo,
			MQTT:     mqttClient,
			DB:       db,
			Version:  version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		bus.AddSink(srv.Hub())
		if startErr := srv.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			log.Info("stopping API server")
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error stopping API server", "error", closeErr)
			}
		}()
		if cfg.Security.JWT.Secret == "" {
			log.Warn("API authentication disabled, set security.jwt.secret to enable it")
		}
	}

	// Registered after every sink backend so it runs before they close.
	defer func() {
		log.Info("draining event bus")
		bus.Close()
	}()
	bus.Start()

	// Leave the instrument free for other clients on the way out. The
	// release event is queued ahead of the drain above.
	defer func() {
		out := svc.Call(context.WithoutCancel(ctx), tools.NameRelease, nil)
		if res, ok := out.(*tools.ReleaseResult); ok && res.Status == session.StatusDisconnected {
			log.Info("released device on shutdown", "device", res.Device)
		}
	}()

	log.Info("serving MCP over stdio", "tools", len(tools.Names()))
	stdio := server.NewStdioServer(tools.NewMCPServer(svc, version))
	err = stdio.Listen(ctx, stdin, stdout)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("serving MCP: %w", err)
	}

	log.Info("moku control core stopped")
	return nil
}

// loadConfig reads the file named by MOKU_CONFIG, or the default path
// when unset. Only the default path may be missing.
func loadConfig() (*config.Config, error) {
	path, optional := getConfigPath()
	cfg, err := config.Load(path, optional)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// getConfigPath returns the configuration file path and whether it may be
// absent.
func getConfigPath() (string, bool) {
	if path := os.Getenv("MOKU_CONFIG"); path != "" {
		return path, false
	}
	return defaultConfigPath, true
}

// runToken prints a signed API token for the configured secret.
func runToken(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	subject := fs.String("subject", "operator", "token subject")
	role := fs.String("role", string(auth.RoleOperator), "operator or viewer")
	ttl := fs.Int("ttl", 0, "lifetime in minutes (default: security.jwt.token_ttl)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing token flags: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Security.JWT.Secret == "" {
		return fmt.Errorf("%w: set security.jwt.secret or MOKU_JWT_SECRET", auth.ErrNoSecret)
	}

	minutes := *ttl
	if minutes <= 0 {
		minutes = cfg.Security.JWT.TokenTTL
	}

	token, err := auth.GenerateToken(*subject, auth.Role(*role), cfg.Security.JWT.Secret, minutes)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
