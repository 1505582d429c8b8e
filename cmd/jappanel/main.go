// JAP Panel - control panel for Just Add Power receivers
//
// This is the main entry point for the panel service. It serves the HTML
// control panel, the REST/WebSocket API and the optional MQTT control
// surface, all driving the same device control service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/jap-panel/internal/api"
	"github.com/nerrad567/jap-panel/internal/audit"
	"github.com/nerrad567/jap-panel/internal/bridges/jap"
	"github.com/nerrad567/jap-panel/internal/control"
	"github.com/nerrad567/jap-panel/internal/device"
	"github.com/nerrad567/jap-panel/internal/infrastructure/config"
	"github.com/nerrad567/jap-panel/internal/infrastructure/database"
	"github.com/nerrad567/jap-panel/internal/infrastructure/influxdb"
	"github.com/nerrad567/jap-panel/internal/infrastructure/logging"
	"github.com/nerrad567/jap-panel/internal/infrastructure/mqtt"
	"github.com/nerrad567/jap-panel/internal/panel"
	"github.com/nerrad567/jap-panel/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on Ctrl+C or SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on a clean shutdown.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting JAP panel",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	defer log.Close() //nolint:errcheck // nothing left to log to
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	registry, err := device.NewRegistryFromConfig(cfg.Devices)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}
	log.Info("device registry initialised", "devices", registry.Len())

	// Open database (optional; it only holds the audit log)
	var (
		db        *database.DB
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
		log.Info("database connected", "path", db.Path())

		if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("database migrations complete")

		auditRepo = audit.NewSQLiteRepository(db.DB)
	} else {
		log.Info("database disabled, control submissions will not be audited")
	}

	// Connect to InfluxDB (optional)
	var (
		influxClient *influxdb.Client
		observer     jap.CallObserver
	)
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
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
		observer = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	japClient := jap.NewClient(jap.ClientOptions{
		Config:   cfg.JAP,
		Observer: observer,
		Logger:   log.With("component", "jap"),
	})

	svc, err := control.NewService(control.Options{
		Client:            japClient,
		Registry:          registry,
		Limits:            device.LimitsFromConfig(cfg.JAP),
		Audit:             auditRepo,
		RenderConcurrency: cfg.JAP.RenderConcurrency,
		Logger:            log.With("component", "control"),
	})
	if err != nil {
		return fmt.Errorf("creating control service: %w", err)
	}

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = startMQTT(ctx, cfg, svc, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
	} else {
		log.Info("MQTT disabled")
	}

	panelHandler, err := panel.Handler(panel.Options{
		Title:      cfg.Panel.Name,
		Controller: svc,
		StaticDir:  cfg.Panel.StaticDir,
		Logger:     log.With("component", "panel"),
	})
	if err != nil {
		return fmt.Errorf("creating panel: %w", err)
	}

	apiServer, err := api.New(api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log,
		Control: svc,
		Audit:   auditRepo,
		DB:      db,
		MQTT:    mqttClient,
		Panel:   panelHandler,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started",
		"address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		"read_timeout", cfg.GetReadTimeout(),
		"write_timeout", cfg.GetWriteTimeout(),
		"idle_timeout", cfg.GetIdleTimeout(),
	)

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server, MQTT, InfluxDB, database.

	log.Info("JAP panel stopped")
	return nil
}

// startMQTT connects to the broker and starts the command bridge.
func startMQTT(ctx context.Context, cfg *config.Config, svc *control.Service, log *logging.Logger) (*mqtt.Client, error) {
	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	bridge := control.NewCommandBridge(svc, client, byte(cfg.MQTT.QoS), log.With("component", "mqtt-bridge"))
	if err := bridge.Start(ctx); err != nil {
		client.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("starting MQTT command bridge: %w", err)
	}
	log.Info("MQTT command bridge started", "topic", mqtt.Topics{}.AllDeviceCommands())

	return client, nil
}

// getConfigPath returns the configuration file path.
// Uses JAPPANEL_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("JAPPANEL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies the enabled infrastructure connections.
// Any of the clients may be nil when its component is disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
