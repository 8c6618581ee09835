// KAKU bridge - ICS-2000 device synchronisation engine
//
// This is the main entry point of the bridge. It keeps the accessories of an
// MQTT-attached home automation host in step with the entity catalog of a
// KlikAanKlikUit ICS-2000 hub: it finds the hub on the local network,
// logs in on the KAKU cloud, registers every controllable entity once and
// re-runs that cycle every night and on demand.
//
//	kakubridge                        run the bridge
//	kakubridge token -subject admin   print a bearer token for the admin API
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/aaaSuraj/homebridge-klikaanklikuit/migrations"

	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/accessory"
	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/api"
	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/catalog"
	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/controller"
	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/hub"
	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/infrastructure/config"
	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/infrastructure/database"
	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/infrastructure/influxdb"
	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/infrastructure/logging"
	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/infrastructure/metrics"
	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/infrastructure/mqtt"
	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/platform"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

const (
	// Default configuration file path
	defaultConfigPath = "configs/config.yaml"

	// pluginName identifies the bridge in accessory announcements.
	pluginName = "homebridge-klikaanklikuit"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	if len(os.Args) > 1 && os.Args[1] == "token" {
		err = tokenCommand(os.Args[2:], os.Stdout)
	} else {
		err = run(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting KAKU bridge",
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
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)
	logHubSettings(log, cfg.Hub)

	overrides, err := hub.OverridesFromConfig(cfg.Hub.DeviceConfigOverrides)
	if err != nil {
		return fmt.Errorf("reading device config overrides: %w", err)
	}
	discoverer, err := hub.NewDiscoverer(cfg.Hub.LocalBackupAddress, cfg.Hub.DiscoverMessage)
	if err != nil {
		return fmt.Errorf("configuring discovery: %w", err)
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	p, err := buildPlatform(ctx, cfg, log, components{
		db:         db,
		mqtt:       mqttClient,
		influx:     influxClient,
		overrides:  overrides,
		discoverer: discoverer,
	})
	if err != nil {
		return err
	}

	if err := p.Start(ctx); err != nil {
		return fmt.Errorf("starting platform: %w", err)
	}
	defer func() {
		log.Info("stopping platform")
		if closeErr := p.Close(); closeErr != nil {
			log.Error("error stopping platform", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. Platform (schedule, admin server, running commands)
	// 2. InfluxDB (if enabled)
	// 3. MQTT
	// 4. Database

	log.Info("KAKU bridge stopped")
	return nil
}

// components are the connected infrastructure pieces the platform is built on.
type components struct {
	db         *database.DB
	mqtt       *mqtt.Client
	influx     *influxdb.Client // nil when disabled
	overrides  map[int]hub.Override
	discoverer *hub.Discoverer
}

// buildPlatform wires the hub client, catalog, accessory store, controllers
// and the optional admin server into a platform.
func buildPlatform(ctx context.Context, cfg *config.Config, log *logging.Logger, c components) (*platform.Platform, error) {
	qos := byte(cfg.MQTT.QoS)

	session := hub.NewSession(cfg.Hub.CloudURL, cfg.Hub.Email, cfg.Hub.Password, cfg.Hub.RequestTimeout)
	hubClient := hub.NewClient(session, c.overrides)
	hubClient.SetLogger(log.Component("hub"))

	builder := catalog.NewBuilder(hubClient, cfg.Hub.Blacklist())
	builder.SetLogger(log.Component("catalog"))

	registry := accessory.NewRegistry(accessory.NewSQLiteRepository(c.db.DB))
	registry.SetLogger(log.Component("accessory"))
	announcer := accessory.NewAnnouncer(registry, c.mqtt, pluginName, cfg.Platform.Name, qos)

	// A typed nil would make the platform write to a disabled client.
	var recorders []platform.MetricsRecorder
	if c.influx != nil {
		recorders = append(recorders, c.influx)
	}
	var scrape http.Handler
	if cfg.Prometheus.Enabled {
		collector := metrics.New()
		recorders = append(recorders, collector)
		scrape = collector.Handler()
	}
	recorder := platform.JoinRecorders(recorders...)

	var commander controller.Commander = hubClient
	if recorder != nil {
		commander = platform.NewMeteredCommander(hubClient, recorder)
	}

	wsHub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	go wsHub.Run(ctx)

	deps := platform.Deps{
		Options: platform.Options{
			DiscoveryTimeout: cfg.Hub.DiscoveryTimeout,
			ShowScenes:       cfg.Hub.ShowScenes,
			HideReloadSwitch: cfg.Hub.HideReloadSwitch,
			QoS:              qos,
		},
		Hub:        hubClient,
		Discoverer: c.discoverer,
		Catalog:    builder,
		Registry:   registry,
		Announcer:  announcer,
		Dispatcher: controller.NewDispatcher(commander, c.mqtt, qos),
		Transport:  c.mqtt,
		Events:     wsHub,
		History:    platform.NewSQLiteHistory(c.db.DB),
		Logger:     log.Component("sync"),
	}
	if recorder != nil {
		deps.Metrics = recorder
	}

	p, err := platform.New(deps)
	if err != nil {
		return nil, fmt.Errorf("creating platform: %w", err)
	}

	if cfg.API.Enabled {
		srv, err := api.New(api.Deps{
			Config:      cfg.API,
			WS:          cfg.WebSocket,
			Logger:      log.Component("api"),
			Bridge:      p,
			MQTT:        c.mqtt,
			DB:          c.db.DB,
			ExternalHub: wsHub,
			Prometheus:  scrape,
			Version:     version,
		})
		if err != nil {
			return nil, fmt.Errorf("creating API server: %w", err)
		}
		p.SetAdminServer(srv)
	} else {
		log.Info("REST server disabled")
	}

	return p, nil
}

// logHubSettings reports the hub options that change discovery or the catalog.
// The credentials are never logged.
func logHubSettings(log *logging.Logger, h config.HubConfig) {
	if ids := h.Blacklist(); len(ids) > 0 {
		log.Info("blacklist contains entities", "count", len(ids), "entity_ids", ids)
	}
	if h.LocalBackupAddress != "" {
		log.Info("using backup address", "address", h.LocalBackupAddress)
	}
	if n := len(h.DeviceConfigOverrides); n > 0 {
		log.Info("device config overrides loaded", "device_types", n)
	}
	if h.DiscoverMessage != "" {
		log.Info("using custom discover message", "message", h.DiscoverMessage)
	}
}

// getConfigPath returns the configuration file path.
// Uses KAKU_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("KAKU_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// influxClient may be nil if disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	// The hub is not checked here: an unreachable hub fails the startup
	// cycle, which is logged and retried on schedule.
	return nil
}

// errNoSecret is returned by the token command without api.jwt_secret.
var errNoSecret = errors.New("api.jwt_secret is not configured")

// tokenCommand prints a bearer token signed with the configured secret.
func tokenCommand(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	subject := fs.String("subject", "admin", "token subject")
	ttl := fs.Duration("ttl", 0, "token lifetime, 0 for no expiry")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if strings.TrimSpace(cfg.API.JWTSecret) == "" {
		return errNoSecret
	}

	token, err := api.IssueToken(cfg.API.JWTSecret, *subject, *ttl)
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
