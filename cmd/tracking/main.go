package main

import (
	"context"
	"log"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/tippyhq/tracking/internal/pkg/config"
	"github.com/tippyhq/tracking/internal/pkg/database"
	"github.com/tippyhq/tracking/internal/pkg/health"
	"github.com/tippyhq/tracking/internal/pkg/logger"
	"github.com/tippyhq/tracking/internal/pkg/middleware"
	"github.com/tippyhq/tracking/internal/pkg/nats"
	"github.com/tippyhq/tracking/internal/pkg/server"
	"github.com/tippyhq/tracking/internal/pkg/websocket"
	"github.com/tippyhq/tracking/services/tracking"
	"github.com/tippyhq/tracking/services/tracking/channel"
	natsgw "github.com/tippyhq/tracking/services/tracking/gateway/nats"
	"github.com/tippyhq/tracking/services/tracking/gateway/routing"
	wsgw "github.com/tippyhq/tracking/services/tracking/gateway/websocket"
	httphandler "github.com/tippyhq/tracking/services/tracking/handler/http"
	natshandler "github.com/tippyhq/tracking/services/tracking/handler/nats"
	wshandler "github.com/tippyhq/tracking/services/tracking/handler/websocket"
	"github.com/tippyhq/tracking/services/tracking/repository"
	"github.com/tippyhq/tracking/services/tracking/usecase"
)

const serviceName = "tracking-service"

func main() {
	cfg := config.InitConfig(".env")

	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled {
		app, err := newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to init new relic, continuing without it: %v", err)
		} else {
			nrApp = app
		}
	}

	zapLogger, err := logger.InitZapLoggerFromConfig(cfg, nrApp)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	logger.SetGlobalLogger(zapLogger)
	defer zapLogger.Sync()

	shutdownMgr := server.NewShutdownManager(zapLogger)

	// Infrastructure
	redisClient, err := database.NewRedisClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("failed to connect to redis", logger.Err(err))
	}
	shutdownMgr.Register(func(ctx context.Context) error {
		return redisClient.Close()
	})

	db, err := database.NewPostgresDB(cfg.Database)
	if err != nil {
		zapLogger.Fatal("failed to connect to postgres", logger.Err(err))
	}
	shutdownMgr.Register(func(ctx context.Context) error {
		return db.Close()
	})

	// Without a broker URL the service runs in degraded mode: the position
	// channel falls back to store polling and arrival events are pushed to
	// connected clients directly.
	var natsClient *nats.Client
	if cfg.NATS.URL != "" {
		natsClient, err = nats.NewClient(cfg.NATS.URL)
		if err != nil {
			zapLogger.Fatal("failed to connect to nats", logger.Err(err))
		}
		shutdownMgr.Register(func(ctx context.Context) error {
			natsClient.Close()
			return nil
		})
	} else {
		zapLogger.Warn("no nats url configured, falling back to position polling")
	}

	// Repositories
	positionRepo := repository.NewPositionRepo(redisClient, time.Duration(cfg.Tracking.PositionTTLHours)*time.Hour)
	permissionRepo := repository.NewPermissionRepo(db)

	// Usecases and collaborators
	permissionUC := usecase.NewPermissionUC(permissionRepo)

	wsManager := websocket.NewManager(cfg.JWT)

	positionChannel := channel.New(natsClient, positionRepo, permissionUC,
		time.Duration(cfg.Tracking.PollIntervalSeconds)*time.Second)

	var trackingGW tracking.TrackingGW
	if natsClient != nil {
		trackingGW = natsgw.NewTrackingGW(natsClient)
	} else {
		trackingGW = wsgw.NewTrackingGW(wsManager)
	}

	var planner tracking.RoutePlanner
	if cfg.Routing.GoogleAPIKey != "" {
		googlePlanner, err := routing.NewGoogleRoutePlanner(cfg.Routing.GoogleAPIKey)
		if err != nil {
			zapLogger.Warn("failed to init route planner, using straight-line estimates", logger.Err(err))
		} else {
			planner = googlePlanner
		}
	}

	trackingUC := usecase.NewTrackingUC(positionChannel, trackingGW, planner,
		time.Duration(cfg.Routing.RefreshSeconds)*time.Second)

	// Transport
	e := echo.New()
	e.HideBanner = true
	e.Use(echomiddleware.Recover())
	e.Use(middleware.RequestContextMiddleware())
	if nrApp != nil {
		e.Use(middleware.NewRelicMiddleware(nrApp))
	}

	health.RegisterHealthEndpoints(e, serviceName)

	httphandler.NewHandler(trackingUC, permissionUC, cfg.JWT).RegisterRoutes(e)
	wshandler.NewHandler(wsManager, trackingUC).RegisterRoutes(e)

	// In degraded mode the websocket gateway already pushes events directly,
	// so there is nothing to consume.
	if natsClient != nil {
		eventConsumer := natshandler.NewHandler(natsClient, wsManager)
		if err := eventConsumer.Start(); err != nil {
			zapLogger.Fatal("failed to start event consumer", logger.Err(err))
		}
		shutdownMgr.Register(func(ctx context.Context) error {
			eventConsumer.Stop()
			return nil
		})
	}

	srv := server.NewGracefulServer(e, zapLogger, cfg.Server.Port)
	if err := srv.Start(); err != nil {
		zapLogger.Error("server exited with error", logger.Err(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	shutdownMgr.Shutdown(ctx)
}
