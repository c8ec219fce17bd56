package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	bootlog "github.com/rs/zerolog/log"
	"go.mau.fi/whatsmeow/store"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"wacrm-bridge/config"
	"wacrm-bridge/database"
	"wacrm-bridge/internal/handler"
	"wacrm-bridge/internal/helper"
	"wacrm-bridge/internal/model"
	"wacrm-bridge/internal/service"
	"wacrm-bridge/internal/ws"
)

func main() {
	// Load .env (ignored when absent, e.g. in production)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootlog.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := helper.NewLogger(cfg.LogLevel, cfg.LogPretty)
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("bridge stopped")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// device name shown in the phone's linked devices list
	store.DeviceProps.Os = proto.String(cfg.DeviceOSName)

	container, waDB, err := database.OpenDeviceStore(ctx, cfg.DatabaseURL,
		waLog.Zerolog(logger.With().Str("component", "whatsmeow-store").Logger()))
	if err != nil {
		return err
	}
	defer waDB.Close()

	appDB, driver, err := database.Open(ctx, cfg.AppDatabaseURL)
	if err != nil {
		return err
	}
	defer appDB.Close()

	bindings := model.NewDeviceBindingRepo(appDB, driver)
	if err := bindings.EnsureSchema(ctx); err != nil {
		return err
	}

	phrases, err := model.LoadPhraseConfig(cfg.PhrasesFile)
	if err != nil {
		return err
	}

	notifier := service.NewCRMNotifier(cfg.CRMURL, cfg.CRMWebhookSecret, cfg.CRMTimeout,
		logger.With().Str("component", "crm").Logger())
	defer notifier.Wait()

	hub := ws.NewHub(logger.With().Str("component", "ws").Logger())
	go hub.Run(ctx)

	records := model.NewSessionFileStore(cfg.SessionFile, logger.With().Str("component", "session-store").Logger())
	factory := service.NewWhatsmeowFactory(container, bindings, logger.With().Str("component", "whatsapp").Logger())

	manager := service.NewManager(service.ManagerConfig{
		Registry:       service.NewRegistry(),
		Records:        records,
		Classifier:     service.NewClassifier(phrases),
		Notifier:       notifier,
		Factory:        factory.NewClient,
		QR:             helper.QRRenderer{Format: cfg.QRImageFormat, Size: cfg.QRImageSize},
		Realtime:       hub,
		Channel:        cfg.CRMChannel,
		ReconnectDelay: cfg.ReconnectDelay,
		Logger:         logger.With().Str("component", "manager").Logger(),
	})
	defer manager.Close()

	// reconnect the last ready session, as LocalAuth did on a restart
	if stored, ok := records.Load(); ok {
		logger.Info().Str("session", stored).Msg("restoring session from record")
		if _, err := manager.Start(ctx, stored); err != nil {
			logger.Error().Err(err).Str("session", stored).Msg("cannot restore session")
		}
	}

	e := newServer(cfg, logger, manager, hub)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("gateway listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newServer(cfg *config.Config, logger zerolog.Logger, manager *service.Manager, hub *ws.Hub) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.HTTPErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))

	httpLog := logger.With().Str("component", "http").Logger()
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			evt := httpLog.Info()
			if v.Error != nil {
				evt = httpLog.Warn().Err(v.Error)
			}
			evt.Str("id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowMethods: []string{
			echo.GET,
			echo.POST,
			echo.OPTIONS,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderXRequestedWith,
		},
	}))

	handler.New(manager, logger.With().Str("component", "gateway").Logger()).
		Register(e, hub, cfg.CORSAllowOrigins)

	return e
}
