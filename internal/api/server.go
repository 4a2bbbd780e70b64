package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SundayYogurt/identity_service/config"
	"github.com/SundayYogurt/identity_service/infra/cache"
	"github.com/SundayYogurt/identity_service/infra/queue"
	"github.com/SundayYogurt/identity_service/internal/api/rest/handlers"
	"github.com/SundayYogurt/identity_service/internal/api/rest/middleware"
	"github.com/SundayYogurt/identity_service/internal/helper"
	"github.com/SundayYogurt/identity_service/internal/helper/utils"
	"github.com/SundayYogurt/identity_service/internal/interfaces"
	"github.com/SundayYogurt/identity_service/internal/repository"
	"github.com/SundayYogurt/identity_service/internal/services"
	"github.com/SundayYogurt/identity_service/pkg/cloudinary"
	"github.com/SundayYogurt/identity_service/pkg/objstore"
	"github.com/SundayYogurt/identity_service/pkg/pinata"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const logoFolder = "company-logos"

// StartServer wires the service from cfg and serves until SIGINT/SIGTERM.
func StartServer(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------- Store ----------
	repo, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	// ---------- Infra ----------
	uploader, err := newUploader(ctx, cfg)
	if err != nil {
		return fmt.Errorf("uploader init: %w", err)
	}
	log.Info("uploader ready", "provider", cfg.UploadProvider)

	producer := queue.NewProducer(cfg.KafkaBroker, cfg.KafkaTopic, cfg.KafkaUsername, cfg.KafkaPassword, log)
	defer producer.Close()
	var events interfaces.ProducerHandler
	if producer != nil {
		events = producer
		log.Info("kafka producer ready", "broker", cfg.KafkaBroker, "topic", cfg.KafkaTopic)
	} else {
		log.Warn("KAFKA_BROKER not set, account events are not published")
	}

	var counter interfaces.Counter
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCounter(cfg.RedisURL, "identity:")
		if err != nil {
			// Rate limiting is optional; run without it.
			log.Warn("redis unavailable, rate limiting disabled", "err", err)
		} else {
			defer rc.Close()
			counter = rc
		}
	}

	authHelper := helper.SetupAuth(cfg.AccessSecret, cfg.TokenTTL)

	// ---------- Service ----------
	userSvc := services.NewUserService(
		repo,
		helper.NewPasswordHasher(cfg.BcryptCost),
		helper.GenerateCode,
		authHelper,
		uploader,
		events,
		log,
	)

	// ---------- HTTP ----------
	app := NewApp(cfg, log)

	limit := func(name string, key func(*fiber.Ctx) string) fiber.Handler {
		return middleware.RateLimit(name, middleware.RateLimitConfig{
			Counter: counter,
			Max:     int64(cfg.RateLimitMax),
			Window:  cfg.RateLimitWindow,
			Key:     key,
			Logger:  log,
		})
	}
	userHandler := handlers.NewUserHandler(userSvc, authHelper, handlers.Options{
		AuthLimiter:  limit("auth", nil),
		CodeLimiter:  limit("validation", middleware.UserOrIP),
		LogoMaxWidth: cfg.LogoMaxWidth,
		Logger:       log,
	})
	userHandler.SetupRoutes(app)

	// ---------- Listen ----------
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.ServerPort)
		errCh <- app.Listen(cfg.ServerPort)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		return app.ShutdownWithTimeout(10 * time.Second)
	}
}

// NewApp builds the Fiber app with the ambient middleware and the health
// and metrics routes.
func NewApp(cfg config.Config, log *slog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "identity-service",
		BodyLimit:    6 * 1024 * 1024,
		ErrorHandler: errorHandler(log),
	})

	app.Use(recover.New())

	// ---------- CORS ----------
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.BaseURL,
		AllowHeaders:     "Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		AllowCredentials: cfg.BaseURL != "*",
	}))

	// ---------- Health ----------
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	return app
}

func errorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code := services.CodeInvalidInput
			if fe.Code >= fiber.StatusInternalServerError {
				code = services.CodeInternal
			}
			if fe.Code == fiber.StatusNotFound {
				code = "NOT_FOUND"
			}
			return utils.ResponseError(ctx, fe.Code, code)
		}
		log.ErrorContext(ctx.UserContext(), "unhandled error", "path", ctx.Path(), "err", err)
		return utils.ResponseError(ctx, fiber.StatusInternalServerError, services.CodeInternal)
	}
}

func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (repository.UserRepository, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := repository.OpenPostgres(cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("database connection error: %w", err)
		}
		log.Info("database connected")

		if err := repository.RunMigrations(ctx, db); err != nil {
			return nil, nil, fmt.Errorf("migration error: %w", err)
		}
		log.Info("migration successful")

		closeFn := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return repository.NewUserRepository(db), closeFn, nil

	case config.DriverMongo:
		client, db, err := repository.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, nil, fmt.Errorf("mongo connection error: %w", err)
		}
		repo, err := repository.NewMongoUserRepository(ctx, db)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, fmt.Errorf("mongo index error: %w", err)
		}
		log.Info("mongo connected", "db", cfg.MongoDB)
		return repo, func() { _ = client.Disconnect(context.Background()) }, nil

	case config.DriverMemory:
		log.Warn("using in-memory store, accounts are lost on restart")
		return repository.NewMemoryUserRepository(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

func newUploader(ctx context.Context, cfg config.Config) (interfaces.Uploader, error) {
	switch cfg.UploadProvider {
	case config.ProviderPinata:
		return pinata.NewClient(cfg.PinataAPIURL, cfg.PinataGatewayURL, cfg.PinataJWT), nil

	case config.ProviderCloudinary:
		cld, err := cloudinary.New(cfg.CloudinaryUrl)
		if err != nil {
			return nil, err
		}
		return cloudinary.NewCloudinaryUploader(cld, logoFolder), nil

	case config.ProviderMinio:
		c, err := objstore.NewClient(objstore.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MinioPublicURL,
		})
		if err != nil {
			return nil, err
		}
		if err := c.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown UPLOAD_PROVIDER %q", cfg.UploadProvider)
}
