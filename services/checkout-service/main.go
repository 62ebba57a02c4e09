package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	aws_pkg "github.com/dachishengelia/restyle-backend/pkg/aws"
	ddb "github.com/dachishengelia/restyle-backend/pkg/dynamodb"
	commonerrors "github.com/dachishengelia/restyle-backend/services/common/errors"
	"github.com/dachishengelia/restyle-backend/services/common/logger"
	commonmw "github.com/dachishengelia/restyle-backend/services/common/middleware"

	"github.com/dachishengelia/restyle-backend/services/checkout-service/config"
	"github.com/dachishengelia/restyle-backend/services/checkout-service/controllers"
	"github.com/dachishengelia/restyle-backend/services/checkout-service/database"
	"github.com/dachishengelia/restyle-backend/services/checkout-service/models"
	"github.com/dachishengelia/restyle-backend/services/checkout-service/providers"
	"github.com/dachishengelia/restyle-backend/services/checkout-service/repository"
	"github.com/dachishengelia/restyle-backend/services/checkout-service/routes"
	servicepkg "github.com/dachishengelia/restyle-backend/services/checkout-service/services"
)

const serviceName = "checkout-service"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	awsCfg, awsErr := aws_pkg.LoadAWSConfig(ctx)

	var cwWriter *aws_pkg.CloudWatchLogsClient
	if cfg.CloudWatchEnabled && awsErr == nil {
		cwWriter, err = aws_pkg.NewCloudWatchLogsClient(ctx, awsCfg, serviceName, "")
		if err != nil {
			log.Printf("CloudWatch Logs unavailable, logging to console only: %v", err)
			cwWriter = nil
		}
	}
	if cwWriter != nil {
		logger.InitializeWithWriter(cfg.AppEnv, cwWriter)
	} else {
		logger.Initialize(cfg.AppEnv)
	}
	zapLogger := logger.Log
	defer zapLogger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(zapLogger)

	if awsErr != nil {
		zapLogger.Warn("AWS config unavailable, metrics, notifications and archive disabled", zap.Error(awsErr))
	}

	if err := controllers.RegisterValidators(); err != nil {
		zapLogger.Fatal("Failed to register validators", zap.Error(err))
	}

	db, err := database.ConnectPostgres(zapLogger, cfg.PostgresDSN(), &models.Order{}, &models.OrderItem{})
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.ClosePostgres(db) //nolint:errcheck

	metrics := aws_pkg.NoopMetrics()
	if awsErr == nil {
		metrics = aws_pkg.NewMetricsClient(awsCfg, "", cfg.CloudWatchEnabled)
	}

	catalog, mongoClient := buildCatalog(ctx, cfg, awsCfg, awsErr, zapLogger)
	defer database.DisconnectMongo(mongoClient) //nolint:errcheck

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		zapLogger.Warn("Redis unavailable, catalog cache disabled", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
		catalog = repository.NewCachedCatalogRepository(catalog, redisClient, cfg.CatalogCacheTTL, metrics, zapLogger)
	}

	notifier := buildNotifier(ctx, cfg, awsCfg, awsErr, zapLogger)

	var archiver servicepkg.EventArchiver
	if cfg.WebhookArchiveBucket != "" && awsErr == nil {
		archiver = aws_pkg.NewS3Archiver(awsCfg, cfg.WebhookArchiveBucket)
	}

	// Provider and DI chain
	stripeProvider := providers.NewStripeProvider(providers.StripeConfig{
		APIKey:           cfg.StripeAPIKey,
		WebhookSecret:    cfg.StripeWebhookSecret,
		WebhookTolerance: cfg.StripeWebhookTolerance,
	})
	orderRepo := repository.NewGormOrderRepository(db)

	checkoutService := servicepkg.NewCheckoutService(stripeProvider, servicepkg.CheckoutConfig{
		Currency:    cfg.Currency,
		FrontendURL: cfg.FrontendURL,
		SuccessPath: cfg.SuccessPath,
		CancelPath:  cfg.CancelPath,
	})
	reconciler := servicepkg.NewOrderReconciler(stripeProvider, orderRepo, catalog, notifier, metrics, cfg.StripeTimeout)
	webhookService := servicepkg.NewWebhookService(stripeProvider, reconciler, archiver)
	orderService := servicepkg.NewOrderService(orderRepo, notifier, metrics)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestID())
	r.Use(commonmw.RequestLogger(zapLogger, "/health"))
	r.Use(commonmw.SecurityHeaders())
	r.Use(commonmw.MetricsMiddleware(metrics, serviceName))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key", logger.RequestIDHeader},
		ExposeHeaders:    []string{logger.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 30-second request timeout
	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	r.Use(commonerrors.ErrorMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
	})

	routesCtx, stopRoutes := context.WithCancel(ctx)
	defer stopRoutes()
	routes.RegisterCheckoutRoutes(routesCtx, r, routes.Controllers{
		Checkout: controllers.NewCheckoutController(checkoutService),
		Webhook:  controllers.NewWebhookController(webhookService),
		Order:    controllers.NewOrderController(orderService),
	}, routes.Options{
		CheckoutRatePerMinute: cfg.CheckoutRatePerMin,
		GatewaySecret:         cfg.GatewaySecret,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	zapLogger.Info("Checkout service started",
		zap.String("port", cfg.Port),
		zap.String("catalog", cfg.CatalogBackend),
		zap.Bool("cache", redisClient != nil),
		zap.Bool("archive", archiver != nil),
		zap.Bool("gateway_headers", cfg.GatewaySecret != ""),
	)
	<-quit
	zapLogger.Info("Shutting down checkout service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	zapLogger.Info("Server exited cleanly")
}

func buildCatalog(ctx context.Context, cfg *config.Config, awsCfg sdkaws.Config, awsErr error, zapLogger *zap.Logger) (repository.CatalogRepository, *mongo.Client) {
	if cfg.CatalogBackend == config.CatalogDynamoDB {
		if awsErr != nil {
			zapLogger.Fatal("DynamoDB catalog requires AWS config", zap.Error(awsErr))
		}
		return repository.NewDynamoCatalogRepository(ddb.NewClientFromConfig(awsCfg), cfg.ProductsTable), nil
	}

	client, mongoDB, err := database.ConnectMongo(ctx, cfg.MongoURL, cfg.MongoDBName)
	if err != nil {
		zapLogger.Fatal("Failed to connect to catalog database", zap.Error(err))
	}
	zapLogger.Info("Connected to MongoDB catalog", zap.String("database", cfg.MongoDBName))
	return repository.NewMongoCatalogRepository(mongoDB), client
}

func buildNotifier(ctx context.Context, cfg *config.Config, awsCfg sdkaws.Config, awsErr error, zapLogger *zap.Logger) servicepkg.Notifier {
	if awsErr != nil {
		return servicepkg.NewEventNotifier(nil, "")
	}

	switch cfg.NotificationTransport {
	case config.TransportSQS:
		sqsClient := aws_pkg.NewSQSClient(awsCfg)
		queueURL, err := sqsClient.ResolveQueueURL(ctx, cfg.NotificationQueueURL)
		if err != nil {
			zapLogger.Warn("Notification queue unavailable, notifications disabled", zap.Error(err))
			return servicepkg.NewEventNotifier(nil, "")
		}
		return servicepkg.NewEventNotifier(sqsClient, queueURL)
	default:
		return servicepkg.NewEventNotifier(aws_pkg.NewSNSClient(awsCfg), cfg.NotificationTopicARN)
	}
}
