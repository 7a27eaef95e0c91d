// main.go
package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"go-storefront/cache"
	"go-storefront/config"
	"go-storefront/controllers"
	"go-storefront/events"
	"go-storefront/metrics"
	"go-storefront/repository"
	"go-storefront/routes"
	"go-storefront/services"
	"go-storefront/utils"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Proceeding with environment variables.")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	// Set the JWT secret key
	utils.JwtKey = []byte(cfg.JWTSecret)

	// Initialize EmailService; nil when no Postmark token is configured
	emailService := utils.NewEmailService(cfg.PostmarkToken, cfg.EmailSender)
	if emailService == nil {
		logger.Info("no postmark token configured, email disabled")
	}

	// Connect to MongoDB
	client := utils.ConnectDB(cfg.MongoURI)
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Fatal(err)
		}
	}()
	db := client.Database(cfg.MongoDatabase)

	ctx := context.Background()
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		logger.Fatal("failed to ensure indexes", zap.Error(err))
	}

	// Redis-backed cart cache
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	cartCache := cache.NewRedisCache(redisClient)

	// Kafka order event stream
	producer := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaOrderTopic, logger)
	defer producer.Close()

	storeMetrics := metrics.NewStoreMetrics()

	// Stores
	productStore := repository.NewProductStore(db)
	cartStore := repository.NewCartStore(db)
	orderStore := repository.NewOrderStore(db)
	reviewStore := repository.NewReviewStore(db)

	// Services
	cartService := services.NewCartService(cartStore, productStore, services.NewFlatRateCoupons(), cartCache, storeMetrics, logger)
	checkoutService := services.NewCheckoutService(orderStore, cartStore, productStore, cartCache, producer, storeMetrics, logger)
	orderService := services.NewOrderService(orderStore, productStore, producer, storeMetrics, logger)
	reviewService := services.NewReviewService(reviewStore, productStore, logger)

	// Controllers
	userController := controllers.NewUserController(db, emailService, cartService)
	productController := controllers.NewProductController(db)
	cartController := controllers.NewCartController(cartService)
	orderController := controllers.NewOrderController(orderService, checkoutService, db, emailService)
	reviewController := controllers.NewReviewController(reviewService)
	contentController := controllers.NewContentController(db)

	// Set up the router
	router := mux.NewRouter()
	routes.RegisterRoutes(router, userController, productController, cartController, orderController, reviewController, contentController, storeMetrics)

	logger.Info("server listening", zap.String("port", cfg.Port))
	log.Fatal(http.ListenAndServe(":"+cfg.Port, router))
}

// newLogger builds a production zap logger at the configured level.
func newLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := zcfg.Build()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	return logger
}
