package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/bellapacxx/roshambo-backend/config"
	"github.com/bellapacxx/roshambo-backend/game"
	"github.com/bellapacxx/roshambo-backend/routes"
	"github.com/bellapacxx/roshambo-backend/services"
	"github.com/bellapacxx/roshambo-backend/store"
	"github.com/bellapacxx/roshambo-backend/utils/logger"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	syncQueueSize = 1024
	syncTimeout   = 5 * time.Second
)

// backends holds the storage chosen by configuration.
type backends struct {
	store      services.MatchStore
	ledger     services.Ledger
	gormLedger *services.GormLedger
	closers    []func()
}

func setupBackends(cfg config.Config) (*backends, error) {
	b := &backends{}

	var db *gorm.DB
	if cfg.NeedsDatabase() {
		var err error
		if db, err = config.SetupDatabase(cfg.DatabaseURL); err != nil {
			return nil, err
		}
		logger.Infof("Database connected and migrated")
	}

	switch cfg.StoreBackend {
	case config.BackendDynamo:
		sess, err := session.NewSession(&aws.Config{Region: aws.String(cfg.AWSRegion)})
		if err != nil {
			return nil, fmt.Errorf("aws session: %w", err)
		}
		b.store = store.NewDynamoStore(dynamodb.New(sess), cfg.DynamoTable)
	default:
		b.store = store.NewGormStore(db)
	}

	switch cfg.LedgerBackend {
	case config.BackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		b.ledger = services.NewRedisLedger(rdb)
		b.closers = append(b.closers, func() { rdb.Close() })
	case config.BackendPostgres:
		b.gormLedger = services.NewGormLedger(db)
		b.ledger = b.gormLedger
	}
	return b, nil
}

// setupRouter initializes Gin routes and middleware
func setupRouter(cfg config.Config, d routes.Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.SetupRoutes(r, d)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now(), "engine": d.Engine.Stats()})
	})
	return r
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("[FATAL] %v", err)
	}
	if err := logger.Setup(cfg.LogLevel); err != nil {
		logger.Fatalf("[FATAL] LOG_LEVEL: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := setupBackends(cfg)
	if err != nil {
		logger.Fatalf("[FATAL] %v", err)
	}
	for _, closeFn := range b.closers {
		defer closeFn()
	}

	hub := services.NewHub(logger.Named("hub"))
	engine := services.NewEngine(services.EngineConfig{
		MoveGrace: cfg.MoveGrace,
		OfferTTL:  cfg.OfferTTL,
		Limits:    game.Limits{MaxRounds: cfg.MaxRounds, MaxMoveTimeout: cfg.MaxMoveTimeout},
	}, hub, b.ledger, services.NewPersistenceSync(b.store, logger.Named("sync"), syncQueueSize, syncTimeout), logger.Named("engine"))

	sched, err := services.StartOfferSweeper(engine, cfg.SweepInterval, logger.Named("scheduler"))
	if err != nil {
		logger.Fatalf("[FATAL] %v", err)
	}

	identity := services.NewJWTIdentityProvider(cfg.JWTSecret, cfg.JWTIssuer)
	router := setupRouter(cfg, routes.Deps{
		Engine: engine,
		Store:  b.store,
		Ledger: b.gormLedger,
		WS:     services.NewWSHandler(engine, hub, identity, cfg.AllowedOrigins, logger.Named("ws")),
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		logger.Infof("Roshambo backend starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("[FATAL] Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("http shutdown: %v", err)
	}
	if err := sched.Shutdown(); err != nil {
		logger.Errorf("scheduler shutdown: %v", err)
	}
	if err := engine.Close(shutdownCtx); err != nil {
		logger.Errorf("engine shutdown: %v", err)
	}
}
