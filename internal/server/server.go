package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"boardsync/internal/config"
	"boardsync/internal/handler"
	"boardsync/internal/middleware"
	"boardsync/internal/notify"
	"boardsync/internal/realtime"
	"boardsync/internal/repository"
	boardsync "boardsync/internal/sync"
)

type Server struct {
	Engine   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	Sessions *boardsync.Manager
	Config   *config.Config
}

func Init(cfg *config.Config) (*Server, error) {
	// Setup GORM
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	log.Println("✅ Connected to database")

	if err := repository.RunMigrations(cfg.DatabaseURL(), cfg.MigrationsDir); err != nil {
		return nil, err
	}
	log.Println("✅ Migrations applied")

	// Setup Redis (change feed + notifications)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	// Setup Gin
	r := gin.Default()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	boardRepo := repository.NewBoardRepository(db)
	columnRepo := repository.NewColumnRepository(db)
	cardRepo := repository.NewCardRepository(db)

	publisher := realtime.NewPublisher(rdb)
	records := repository.NewStore(boardRepo, columnRepo, cardRepo, publisher)

	dispatcher := notify.NewRedisDispatcher(rdb, cfg.NotifyChannel)
	notifier := notify.NewNotifier(dispatcher)

	sessions := boardsync.NewManager(rdb, records, notifier)

	// Initialize handlers
	userHandler := handler.NewUserHandler(userRepo, cfg.JWTSecret)
	boardHandler := handler.NewBoardHandler(boardRepo, columnRepo, sessions)
	cardHandler := handler.NewCardHandler(boardRepo, sessions)
	columnHandler := handler.NewColumnHandler(boardRepo, sessions)

	// Public routes
	r.POST("/register", userHandler.Register)
	r.POST("/login", userHandler.Login)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Protected routes - require authentication
	authorized := r.Group("/")
	authorized.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	{
		// Board routes
		authorized.POST("/boards", boardHandler.Create)
		authorized.GET("/boards", boardHandler.GetAll)
		authorized.GET("/boards/:id", boardHandler.GetByID)
		authorized.PUT("/boards/:id", boardHandler.Update)
		authorized.DELETE("/boards/:id/session", boardHandler.CloseSession)

		// Column routes
		authorized.POST("/boards/:id/columns", columnHandler.Create)
		authorized.PUT("/boards/:id/columns/:column_id", columnHandler.Update)
		authorized.DELETE("/boards/:id/columns/:column_id", columnHandler.Delete)
		authorized.POST("/boards/:id/columns/reorder", columnHandler.Reorder)

		// Card routes
		authorized.POST("/boards/:id/cards", cardHandler.Create)
		authorized.PUT("/boards/:id/cards/:card_id", cardHandler.Update)
		authorized.DELETE("/boards/:id/cards/:card_id", cardHandler.Delete)
		authorized.POST("/boards/:id/cards/:card_id/move", cardHandler.Move)
	}

	return &Server{
		Engine:   r,
		DB:       db,
		Redis:    rdb,
		Sessions: sessions,
		Config:   cfg,
	}, nil
}

func (s *Server) Run() {
	srv := &http.Server{
		Addr:    ":" + s.Config.ServerPort,
		Handler: s.Engine,
	}

	go func() {
		log.Printf("🚀 Server running on port %s\n", s.Config.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Failed to listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	s.Sessions.CloseAll()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %s", err)
	}
	if err := s.Redis.Close(); err != nil {
		log.Printf("⚠️ Redis close failed: %v", err)
	}

	log.Println("✅ Server exited properly")
}
