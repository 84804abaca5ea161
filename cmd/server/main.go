package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/banksampah/backend/docs"
	"github.com/banksampah/backend/internal/database"
	"github.com/banksampah/backend/internal/handlers"
	mW "github.com/banksampah/backend/internal/middleware"
	"github.com/banksampah/backend/internal/services"
)

// @title Waste Bank Backend API
// @version 1.0
// @description API for waste-bank deposit, balance and withdrawal management
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")

	viper.SetDefault("jwt.expiry_hours", 24)
	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	viper.SetDefault("argon2.salt_length", 16)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "Waste Bank Backend API"
	docs.SwaggerInfo.Description = "API for waste-bank deposit, balance and withdrawal management"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	// Initialize services
	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	ledgerService := services.NewLedgerService(db)
	authService := services.NewAuthService(db, redisClient)
	depositService := services.NewDepositService(db, ledgerService)
	withdrawalService := services.NewWithdrawalService(db, ledgerService)
	catalogService := services.NewCatalogService(db)
	memberService := services.NewMemberService(db)
	articleService := services.NewArticleService(db)
	settingsService := services.NewSettingsService(db)
	statsService := services.NewStatsService(db)
	scanService := services.NewScanService(db, redisClient)
	scanHandler := handlers.NewScanHandler(scanService)

	// Initialize auth middleware with Redis
	mW.InitAuthMiddleware(redisClient)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// Static file server for article images
	r.Handle("/static/article-images/*", http.StripPrefix("/static/article-images/",
		mW.StaticFileServer("./static/article-images")))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Post("/auth/register", authService.Register)
		r.Post("/auth/login", authService.Login)
		r.Post("/auth/logout", authService.Logout)
		r.Get("/settings/public", settingsService.GetPublicSettings)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Get("/auth/account", authService.GetUserAccount)
			r.Put("/profile/complete", authService.CompleteProfile)

			r.Get("/dashboard/stats", statsService.GetStats)
			r.Get("/settings", settingsService.GetSettings)

			// Deposits
			r.Post("/deposits", depositService.CreateDeposit)
			r.Get("/deposits", depositService.ListDeposits)

			// Withdrawals
			r.Post("/withdrawals", withdrawalService.RequestWithdrawal)
			r.Get("/withdrawals", withdrawalService.ListWithdrawals)

			// Waste type catalog (read open to every role)
			r.Get("/waste-types", catalogService.ListWasteTypes)

			// Articles (read open to every role)
			r.Get("/articles", articleService.ListArticles)
			r.Get("/articles/{articleId}", articleService.GetArticle)

			// Staff: weighing and payout decisions
			r.Group(func(r chi.Router) {
				r.Use(mW.RequireCapability(func(c mW.Capabilities) bool { return c.CanValidateDeposit }))
				r.Post("/deposits/{depositId}/validate", depositService.ValidateDeposit)
				r.Post("/deposits/{depositId}/reject", depositService.RejectDeposit)
			})
			r.Group(func(r chi.Router) {
				r.Use(mW.RequireCapability(func(c mW.Capabilities) bool { return c.CanDecideWithdrawal }))
				r.Post("/withdrawals/{withdrawalId}/decide", withdrawalService.DecideWithdrawal)
			})

			// Staff: member lookup
			r.Group(func(r chi.Router) {
				r.Use(mW.RequireCapability(func(c mW.Capabilities) bool { return c.CanViewMembers }))
				r.Get("/members", memberService.ListMembers)
				r.Get("/members/{memberId}", memberService.GetMember)
				r.Get("/members/by-code", memberService.FindByCode)
				r.Post("/members/scan", scanHandler.ScanMember)
			})

			// Admin: member administration
			r.Group(func(r chi.Router) {
				r.Use(mW.RequireCapability(func(c mW.Capabilities) bool { return c.CanManageMembers }))
				r.Post("/members", memberService.CreateMember)
				r.Delete("/members/{memberId}", memberService.DeleteMember)
				r.Post("/members/{memberId}/regenerate-qr", memberService.RegenerateQR)
			})

			// Admin: catalog management
			r.Group(func(r chi.Router) {
				r.Use(mW.RequireCapability(func(c mW.Capabilities) bool { return c.CanManageCatalog }))
				r.Post("/waste-types", catalogService.CreateWasteType)
				r.Put("/waste-types/{wasteTypeId}", catalogService.UpdateWasteType)
				r.Delete("/waste-types/{wasteTypeId}", catalogService.DeleteWasteType)
			})

			// Admin: content and settings
			r.Group(func(r chi.Router) {
				r.Use(mW.RequireCapability(func(c mW.Capabilities) bool { return c.CanManageContent }))
				r.Post("/articles", articleService.CreateArticle)
				r.Put("/articles/{articleId}", articleService.UpdateArticle)
				r.Delete("/articles/{articleId}", articleService.DeleteArticle)
				r.Put("/settings", settingsService.UpdateSetting)
			})
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
