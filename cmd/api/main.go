package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/campuslink/resources-backend/internal/booking"
	"github.com/campuslink/resources-backend/internal/carpool"
	"github.com/campuslink/resources-backend/internal/clock"
	"github.com/campuslink/resources-backend/internal/database"
	"github.com/campuslink/resources-backend/internal/handlers"
	"github.com/campuslink/resources-backend/internal/middleware"
	"github.com/campuslink/resources-backend/internal/notify"
	"github.com/campuslink/resources-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	db, err := database.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}

	// Configure connection pool
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Initialize Redis
	if err := notify.InitRedis(); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}

	// Initialize Storage (S3 or local fallback)
	if err := services.InitStorage(); err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// Initialize WebSocket hub
	hub := services.NewHub()
	go hub.Run()

	notifier := notify.Multi{
		services.NewHubNotifier(hub, db),
		notify.NewRedisPublisher(notify.RedisClient),
	}

	bookingPolicy := booking.Policy{
		CascadeCancelOnDisable: os.Getenv("CASCADE_CANCEL_ON_DISABLE") == "true",
	}
	carpoolPolicy := carpool.Policy{AutoApproveRoles: []string{"admin"}}
	if roles := os.Getenv("AUTO_APPROVE_DRIVER_ROLES"); roles != "" {
		carpoolPolicy.AutoApproveRoles = strings.Split(roles, ",")
	}

	bookingSvc := booking.NewService(booking.NewGormStore(db), clock.System(), notifier, bookingPolicy)
	carpoolSvc := carpool.NewService(carpool.NewGormStore(db), clock.System(), notifier, carpoolPolicy)

	// Background sweep marks elapsed rentals and departed offers as completed
	go runSweeps(bookingSvc, carpoolSvc)

	r := gin.Default()

	// Configure CORS
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(config))

	// Serve static files
	r.Static("/uploads", "/app/uploads")

	api := r.Group("/api")
	{
		// Public routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.Register(db))
			auth.POST("/login", handlers.Login(db))
		}

		// WebSocket connection
		api.GET("/ws", middleware.AuthMiddleware(), handlers.WebSocketHandler(hub))

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			users := protected.Group("/users")
			{
				users.GET("/profile", handlers.GetProfile(db))
			}

			rooms := protected.Group("/rooms")
			{
				rooms.POST("", handlers.CreateRoom(bookingSvc))
				rooms.GET("/available", handlers.GetAvailableRooms(bookingSvc))
				rooms.GET("/:id", handlers.GetRoom(bookingSvc))
				rooms.PATCH("/:id/status", handlers.SetRoomStatus(bookingSvc))
				rooms.POST("/:id/photo", handlers.UploadRoomPhoto(bookingSvc, db))
				rooms.GET("/:id/rentals", handlers.GetRoomRentals(bookingSvc))
			}

			rentals := protected.Group("/rentals")
			{
				rentals.POST("", handlers.RequestRental(bookingSvc))
				rentals.GET("", handlers.GetMyRentals(bookingSvc))
				rentals.POST("/:id/approve", handlers.ApproveRental(bookingSvc))
				rentals.POST("/:id/reject", handlers.RejectRental(bookingSvc))
				rentals.POST("/:id/cancel", handlers.CancelRental(bookingSvc))
			}

			drivers := protected.Group("/drivers")
			{
				drivers.POST("", handlers.RegisterDriver(carpoolSvc))
				drivers.GET("", handlers.GetMyDrivers(carpoolSvc))
				drivers.POST("/:id/approve", handlers.ApproveDriver(carpoolSvc))
				drivers.POST("/:id/suspend", handlers.SuspendDriver(carpoolSvc))
				drivers.GET("/:id/offers", handlers.GetMyOffers(carpoolSvc))
			}

			offers := protected.Group("/offers")
			{
				offers.POST("", handlers.CreateOffer(carpoolSvc))
				offers.GET("/event/:eventId", handlers.GetEventOffers(carpoolSvc))
				offers.POST("/:id/join", handlers.JoinOffer(carpoolSvc))
				offers.POST("/:id/leave", handlers.LeaveOffer(carpoolSvc))
				offers.POST("/:id/cancel", handlers.CancelOffer(carpoolSvc))
				offers.GET("/:id/passengers", handlers.GetOfferPassengers(carpoolSvc))
			}

			rides := protected.Group("/rides")
			{
				rides.GET("", handlers.GetMyRides(carpoolSvc))
			}

			notifications := protected.Group("/notifications")
			{
				notifications.GET("/preferences", handlers.GetNotificationPreferences(db))
				notifications.PUT("/preferences", handlers.UpdateNotificationPreferences(db))
			}
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

func runSweeps(bookingSvc *booking.Service, carpoolSvc *carpool.Service) {
	interval := time.Minute
	if s := os.Getenv("SWEEP_INTERVAL"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			interval = d
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if n, err := bookingSvc.CompleteElapsed(ctx); err != nil {
			log.Printf("Rental completion sweep failed: %v", err)
		} else if n > 0 {
			log.Printf("Marked %d rentals as completed", n)
		}
		if n, err := carpoolSvc.CompleteDeparted(ctx); err != nil {
			log.Printf("Offer completion sweep failed: %v", err)
		} else if n > 0 {
			log.Printf("Marked %d offers as completed", n)
		}
		cancel()
	}
}
