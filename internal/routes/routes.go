package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"ambulance-service-server/internal/config"
	"ambulance-service-server/internal/handlers"
	"ambulance-service-server/internal/middleware"
	"ambulance-service-server/internal/models"
	"ambulance-service-server/internal/ws"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, hub *ws.Hub) {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg)
	userHandler := handlers.NewUserHandler(db)
	ambulanceHandler := handlers.NewAmbulanceHandler(db, hub)
	requestHandler := handlers.NewRequestHandler(db, hub)
	dispatchHandler := handlers.NewDispatchHandler(db, hub)
	patientHandler := handlers.NewPatientHandler(db)
	serviceHistoryHandler := handlers.NewServiceHistoryHandler(db)

	// Public routes (no authentication required)
	public := router.Group("/api")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}

		// Public emergency intake: anyone can submit a request; a valid token,
		// when present, links the request to the caller's account.
		public.POST("/requests", middleware.OptionalAuthMiddleware(cfg), requestHandler.CreateRequest)
	}

	// Authenticated routes
	private := router.Group("/api")
	private.Use(middleware.AuthMiddleware(cfg)) // Apply JWT authentication middleware
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
		}

		// Current user routes
		private.GET("/users/me", userHandler.GetMe)
		private.PUT("/users/me", userHandler.UpdateMe)
		private.PUT("/users/me/password", userHandler.ChangePassword)

		// User management routes (admin-only)
		userRoutes := private.Group("/users")
		userRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
		{
			userRoutes.POST("", userHandler.CreateUser)
			userRoutes.GET("", userHandler.GetUsers)
			userRoutes.GET("/:id", userHandler.GetUserByID)
			userRoutes.PUT("/:id", userHandler.UpdateUser)
			userRoutes.DELETE("/:id", userHandler.DeleteUser)
		}

		// Ambulance routes: reads for all authenticated users, fleet
		// mutations for dispatchers and admins.
		ambulanceRoutes := private.Group("/ambulances")
		{
			ambulanceRoutes.GET("", ambulanceHandler.GetAmbulances)
			ambulanceRoutes.GET("/available", ambulanceHandler.GetAvailableAmbulances)
			ambulanceRoutes.GET("/:id", ambulanceHandler.GetAmbulanceByID)

			fleetRoutes := ambulanceRoutes.Group("")
			fleetRoutes.Use(middleware.RoleAuthMiddleware(models.RoleDispatcher, models.RoleAdmin))
			{
				fleetRoutes.POST("", ambulanceHandler.CreateAmbulance)
				fleetRoutes.PUT("/:id", ambulanceHandler.UpdateAmbulance)
				fleetRoutes.PATCH("/:id/status", ambulanceHandler.UpdateAmbulanceStatus)
				fleetRoutes.PATCH("/:id/available", ambulanceHandler.MarkAvailable)
				fleetRoutes.DELETE("/:id", ambulanceHandler.DeleteAmbulance)
			}
		}

		// Request routes
		requestRoutes := private.Group("/requests")
		{
			requestRoutes.GET("/my", requestHandler.GetMyRequests)
			requestRoutes.GET("/:id", requestHandler.GetRequestByID)
			requestRoutes.GET("/:id/status-history", requestHandler.GetStatusHistory)

			staffRoutes := requestRoutes.Group("")
			staffRoutes.Use(middleware.RoleAuthMiddleware(models.RoleDispatcher, models.RoleAdmin))
			{
				staffRoutes.GET("", requestHandler.GetRequests)
				staffRoutes.GET("/user/:userId", requestHandler.GetRequestsByUser)
				staffRoutes.GET("/patient/:patientName", requestHandler.GetRequestsByPatient)
				staffRoutes.PATCH("/:id/status", requestHandler.UpdateRequestStatus)
				staffRoutes.PATCH("/:id/assign", requestHandler.AssignAmbulance)
			}
		}

		// Dispatch action
		dispatchRoutes := private.Group("/dispatch")
		dispatchRoutes.Use(middleware.RoleAuthMiddleware(models.RoleDispatcher, models.RoleAdmin))
		{
			dispatchRoutes.POST("/:requestId", dispatchHandler.DispatchAmbulance)
		}

		// Patient record routes (dispatcher and admin)
		patientRoutes := private.Group("/patients")
		patientRoutes.Use(middleware.RoleAuthMiddleware(models.RoleDispatcher, models.RoleAdmin))
		{
			patientRoutes.GET("", patientHandler.GetPatients)
			patientRoutes.GET("/:id", patientHandler.GetPatientByID)
			patientRoutes.POST("", patientHandler.CreatePatient)
			patientRoutes.PUT("/:id", patientHandler.UpdatePatient)
			patientRoutes.PATCH("/:id/archive", patientHandler.ArchivePatient)
			patientRoutes.DELETE("/:id", patientHandler.DeletePatient)
		}

		// Service history routes (dispatcher and admin)
		serviceRoutes := private.Group("/service-history")
		serviceRoutes.Use(middleware.RoleAuthMiddleware(models.RoleDispatcher, models.RoleAdmin))
		{
			serviceRoutes.GET("", serviceHistoryHandler.GetServiceHistory)
			serviceRoutes.GET("/status/:status", serviceHistoryHandler.GetServiceHistoryByStatus)
			serviceRoutes.GET("/date-range", serviceHistoryHandler.GetServiceHistoryByDateRange)
			serviceRoutes.PATCH("/:id/status", serviceHistoryHandler.UpdateServiceStatus)
			serviceRoutes.PATCH("/:id/complete", serviceHistoryHandler.MarkCompleted)
		}
	}

	// Live updates push channel. Consoles authenticate the upgrade with the
	// same bearer token as the REST surface.
	router.GET("/ws/live-updates", middleware.AuthMiddleware(cfg), hub.HandleConnect)

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
