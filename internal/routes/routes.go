package routes

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"smart-health-server/internal/config"
	"smart-health-server/internal/handlers"
	"smart-health-server/internal/metrics"
	"smart-health-server/internal/middleware"
	"smart-health-server/internal/models"
	"smart-health-server/internal/storage"
	"smart-health-server/internal/utils"
)

// Dependencies are the collaborators the HTTP layer is built from.
type Dependencies struct {
	DB        *gorm.DB
	Cfg       *config.Config
	Logger    zerolog.Logger
	Notifier  handlers.AppointmentNotifier
	Assistant handlers.Assistant
	Publisher handlers.JobPublisher
	Storage   storage.Store
	Bookings  *metrics.BookingMetrics
	Gatherer  prometheus.Gatherer
}

// NewRouter builds the engine with the global middleware and all routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.Recovery(deps.Logger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{deps.Cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}
	router.Use(cors.New(corsConfig))

	SetupRoutes(router, deps)
	return router
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	utils.RegisterValidators()

	db, cfg := deps.DB, deps.Cfg
	authHandler := handlers.NewAuthHandler(db, cfg)
	userHandler := handlers.NewUserHandler(db, cfg)
	doctorHandler := handlers.NewDoctorHandler(db, cfg)
	patientHandler := handlers.NewPatientHandler(db)
	appointmentHandler := handlers.NewAppointmentHandler(db, cfg, deps.Notifier, deps.Bookings, deps.Logger.With().Str("component", "appointments").Logger())
	reportHandler := handlers.NewReportHandler(db, deps.Publisher, deps.Storage, deps.Logger.With().Str("component", "reports").Logger())
	aiHandler := handlers.NewAIHandler(db, deps.Assistant, deps.Logger.With().Str("component", "ai").Logger())

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg, db))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		userRoutes := private.Group("/users")
		userRoutes.Use(middleware.RequireCapability(models.CapManageUsers))
		{
			userRoutes.POST("", userHandler.CreateUser)
			userRoutes.GET("", userHandler.GetUsers)
			userRoutes.GET("/:id", userHandler.GetUserByID)
			userRoutes.PUT("/:id", userHandler.UpdateUser)
			userRoutes.DELETE("/:id", userHandler.DeactivateUser)
		}

		// Any authenticated user may browse doctors.
		private.GET("/doctors", doctorHandler.ListDoctors)

		doctorRoutes := private.Group("/doctors")
		doctorRoutes.Use(middleware.RequireCapability(models.CapManageSchedule))
		{
			doctorRoutes.GET("/profile", doctorHandler.GetProfile)
			doctorRoutes.PUT("/profile", doctorHandler.UpdateProfile)

			doctorRoutes.GET("/availability", doctorHandler.ListAvailability)
			doctorRoutes.POST("/availability", doctorHandler.CreateAvailability)
			doctorRoutes.GET("/availability/:id", doctorHandler.GetAvailability)
			doctorRoutes.PUT("/availability/:id", doctorHandler.UpdateAvailability)
			doctorRoutes.DELETE("/availability/:id", doctorHandler.DeleteAvailability)

			doctorRoutes.GET("/appointments", appointmentHandler.ListDoctorAppointments)
			doctorRoutes.PATCH("/appointments/:id/status", appointmentHandler.UpdateAppointmentStatus)
		}

		patientRoutes := private.Group("/patients")
		patientRoutes.Use(middleware.RequireCapability(models.CapBookAppointments))
		{
			patientRoutes.GET("/profile", patientHandler.GetProfile)
			patientRoutes.PUT("/profile", patientHandler.UpdateProfile)
		}

		appointmentRoutes := private.Group("/appointments")
		appointmentRoutes.Use(middleware.RequireCapability(models.CapBookAppointments))
		{
			appointmentRoutes.POST("", appointmentHandler.CreateAppointment)
			appointmentRoutes.GET("", appointmentHandler.ListPatientAppointments)
			appointmentRoutes.PATCH("/:id/cancel", appointmentHandler.CancelAppointment)
		}

		adminRoutes := private.Group("/admin")
		adminRoutes.Use(middleware.RequireCapability(models.CapViewAllBookings))
		{
			adminRoutes.GET("/appointments", appointmentHandler.ListAllAppointments)
		}

		reportRoutes := private.Group("/reports")
		reportRoutes.Use(middleware.RequireCapability(models.CapGenerateReports))
		{
			reportRoutes.POST("/generate", reportHandler.GenerateReport)
			reportRoutes.GET("/:id/status", reportHandler.ReportStatus)
			reportRoutes.GET("/:id/download", reportHandler.DownloadReport)
		}

		aiRoutes := private.Group("/ai")
		aiRoutes.Use(middleware.RequireCapability(models.CapUseAIAssistant))
		aiRoutes.Use(middleware.NewUserRateLimiter(cfg.AIRatePerMinute).Middleware())
		{
			aiRoutes.POST("/symptom-checker", aiHandler.SymptomChecker)
			aiRoutes.POST("/medical-summary", aiHandler.MedicalSummary)
			aiRoutes.POST("/doctor-recommendation", aiHandler.DoctorRecommendation)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler(deps.Gatherer)))
	}
}
