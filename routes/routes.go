package routes

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/tripplekay/KayCutts/config"
	"github.com/tripplekay/KayCutts/controllers"
	"github.com/tripplekay/KayCutts/middleware"
	"github.com/tripplekay/KayCutts/utils"
)

// SetupRouter initializes and returns the Gin router with all routes
func SetupRouter(cfg *config.Config) *gin.Engine {
	router := gin.New()

	router.Use(utils.LoggerMiddleware())
	router.Use(utils.RecoveryMiddleware())
	router.Use(utils.RequestIDMiddleware())
	router.Use(utils.SecurityHeadersMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Razorpay-Signature"},
		ExposeHeaders: []string{"Content-Disposition"},
	}))

	router.GET("/health", controllers.HealthCheck)
	router.GET("/metrics", middleware.PrometheusHandler())

	adminOnly := middleware.AdminAuthMiddleware(cfg.AdminJWTSecret)

	api := router.Group("/api")
	{
		api.POST("/bookings", controllers.CreateBooking)
		api.GET("/bookings", adminOnly, controllers.ListBookings)
		api.GET("/bookings/:orderId", controllers.GetBooking)
		api.POST("/bookings/:orderId/mark-paid", adminOnly, controllers.MarkBookingPaid)

		api.POST("/mpesa-initiate", controllers.InitiateMpesaPayment)
		api.POST("/mpesa_payment", controllers.MpesaPaymentCompat)
		api.POST("/mpesa-query", controllers.QueryMpesaPayment)
		api.POST("/mpesa-callback", controllers.MpesaCallback)

		api.POST("/card/create-order", controllers.CreateCardOrder)
		api.POST("/card-webhook", controllers.CardWebhook)

		api.POST("/kai-chat", controllers.KaiChat)
		api.POST("/quiz-claim", controllers.SubmitQuizClaim)

		admin := api.Group("/admin")
		admin.Use(adminOnly)
		{
			admin.GET("/unmatched-callbacks", controllers.ListUnmatchedCallbacks)
			admin.GET("/bookings/export/excel", controllers.DownloadBookingsReportExcel)
			admin.GET("/bookings/export/pdf", controllers.DownloadBookingsReportPDF)
		}
	}

	// Legacy alias kept for the original chat widget.
	router.POST("/chat", controllers.KaiChat)

	return router
}
