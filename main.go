package main

import (
	"log"

	"github.com/tripplekay/KayCutts/config"
	"github.com/tripplekay/KayCutts/controllers"
	"github.com/tripplekay/KayCutts/kai"
	"github.com/tripplekay/KayCutts/mpesa"
	"github.com/tripplekay/KayCutts/notify"
	"github.com/tripplekay/KayCutts/routes"
	"github.com/tripplekay/KayCutts/store"
	"github.com/tripplekay/KayCutts/utils"
)

func main() {
	// Initialize logger
	if err := utils.InitLogger(); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}

	// Load environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.LogError("Error loading config: %v", err)
		log.Fatal("Error loading config:", err)
	}

	// Pick the booking store
	var bookings store.BookingStore
	switch cfg.StoreDriver {
	case "postgres":
		if err := config.InitDB(cfg); err != nil {
			utils.LogError("Failed to initialize database: %v", err)
			log.Fatal("Failed to initialize database:", err)
		}
		bookings = store.NewGormStore(config.DB)
		utils.LogInfo("Using Postgres booking store")
	default:
		bookings = store.NewFileStore(cfg.BookingsFile)
		utils.LogInfo("Using file booking store at %s", cfg.BookingsFile)
	}

	// Payment gateway client
	gateway := mpesa.NewClient(mpesa.Config{
		ConsumerKey:    cfg.MpesaConsumerKey,
		ConsumerSecret: cfg.MpesaConsumerSecret,
		Shortcode:      cfg.MpesaShortcode,
		Passkey:        cfg.MpesaPasskey,
		CallbackURL:    cfg.MpesaCallbackURL,
		BaseURL:        cfg.MpesaBaseURL,
	})

	// Notification dispatcher
	mailer := &notify.SMTPMailer{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}
	texter := notify.NewAfricasTalkingTexter(cfg.SMSAPIKey, cfg.SMSUsername, cfg.SMSSenderID, cfg.SMSBaseURL)
	dispatcher := notify.NewDispatcher(mailer, texter, 0)
	defer dispatcher.Close()

	// Chat assistant
	assistant := kai.NewClient(cfg.OpenAIKey, cfg.OpenAIModel)

	controllers.Init(controllers.Deps{
		Store:    bookings,
		Mpesa:    gateway,
		Notifier: dispatcher,
		Kai:      assistant,
		Cfg:      cfg,
	})

	// Set up router
	router := routes.SetupRouter(cfg)

	utils.LogInfo("Server starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		utils.LogError("Error starting server: %v", err)
		log.Fatal("Error starting server:", err)
	}
}
