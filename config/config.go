package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Port string
	Env  string

	// Booking store
	StoreDriver  string // "file" (default) or "postgres"
	BookingsFile string
	QuizClaims   string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// M-Pesa Daraja API
	MpesaConsumerKey    string
	MpesaConsumerSecret string
	MpesaShortcode      string
	MpesaPasskey        string
	MpesaCallbackURL    string
	MpesaBaseURL        string

	// Card rail (Razorpay)
	RazorpayKey           string
	RazorpaySecret        string
	RazorpayWebhookSecret string

	// Email (SMTP)
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	// SMS (Africa's Talking)
	SMSAPIKey   string
	SMSUsername string
	SMSSenderID string
	SMSBaseURL  string

	// Kai assistant
	OpenAIKey   string
	OpenAIModel string

	// Admin API
	AdminJWTSecret string

	// Google Calendar (optional, event creation is not fully configured)
	GoogleCalendarID  string
	CalendarOnPayment bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// A missing .env file is fine in production where the environment is
	// provided by the process manager.
	_ = godotenv.Load()

	config := &Config{
		Port: getEnv("PORT", "5000"),
		Env:  os.Getenv("ENV"),

		StoreDriver:  getEnv("STORE_DRIVER", "file"),
		BookingsFile: getEnv("BOOKINGS_FILE", "bookings.json"),
		QuizClaims:   getEnv("QUIZ_CLAIMS_FILE", "quiz_claims.json"),

		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),

		MpesaConsumerKey:    os.Getenv("MPESA_CONSUMER_KEY"),
		MpesaConsumerSecret: os.Getenv("MPESA_CONSUMER_SECRET"),
		MpesaShortcode:      getEnv("MPESA_SHORTCODE", "174379"),
		MpesaPasskey:        os.Getenv("MPESA_PASSKEY"),
		MpesaCallbackURL:    getEnv("MPESA_CALLBACK_URL", "http://localhost:5000/api/mpesa-callback"),
		MpesaBaseURL:        getEnv("MPESA_BASE_URL", "https://sandbox.safaricom.co.ke"),

		RazorpayKey:           os.Getenv("RAZORPAY_KEY"),
		RazorpaySecret:        os.Getenv("RAZORPAY_SECRET"),
		RazorpayWebhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     getEnv("SMTP_FROM", os.Getenv("SMTP_USERNAME")),

		SMSAPIKey:   os.Getenv("SMS_API_KEY"),
		SMSUsername: getEnv("SMS_USERNAME", "sandbox"),
		SMSSenderID: getEnv("SMS_SENDER_ID", "TripleKayCuts"),
		SMSBaseURL:  getEnv("SMS_BASE_URL", "https://api.sandbox.africastalking.com"),

		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIModel: getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		AdminJWTSecret: os.Getenv("ADMIN_JWT_SECRET"),

		GoogleCalendarID:  os.Getenv("GOOGLE_CALENDAR_ID"),
		CalendarOnPayment: getEnvBool("GOOGLE_CALENDAR_ON_PAYMENT", false),
	}

	return config, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
