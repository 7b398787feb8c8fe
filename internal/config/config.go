package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Provider holds the credentials for the business messaging API. Read-only
// after Load; the core never mutates it.
type Provider struct {
	BaseURL       string
	APIVersion    string
	Token         string
	PhoneNumberID string
	VerifyToken   string
	SendTimeout   time.Duration
}

// Media holds the object-storage endpoint and URL-signing settings.
type Media struct {
	Endpoint string
	Bucket   string
	SignKey  string
	URLTTL   time.Duration
}

type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string
	JWTSecret   string

	// BusinessPartyID is the party identifier of the internal account that
	// owns the messaging credentials. Resolved here once and passed down,
	// never looked up ambiently inside call paths.
	BusinessPartyID string

	Provider Provider
	Media    Media
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading configuration from environment")
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     mustGetEnv("DATABASE_URL"),
		RedisURL:        getEnv("REDIS_URL", "localhost:6379"),
		JWTSecret:       mustGetEnv("JWT_SECRET"),
		BusinessPartyID: mustGetEnv("BUSINESS_PARTY_ID"),
		Provider: Provider{
			BaseURL:       getEnv("PROVIDER_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getEnv("PROVIDER_API_VERSION", "v18.0"),
			Token:         mustGetEnv("PROVIDER_TOKEN"),
			PhoneNumberID: mustGetEnv("PROVIDER_PHONE_NUMBER_ID"),
			VerifyToken:   mustGetEnv("WEBHOOK_VERIFY_TOKEN"),
			SendTimeout:   10 * time.Second,
		},
		Media: Media{
			Endpoint: getEnv("MEDIA_ENDPOINT", ""),
			Bucket:   getEnv("MEDIA_BUCKET", "chat-media"),
			SignKey:  getEnv("MEDIA_SIGN_KEY", ""),
			URLTTL:   15 * time.Minute,
		},
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func mustGetEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("Required environment variable %s is not set", key)
	}
	return value
}
