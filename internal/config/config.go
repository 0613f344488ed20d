package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Auth     AuthConfig
	Razorpay RazorpayConfig
	Mail     MailConfig
	Kafka    KafkaConfig
	Orders   OrdersConfig
	Upload   UploadConfig
}

type ServerConfig struct {
	Port string
	Env  string
	// CORSAllowedOrigins is the comma-separated list of origins allowed in
	// production; development accepts any origin.
	CORSAllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

// AuthConfig selects how new accounts prove ownership of their identifier:
// "password", "email", or "phone".
type AuthConfig struct {
	Verification string
	// PhoneVerifyURL is the external OTP issuer checked under the phone
	// strategy.
	PhoneVerifyURL string
}

type RazorpayConfig struct {
	KeyID     string
	KeySecret string
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	FromName string
	// ClientURL is the frontend base used in reset and verification links.
	ClientURL string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type OrdersConfig struct {
	// StrictTransitions enforces the forward fulfillment flow instead of
	// allowing any status change.
	StrictTransitions bool
}

type UploadConfig struct {
	Dir string
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("AUTH_VERIFICATION", "password")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("SMTP_FROM_NAME", "Storefront")
	viper.SetDefault("CLIENT_URL", "http://localhost:3000")
	viper.SetDefault("KAFKA_TOPIC", "storefront.orders")
	viper.SetDefault("ORDERS_STRICT_TRANSITIONS", false)
	viper.SetDefault("UPLOAD_DIR", "uploads")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	var brokers []string
	if raw := viper.GetString("KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	var corsOrigins []string
	if raw := viper.GetString("CORS_ALLOWED_ORIGINS"); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				corsOrigins = append(corsOrigins, o)
			}
		}
	}

	return &Config{
		Server: ServerConfig{
			Port:               viper.GetString("SERVER_PORT"),
			Env:                viper.GetString("SERVER_ENV"),
			CORSAllowedOrigins: corsOrigins,
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("JWT_SECRET"),
		},
		Auth: AuthConfig{
			Verification:   viper.GetString("AUTH_VERIFICATION"),
			PhoneVerifyURL: viper.GetString("AUTH_PHONE_VERIFY_URL"),
		},
		Razorpay: RazorpayConfig{
			KeyID:     viper.GetString("RAZORPAY_KEY_ID"),
			KeySecret: viper.GetString("RAZORPAY_KEY_SECRET"),
		},
		Mail: MailConfig{
			Host:      viper.GetString("SMTP_HOST"),
			Port:      viper.GetInt("SMTP_PORT"),
			Username:  viper.GetString("SMTP_USERNAME"),
			Password:  viper.GetString("SMTP_PASSWORD"),
			FromName:  viper.GetString("SMTP_FROM_NAME"),
			ClientURL: viper.GetString("CLIENT_URL"),
		},
		Kafka: KafkaConfig{
			Brokers: brokers,
			Topic:   viper.GetString("KAFKA_TOPIC"),
		},
		Orders: OrdersConfig{
			StrictTransitions: viper.GetBool("ORDERS_STRICT_TRANSITIONS"),
		},
		Upload: UploadConfig{
			Dir: viper.GetString("UPLOAD_DIR"),
		},
	}
}
