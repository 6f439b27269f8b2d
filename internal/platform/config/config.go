package config

import (
	"errors"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreDriverMongo    = "mongo"
	StoreDriverPostgres = "postgres"
)

// Config holds all configuration for the webhook relay service.
// Keys are read from the environment without a prefix so that the
// variable names used by existing deployments (MONGODB_URI, WHATSAPP_TOKEN,
// WHATSAPP_PHONE_ID, VERIFY_TOKEN) keep working.
type Config struct {
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	ServerPort      int           `mapstructure:"SERVER_PORT" validate:"required,min=1,max=65535"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	// Persistence
	StoreDriver         string        `mapstructure:"STORE_DRIVER" validate:"oneof=mongo postgres"`
	StoreConnectTimeout time.Duration `mapstructure:"STORE_CONNECT_TIMEOUT"`
	MongoURI            string        `mapstructure:"MONGODB_URI" validate:"required_if=StoreDriver mongo"`
	MongoDatabase       string        `mapstructure:"MONGODB_DATABASE" validate:"required_if=StoreDriver mongo"`
	MongoCollection     string        `mapstructure:"MONGODB_COLLECTION" validate:"required_if=StoreDriver mongo"`
	MongoTLS            bool          `mapstructure:"MONGODB_TLS"`
	PostgresDSN         string        `mapstructure:"POSTGRES_DSN" validate:"required_if=StoreDriver postgres"`

	// Event bus; empty disables event announcements.
	NATSURL string `mapstructure:"NATS_URL"`

	// WhatsApp Cloud API
	WhatsAppToken      string        `mapstructure:"WHATSAPP_TOKEN" validate:"required"`
	WhatsAppPhoneID    string        `mapstructure:"WHATSAPP_PHONE_ID" validate:"required"`
	WhatsAppAPIBaseURL string        `mapstructure:"WHATSAPP_API_BASE_URL" validate:"required,url"`
	WhatsAppAPIVersion string        `mapstructure:"WHATSAPP_API_VERSION" validate:"required"`
	WhatsAppAppSecret  string        `mapstructure:"WHATSAPP_APP_SECRET"`
	SendTimeout        time.Duration `mapstructure:"SEND_TIMEOUT"`

	// Webhook
	VerifyToken            string        `mapstructure:"VERIFY_TOKEN" validate:"required"`
	DedupeWindow           time.Duration `mapstructure:"DEDUPE_WINDOW" validate:"min=0"`
	StartupNotifyRecipient string        `mapstructure:"STARTUP_NOTIFY_RECIPIENT"`
}

var validate = validator.New()

// Load reads configuration from defaults, an optional configs/config.defaults.yaml,
// an optional .env file and the process environment (highest precedence).
func Load(serviceName string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	v.SetConfigName("config.defaults")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../configs")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		log.Printf("Base configuration file ('config.defaults.yaml') not found for %s; using defaults and environment variables.", serviceName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	return &cfg, nil
}

// Every key needs a default (even an empty one) so AutomaticEnv values are
// picked up by Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVER_PORT", 3000)
	v.SetDefault("SHUTDOWN_TIMEOUT", 10*time.Second)

	v.SetDefault("STORE_DRIVER", StoreDriverMongo)
	v.SetDefault("STORE_CONNECT_TIMEOUT", 30*time.Second)
	v.SetDefault("MONGODB_URI", "")
	v.SetDefault("MONGODB_DATABASE", "whatsappBot")
	v.SetDefault("MONGODB_COLLECTION", "messages")
	v.SetDefault("MONGODB_TLS", true)
	v.SetDefault("POSTGRES_DSN", "")

	v.SetDefault("NATS_URL", "")

	v.SetDefault("WHATSAPP_TOKEN", "")
	v.SetDefault("WHATSAPP_PHONE_ID", "")
	v.SetDefault("WHATSAPP_API_BASE_URL", "https://graph.facebook.com")
	v.SetDefault("WHATSAPP_API_VERSION", "v22.0")
	v.SetDefault("WHATSAPP_APP_SECRET", "")
	v.SetDefault("SEND_TIMEOUT", 30*time.Second)

	v.SetDefault("VERIFY_TOKEN", "")
	v.SetDefault("DEDUPE_WINDOW", time.Duration(0))
	v.SetDefault("STARTUP_NOTIFY_RECIPIENT", "")
}

// ValidateForServe checks every key the webhook server needs.
func (c *Config) ValidateForServe() error {
	return validate.Struct(c)
}

// ValidateForSend checks only the keys needed to call the Send API.
func (c *Config) ValidateForSend() error {
	return validate.StructPartial(c, "WhatsAppToken", "WhatsAppPhoneID", "WhatsAppAPIBaseURL", "WhatsAppAPIVersion")
}
