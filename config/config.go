package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"

	ProviderPinata     = "pinata"
	ProviderCloudinary = "cloudinary"
	ProviderMinio      = "minio"
)

type Config struct {
	ServerPort string
	BaseURL    string
	LogLevel   string

	StoreDriver string
	DatabaseDSN string
	MongoURI    string
	MongoDB     string

	AccessSecret string
	TokenTTL     time.Duration
	BcryptCost   int

	UploadProvider   string
	PinataJWT        string
	PinataAPIURL     string
	PinataGatewayURL string
	CloudinaryUrl    string
	MinioEndpoint    string
	MinioAccessKey   string
	MinioSecretKey   string
	MinioBucket      string
	MinioUseSSL      bool
	MinioPublicURL   string
	LogoMaxWidth     int

	KafkaBroker   string
	KafkaTopic    string
	KafkaUsername string
	KafkaPassword string

	RedisURL        string
	RateLimitMax    int
	RateLimitWindow time.Duration
}

func LoadConfig() Config {
	if os.Getenv("ENV") != "prod" {
		if err := godotenv.Overload(); err != nil {
			slog.Warn("env file not loaded", "err", err)
		}
	}

	return Config{
		ServerPort: getEnv("SERVER_PORT", ":3000"),
		BaseURL:    getEnv("BASE_URL", "*"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", DriverPostgres)),
		DatabaseDSN: os.Getenv("DATABASE_DSN"),
		MongoURI:    os.Getenv("MONGO_URI"),
		MongoDB:     getEnv("MONGO_DB", "identity"),

		AccessSecret: os.Getenv("ACCESS_SECRET"),
		TokenTTL:     getDuration("TOKEN_TTL", 24*time.Hour),
		BcryptCost:   getInt("BCRYPT_COST", 10),

		UploadProvider:   strings.ToLower(getEnv("UPLOAD_PROVIDER", ProviderPinata)),
		PinataJWT:        os.Getenv("PINATA_JWT"),
		PinataAPIURL:     getEnv("PINATA_API_URL", "https://api.pinata.cloud"),
		PinataGatewayURL: os.Getenv("PINATA_GATEWAY_URL"),
		CloudinaryUrl:    os.Getenv("CLOUDINARY_URL"),
		MinioEndpoint:    os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey:   os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:   os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:      getEnv("MINIO_BUCKET", "company-logos"),
		MinioUseSSL:      getBool("MINIO_USE_SSL", true),
		MinioPublicURL:   os.Getenv("MINIO_PUBLIC_URL"),
		LogoMaxWidth:     getInt("LOGO_MAX_WIDTH", 512),

		KafkaBroker:   os.Getenv("KAFKA_BROKER"),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "identity.events"),
		KafkaUsername: os.Getenv("KAFKA_USERNAME"),
		KafkaPassword: os.Getenv("KAFKA_PASSWORD"),

		RedisURL:        os.Getenv("REDIS_URL"),
		RateLimitMax:    getInt("RATE_LIMIT_MAX", 10),
		RateLimitWindow: getDuration("RATE_LIMIT_WINDOW", time.Minute),
	}
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.AccessSecret) == "" {
		errs = append(errs, errors.New("ACCESS_SECRET is required"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}

	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("DATABASE_DSN is required for the postgres driver"))
		}
	case DriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	switch c.UploadProvider {
	case ProviderPinata:
		if c.PinataJWT == "" {
			errs = append(errs, errors.New("PINATA_JWT is required for the pinata provider"))
		}
		if c.PinataGatewayURL == "" {
			errs = append(errs, errors.New("PINATA_GATEWAY_URL is required for the pinata provider"))
		}
	case ProviderCloudinary:
		if c.CloudinaryUrl == "" {
			errs = append(errs, errors.New("CLOUDINARY_URL is required for the cloudinary provider"))
		}
	case ProviderMinio:
		if c.MinioEndpoint == "" {
			errs = append(errs, errors.New("MINIO_ENDPOINT is required for the minio provider"))
		}
		if c.MinioAccessKey == "" || c.MinioSecretKey == "" {
			errs = append(errs, errors.New("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required for the minio provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown UPLOAD_PROVIDER %q", c.UploadProvider))
	}

	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

func getBool(key string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}
