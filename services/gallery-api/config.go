package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	gallery "github.com/bitmark-inc/client-gallery"
	"github.com/bitmark-inc/client-gallery/upload"
)

const defaultJWTSecret = "your-secret-key"

const (
	StorageLocal      = "local"
	StorageS3         = "s3"
	StorageCloudflare = "cloudflare"
)

type Config struct {
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	Server     ServerConfig     `mapstructure:"server"`
	Store      StoreConfig      `mapstructure:"store"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Cloudflare CloudflareConfig `mapstructure:"cloudflare"`
	Gallery    GalleryConfig    `mapstructure:"gallery"`

	Sentry struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"sentry"`

	Metrics struct {
		Prefix string `mapstructure:"prefix"`
	} `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	UploadsRoute    string        `mapstructure:"uploads_route"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// AuthRateLimit is the number of register and login requests allowed per
	// second for one client address. Zero disables the limit.
	AuthRateLimit float64 `mapstructure:"auth_rate_limit"`
	AuthRateBurst int     `mapstructure:"auth_rate_burst"`
}

type StoreConfig struct {
	DBURI  string `mapstructure:"db_uri"`
	DBName string `mapstructure:"db_name"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type AuthConfig struct {
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`

	Local struct {
		Dir string `mapstructure:"dir"`
	} `mapstructure:"local"`

	S3 struct {
		Region         string `mapstructure:"region"`
		Bucket         string `mapstructure:"bucket"`
		Endpoint       string `mapstructure:"endpoint"`
		PublicURL      string `mapstructure:"public_url"`
		ForcePathStyle bool   `mapstructure:"force_path_style"`
	} `mapstructure:"s3"`
}

type CloudflareConfig struct {
	AccountID   string `mapstructure:"account_id"`
	AccountHash string `mapstructure:"account_hash"`
	APIToken    string `mapstructure:"api_token"`
}

type GalleryConfig struct {
	// StrictCover rejects cover images that are not one of the gallery images
	StrictCover bool `mapstructure:"strict_cover"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", gallery.DevelopmentEnvironment)
	v.SetDefault("debug", false)
	v.SetDefault("log.level", "info")

	v.SetDefault("server.port", ":3003")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3002"})
	v.SetDefault("server.uploads_route", upload.DefaultLocalRoute)
	v.SetDefault("server.read_timeout", "1m")
	v.SetDefault("server.write_timeout", "2m")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.auth_rate_limit", 0)
	v.SetDefault("server.auth_rate_burst", 10)

	v.SetDefault("store.db_uri", "mongodb://localhost:27017")
	v.SetDefault("store.db_name", "client-gallery")

	v.SetDefault("jwt.secret", defaultJWTSecret)
	v.SetDefault("jwt.ttl", gallery.DefaultTokenTTL.String())
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("storage.driver", StorageLocal)
	v.SetDefault("storage.local.dir", upload.DefaultLocalDir)
	v.SetDefault("storage.s3.region", "")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.public_url", "")
	v.SetDefault("storage.s3.force_path_style", false)

	v.SetDefault("cloudflare.account_id", "")
	v.SetDefault("cloudflare.account_hash", "")
	v.SetDefault("cloudflare.api_token", "")

	v.SetDefault("gallery.strict_cover", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("metrics.prefix", "gallery")
}

// loadConfig applies defaults to v and decodes it into a validated Config.
func loadConfig(v *viper.Viper) (Config, error) {
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.Environment == gallery.ProductionEnvironment &&
		(c.JWT.Secret == "" || c.JWT.Secret == defaultJWTSecret) {
		return errors.New("jwt.secret must be set in production")
	}

	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is empty")
	}

	for _, origin := range c.Server.CORSOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("invalid cors origin %q", origin)
		}
	}

	switch c.Storage.Driver {
	case StorageLocal:
	case StorageS3:
		if c.Storage.S3.Bucket == "" {
			return errors.New("storage.s3.bucket is required by the s3 driver")
		}
	case StorageCloudflare:
		if c.Cloudflare.AccountID == "" || c.Cloudflare.AccountHash == "" || c.Cloudflare.APIToken == "" {
			return errors.New("cloudflare account_id, account_hash and api_token are required by the cloudflare driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	return nil
}
