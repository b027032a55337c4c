package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kolapodev-a11y/PropertyHub/internal/platform/logger"
)

const envPrefix = "PROPERTYHUB"

type Config struct {
	HTTP     HTTPConfig          `mapstructure:"http"`
	API      APIConfig           `mapstructure:"api"`
	Store    StoreConfig         `mapstructure:"store"`
	Pages    PagesConfig         `mapstructure:"pages"`
	Mongo    MongoConfig         `mapstructure:"mongo"`
	Firebase FirebaseConfig      `mapstructure:"firebase"`
	Auth     AuthConfig          `mapstructure:"auth"`
	OAuth    OAuthConfig         `mapstructure:"oauth"`
	MinIO    MinIOConfig         `mapstructure:"minio"`
	Redis    RedisConfig         `mapstructure:"redis"`
	NATS     NATSConfig          `mapstructure:"nats"`
	SMTP     SMTPConfig          `mapstructure:"smtp"`
	Maps     MapsConfig          `mapstructure:"maps"`
	Metrics  MetricsConfig       `mapstructure:"metrics"`
	Tracing  TracingConfig       `mapstructure:"tracing"`
	Logger   logger.LoggerConfig `mapstructure:"logger"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	PublicURL       string        `mapstructure:"public_url"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
	MinifyHTML      bool          `mapstructure:"minify_html"`
}

// APIConfig points the page side at the listings API. An empty BaseURL means
// the API is served by this process at HTTP.PublicURL.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type StoreConfig struct {
	Driver        string        `mapstructure:"driver"` // mongo, firestore or memory
	CallTimeout   time.Duration `mapstructure:"call_timeout"`
	ReadRetries   uint64        `mapstructure:"read_retries"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	SnapshotLimit int           `mapstructure:"snapshot_limit"`
}

type PagesConfig struct {
	LoginTarget   string        `mapstructure:"login_target"`
	SuccessDelay  time.Duration `mapstructure:"success_delay"`
	FeedHeartbeat time.Duration `mapstructure:"feed_heartbeat"`
}

type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	Database       string        `mapstructure:"database"`
	Collection     string        `mapstructure:"collection"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	MaxPoolSize    uint64        `mapstructure:"max_pool_size"`
}

type FirebaseConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
	WebAPIKey       string `mapstructure:"web_api_key"`
	IdentityURL     string `mapstructure:"identity_url"`
	TokenURL        string `mapstructure:"token_url"`
	Collection      string `mapstructure:"collection"`
}

type AuthConfig struct {
	Verifier      string        `mapstructure:"verifier"` // firebase or jwt
	JWTSecret     string        `mapstructure:"jwt_secret"`
	SessionCookie string        `mapstructure:"session_cookie"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	SecureCookies bool          `mapstructure:"secure_cookies"`
}

type OAuthConfig struct {
	GoogleClientID     string `mapstructure:"google_client_id"`
	GoogleClientSecret string `mapstructure:"google_client_secret"`
	GoogleRedirectURL  string `mapstructure:"google_redirect_url"`
}

type MinIOConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	AccessKey     string        `mapstructure:"access_key"`
	SecretKey     string        `mapstructure:"secret_key"`
	Bucket        string        `mapstructure:"bucket"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	PublicURL     string        `mapstructure:"public_url"`
	Folder        string        `mapstructure:"folder"`
	UploadTimeout time.Duration `mapstructure:"upload_timeout"`
}

type RedisConfig struct {
	Address    string        `mapstructure:"address"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	ListingTTL time.Duration `mapstructure:"listing_ttl"`
}

type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type MapsConfig struct {
	APIKey        string        `mapstructure:"api_key"`
	LookupTimeout time.Duration `mapstructure:"lookup_timeout"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.public_url", "http://localhost:8080")
	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "0s") // the feed stream is long-lived
	v.SetDefault("http.shutdown_timeout", "10s")
	v.SetDefault("http.max_upload_bytes", 32<<20)
	v.SetDefault("http.minify_html", true)

	v.SetDefault("api.base_url", "")
	v.SetDefault("api.timeout", "10s")

	v.SetDefault("store.driver", "mongo")
	v.SetDefault("store.call_timeout", "10s")
	v.SetDefault("store.read_retries", 3)
	v.SetDefault("store.retry_interval", "200ms")
	v.SetDefault("store.snapshot_limit", 0)

	v.SetDefault("pages.login_target", "/login")
	v.SetDefault("pages.success_delay", "1500ms")
	v.SetDefault("pages.feed_heartbeat", "25s")

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.username", "")
	v.SetDefault("mongo.password", "")
	v.SetDefault("mongo.database", "propertyhub")
	v.SetDefault("mongo.collection", "listings")
	v.SetDefault("mongo.connect_timeout", "10s")
	v.SetDefault("mongo.max_pool_size", 100)

	v.SetDefault("firebase.project_id", "")
	v.SetDefault("firebase.credentials_file", "")
	v.SetDefault("firebase.web_api_key", "")
	v.SetDefault("firebase.identity_url", "https://identitytoolkit.googleapis.com/v1")
	v.SetDefault("firebase.token_url", "https://securetoken.googleapis.com/v1/token")
	v.SetDefault("firebase.collection", "listings")

	v.SetDefault("auth.verifier", "firebase")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.session_cookie", "ph_session")
	v.SetDefault("auth.session_ttl", "720h")
	v.SetDefault("auth.secure_cookies", false)

	v.SetDefault("oauth.google_client_id", "")
	v.SetDefault("oauth.google_client_secret", "")
	v.SetDefault("oauth.google_redirect_url", "http://localhost:8080/auth/google/callback")

	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.bucket", "propertyhub-media")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.public_url", "")
	v.SetDefault("minio.folder", "listings")
	v.SetDefault("minio.upload_timeout", "30s")

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.listing_ttl", "1h")

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.connect_timeout", "5s")

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "PropertyHub <no-reply@propertyhub.local>")

	v.SetDefault("maps.api_key", "")
	v.SetDefault("maps.lookup_timeout", "5s")

	v.SetDefault("metrics.addr", ":9091")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4317")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output_file", "stdout")
}

// LoadConfig reads .env, then the optional YAML file at path, then PROPERTYHUB_*
// environment variables, later sources winning.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		if fi, err := os.Stat(path); err == nil {
			if fi.IsDir() {
				v.AddConfigPath(path)
				v.SetConfigName("config")
				v.SetConfigType("yaml")
			} else {
				v.SetConfigFile(path)
			}
			if err := v.ReadInConfig(); err != nil {
				var notFound viper.ConfigFileNotFoundError
				if !errors.As(err, &notFound) {
					return nil, fmt.Errorf("read config: %w", err)
				}
			}
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "mongo", "firestore", "memory":
	default:
		return fmt.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	switch c.Auth.Verifier {
	case "firebase":
		if c.Firebase.ProjectID == "" {
			return errors.New("config: firebase.project_id is required for the firebase verifier")
		}
	case "jwt":
		if c.Auth.JWTSecret == "" {
			return errors.New("config: auth.jwt_secret is required for the jwt verifier")
		}
	default:
		return fmt.Errorf("config: unknown auth.verifier %q", c.Auth.Verifier)
	}
	if c.Store.Driver == "firestore" && c.Firebase.ProjectID == "" {
		return errors.New("config: firebase.project_id is required for the firestore driver")
	}
	return nil
}

// APIBaseURL is where the page side sends listing writes.
func (c *Config) APIBaseURL() string {
	if c.API.BaseURL != "" {
		return strings.TrimRight(c.API.BaseURL, "/")
	}
	return strings.TrimRight(c.HTTP.PublicURL, "/")
}
