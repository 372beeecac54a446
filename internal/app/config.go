package app

import (
	"io/fs"
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
)

const (
	defaultAddr      = "0.0.0.0:8080"
	defaultUploadDir = "uploads"
	defaultStoreURL  = "memory://"
)

// Config holds the complete application configuration, loadable from
// environment variables (STOREFRONT_ prefix), flags, a .env file or YAML
// config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"Store URL: postgres://, mongodb:// or memory:// (also DATABASE_URL, MONGODB_URI)" flag:"database-url"`
	UploadDir   string `default:"uploads" usage:"Directory for uploaded files (also UPLOAD_DIR)" flag:"upload-dir"`
	Seed        bool   `default:"true" usage:"Insert the sample catalog when no products exist"`
	Upload      UploadConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
	HTTP        HTTPConfig
}

// UploadConfig limits multipart uploads.
type UploadConfig struct {
	ProductMaxBytes int64 `default:"20971520" usage:"Max body size for product creation"`
	ImageMaxBytes   int64 `default:"5242880"  usage:"Max body size for single image uploads"`
	MinImages       int   `default:"2"  usage:"Min images per new product"`
	MaxImages       int   `default:"10" usage:"Max images per new product"`
}

// RateLimitConfig controls the per-client sliding window limiter on upload
// routes.
type RateLimitConfig struct {
	Max    int           `default:"30" usage:"Max upload requests per window, 0 disables"`
	Window time.Duration `default:"1m" usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// HTTPConfig holds server timeouts.
type HTTPConfig struct {
	ReadTimeout  time.Duration `default:"30s" usage:"Max duration for reading a request, including uploads"`
	WriteTimeout time.Duration `default:"30s" usage:"Max duration for writing a response"`
}

// LoadConfig loads configuration from .env, environment variables, YAML
// config files and command line flags, then applies platform defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(os.Args[1:])
}

// loadConfig skips flag parsing when args is nil.
func loadConfig(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STOREFRONT",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
		Args:      args,
		SkipFlags: args == nil,
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables that use
// standard names like DATABASE_URL and PORT onto the STOREFRONT_-prefixed
// configuration. Explicit settings win.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		for _, key := range []string{"DATABASE_URL", "MONGODB_URI"} {
			if v := os.Getenv(key); v != "" {
				c.DatabaseURL = v
				break
			}
		}
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = defaultStoreURL
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
	if dir := os.Getenv("UPLOAD_DIR"); dir != "" && c.UploadDir == defaultUploadDir {
		c.UploadDir = dir
	}
}

func (c *Config) validate() error {
	u := c.Upload
	switch {
	case u.MinImages < 1:
		return errors.Errorf("upload: min images must be positive, got %d", u.MinImages)
	case u.MaxImages < u.MinImages:
		return errors.Errorf("upload: max images %d is below min images %d", u.MaxImages, u.MinImages)
	case u.ProductMaxBytes <= 0 || u.ImageMaxBytes <= 0:
		return errors.New("upload: body limits must be positive")
	}
	return nil
}
