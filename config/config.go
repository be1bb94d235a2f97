package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultSitePath = "config/sites/vavato.yaml"

type Config struct {
	Site      SiteConfig
	Scraper   ScraperConfig
	Scheduler SchedulerConfig
	Export    ExportConfig
	HTTP      HTTPConfig
	S3        S3Config
	DBPath    string
	LogPath   string
	Location  *time.Location
}

type ScraperConfig struct {
	DelayMS      int
	RetryDelayMS int
	MaxRetries   int
}

func (c ScraperConfig) Delay() time.Duration {
	return time.Duration(c.DelayMS) * time.Millisecond
}

func (c ScraperConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMS) * time.Millisecond
}

type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
}

// Enabled reports whether the process should stay up and run on a schedule.
func (c SchedulerConfig) Enabled() bool {
	return c.Cron != "" || c.Interval > 0
}

type ExportConfig struct {
	Dir    string
	Prefix string
}

type HTTPConfig struct {
	Timeout   time.Duration
	ProxyURL  string
	UserAgent string
}

// S3Config holds configuration for S3-compatible storage. An empty bucket
// disables uploads.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// SiteConfig describes the target site and how its embedded data is laid out.
type SiteConfig struct {
	ID              string        `yaml:"id"`
	Name            string        `yaml:"name"`
	House           string        `yaml:"house"`
	BaseURL         string        `yaml:"base_url"`
	AllowedPrefixes []string      `yaml:"allowed_prefixes"`
	BlockMarker     string        `yaml:"block_marker"`
	Payload         PayloadConfig `yaml:"payload"`
}

type PayloadConfig struct {
	StartMarker  string   `yaml:"start_marker"`
	EndMarker    string   `yaml:"end_marker"`
	Selector     string   `yaml:"selector"`
	AuctionsPath []string `yaml:"auctions_path"`
	LotsPath     []string `yaml:"lots_path"`
}

// DefaultSite returns the built-in settings for vavato.com, used when no
// site file is present and as the base the site file is merged onto.
func DefaultSite() SiteConfig {
	return SiteConfig{
		ID:      "vavato",
		Name:    "Vavato",
		House:   "Vavato",
		BaseURL: "https://vavato.com",
		AllowedPrefixes: []string{
			"https://vavato.com/en/a/car-transport",
			"https://vavato.com/en/a/classic-cars",
			"https://vavato.com/en/a/auto%27s-transport",
			"https://vavato.com/en/a/motorbikes",
			"https://vavato.com/en/a/automobile-transport",
			"https://vavato.com/en/a/golf-carts",
			"https://vavato.com/en/a/recent-cars",
			"https://vavato.com/en/a/fire-brigade",
			"https://vavato.com/en/a/super-cars",
			"https://vavato.com/en/a/new-motorcycles",
			"https://vavato.com/en/a/motorcycle",
			"https://vavato.com/en/a/agricultural-and-earthmoving-machiner",
		},
		BlockMarker: "The request is blocked",
		Payload: PayloadConfig{
			StartMarker:  `type="application/json">`,
			EndMarker:    "</script>",
			AuctionsPath: []string{"props", "pageProps", "auctionList"},
			LotsPath:     []string{"props", "pageProps", "lots"},
		},
	}
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "Local"))
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}

	cfg := &Config{
		Scraper: ScraperConfig{
			DelayMS:      getEnvInt("SCRAPE_DELAY_MS", 300),
			RetryDelayMS: getEnvInt("RETRY_DELAY_MS", 1000),
			MaxRetries:   getEnvInt("MAX_RETRIES", 5),
		},
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("SCRAPE_CRON"),
		},
		Export: ExportConfig{
			Dir:    getEnv("OUTPUT_DIR", "output"),
			Prefix: getEnv("OUTPUT_PREFIX", "UpcomingAuction"),
		},
		HTTP: HTTPConfig{
			Timeout:   getEnvDuration("HTTP_TIMEOUT", 30*time.Second),
			ProxyURL:  os.Getenv("HTTP_PROXY_URL"),
			UserAgent: getEnv("HTTP_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		},
		S3: S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		},
		DBPath:   getEnv("DB_PATH", "scraper.db"),
		LogPath:  getEnv("LOG_PATH", "scraper.log"),
		Location: loc,
	}

	if interval := os.Getenv("SCRAPE_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err == nil {
			cfg.Scheduler.Interval = d
		}
	}

	site, err := LoadSite(getEnv("SITE_CONFIG", defaultSitePath))
	if err != nil {
		return nil, err
	}
	cfg.Site = site

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadSite reads a site file and overlays it on DefaultSite. A missing file
// yields the defaults.
func LoadSite(path string) (SiteConfig, error) {
	site := DefaultSite()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return site, nil
		}
		return site, err
	}

	if err := yaml.Unmarshal(data, &site); err != nil {
		return site, fmt.Errorf("parse %s: %w", path, err)
	}
	return site, nil
}

func (c *Config) Validate() error {
	if c.Site.BaseURL == "" {
		return errors.New("site base_url is required")
	}
	if len(c.Site.AllowedPrefixes) == 0 {
		return errors.New("site allowed_prefixes is empty")
	}
	p := c.Site.Payload
	if p.Selector == "" && (p.StartMarker == "" || p.EndMarker == "") {
		return errors.New("site payload needs a selector or both markers")
	}
	if c.Scraper.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES must be >= 0, got %d", c.Scraper.MaxRetries)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
