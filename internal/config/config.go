package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"guidance-replay/internal/route"
)

// DefaultMaxEvents caps /api/v1/events responses when MAX_EVENTS is unset.
const DefaultMaxEvents = 100000

type Config struct {
	DatabaseURL           string
	NATSURL               string
	NATSSubjectPrefix     string
	TickInterval          time.Duration
	SpeedMultiplier       float64
	Spacing               route.Spacing
	AccelRate             float64
	RouteFile             string
	RouteID               string
	RoutesRefreshInterval time.Duration
	LoopReplay            bool
	LogNATSSubjects       bool
	LogDevelopment        bool
	MetricsAddr           string
	APIAddr               string
	MaxEvents             int
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	// Database URL: prefer DATABASE_URL / PG_DSN, else build from PG* vars when
	// PGDATABASE is set. Empty disables the routes table source.
	cfg.DatabaseURL = firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("PG_DSN"))
	if cfg.DatabaseURL == "" {
		if db := os.Getenv("PGDATABASE"); db != "" {
			host := getenvDefault("PGHOST", "127.0.0.1")
			port := getenvDefault("PGPORT", "5432")
			user := getenvDefault("PGUSER", "postgres")
			pass := os.Getenv("PGPASSWORD")
			sslmode := getenvDefault("PGSSLMODE", "disable")
			if pass != "" {
				cfg.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode)
			} else {
				cfg.DatabaseURL = fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode)
			}
		}
	}

	cfg.NATSURL = getenvDefault("NATS_URL", "nats://127.0.0.1:4222")
	cfg.NATSSubjectPrefix = strings.Trim(getenvDefault("NATS_SUBJECT_PREFIX", "replay"), ".")

	// Tick interval
	if v := os.Getenv("TICK_INTERVAL_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("invalid TICK_INTERVAL_MS: %q", v)
		}
		cfg.TickInterval = time.Duration(ms) * time.Millisecond
	} else {
		cfg.TickInterval = time.Second
	}

	// Speed multiplier
	if v := os.Getenv("SPEED_MULTIPLIER"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid SPEED_MULTIPLIER: %q", v)
		}
		cfg.SpeedMultiplier = f
	} else {
		cfg.SpeedMultiplier = 1.0
	}

	spacing, err := route.ParseSpacing(os.Getenv("SPACING"))
	if err != nil {
		return nil, fmt.Errorf("invalid SPACING: %w", err)
	}
	cfg.Spacing = spacing

	if v := os.Getenv("ACCEL_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid ACCEL_RATE: %q", v)
		}
		cfg.AccelRate = f
	} else {
		cfg.AccelRate = route.DefaultAccelRate
	}

	cfg.RouteFile = os.Getenv("ROUTE_FILE")
	cfg.RouteID = os.Getenv("ROUTE_ID")

	// Routes refresh interval (seconds); 0 disables polling the routes table
	if v := os.Getenv("ROUTES_REFRESH_INTERVAL_SEC"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec < 0 {
			return nil, fmt.Errorf("invalid ROUTES_REFRESH_INTERVAL_SEC: %q", v)
		}
		cfg.RoutesRefreshInterval = time.Duration(sec) * time.Second
	}

	cfg.LoopReplay = parseBool(os.Getenv("LOOP_REPLAY"))
	cfg.LogNATSSubjects = parseBool(os.Getenv("LOG_NATS_SUBJECTS"))
	cfg.LogDevelopment = parseBool(os.Getenv("LOG_DEVELOPMENT"))

	// Listen addresses (e.g., ":9102"). Empty disables the server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")
	cfg.APIAddr = os.Getenv("API_ADDR")

	// Upper bound on events returned by one API request
	if v := os.Getenv("MAX_EVENTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid MAX_EVENTS: %q", v)
		}
		cfg.MaxEvents = n
	} else {
		cfg.MaxEvents = DefaultMaxEvents
	}

	if cfg.RouteFile == "" && cfg.DatabaseURL == "" && cfg.APIAddr == "" {
		return nil, errors.New("nothing to replay: set ROUTE_FILE, DATABASE_URL (or PGDATABASE) or API_ADDR")
	}

	return cfg, nil
}

// NewLogger builds the process logger.
func (c *Config) NewLogger() (*zap.Logger, error) {
	if c.LogDevelopment {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
