package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	ServerPort string
	FFmpegPath string
	StaticDir  string // Root directory for serving static files (web editor bundle, sfx)
	WebAppDir  string // Path to the web editor UI files

	// 数据库配置
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis配置
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	TempoCacheTTL time.Duration

	// MinIO配置
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	// 歌曲来源
	SongAPIURL     string        // Backend serving song detail by id
	SongAPITimeout time.Duration // Per-request timeout for the song backend
	CatalogPath    string        // Static TOML song catalog, hot reloaded
	SFXURL         string        // Sound effect played on note hits

	// 编辑器参数
	NominalBPM          float64 // Used when a song declares no tempo of its own
	FallbackDurationSec float64 // Used when the song detail carries no usable duration
	PixelsPerMs         float64 // Horizontal scale of the timeline at zoom 1
	ZoomMin             float64
	ZoomMax             float64
	LaneCount           int
	LaneHeightPx        float64
	SnapDivision        int
	MinHoldDurationMs   float64
	MinDetectBPM        float64
	MaxDetectBPM        float64
	SessionIdleTTL      time.Duration

	// 日志配置
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvFloat gets an environment variable as float64 or returns a default value.
func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("90s", "10m").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() *Config {
	staticBase := "static"

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		FFmpegPath: getEnv("FFMPEG_PATH", "ffmpeg"),
		StaticDir:  staticBase,
		WebAppDir:  filepath.Join("web", "editor"),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // 密码不设默认值
		DBName:     getEnv("DB_NAME", "beatstudio"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		TempoCacheTTL: getEnvDuration("TEMPO_CACHE_TTL", 7*24*time.Hour),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "beatstudio"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		SongAPIURL:     getEnv("SONG_API_URL", "http://localhost:3000/api"),
		SongAPITimeout: getEnvDuration("SONG_API_TIMEOUT", 10*time.Second),
		CatalogPath:    getEnv("CATALOG_PATH", filepath.Join("data", "catalog.toml")),
		SFXURL:         getEnv("SFX_URL", "/static/sfx/hit.wav"),

		NominalBPM:          getEnvFloat("NOMINAL_BPM", 120),
		FallbackDurationSec: getEnvFloat("FALLBACK_DURATION_SEC", 300),
		PixelsPerMs:         getEnvFloat("PIXELS_PER_MS", 0.2),
		ZoomMin:             getEnvFloat("ZOOM_MIN", 0.25),
		ZoomMax:             getEnvFloat("ZOOM_MAX", 1.0),
		LaneCount:           getEnvInt("LANE_COUNT", 4),
		LaneHeightPx:        getEnvFloat("LANE_HEIGHT_PX", 40),
		SnapDivision:        getEnvInt("SNAP_DIVISION", 4),
		MinHoldDurationMs:   getEnvFloat("MIN_HOLD_DURATION_MS", 1),
		MinDetectBPM:        getEnvFloat("MIN_DETECT_BPM", 70),
		MaxDetectBPM:        getEnvFloat("MAX_DETECT_BPM", 200),
		SessionIdleTTL:      getEnvDuration("SESSION_IDLE_TTL", 10*time.Minute),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogPath:       getEnv("LOG_PATH", filepath.Join("logs", "beatstudio.log")),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 30),
		LogCompress:   getEnvBool("LOG_COMPRESS", true),
	}
}
