package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv 从 .env 文件加载环境变量（文件不存在时忽略），不覆盖已有变量
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// Config 服务端运行参数
type Config struct {
	TCPAddr  string
	HTTPAddr string

	LogFile   string
	LogLevel  string
	LogStderr bool

	RoundSeconds         int
	RoundEndDelaySeconds int
	MinPlayers           int
	RoundsPerPlayer      int

	SendQueueSize      int
	MaxFrameBytes      int
	RateLimitPerSecond float64
	RateLimitBurst     int

	WordsFile  string
	RandomSeed int64

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	ResultsKeep    int
	ResultsChannel string
}

func Default() Config {
	return Config{
		TCPAddr:              ":5555",
		HTTPAddr:             ":8080",
		LogFile:              "app.log",
		LogLevel:             "debug",
		LogStderr:            true,
		RoundSeconds:         90,
		RoundEndDelaySeconds: 5,
		MinPlayers:           2,
		RoundsPerPlayer:      3,
		SendQueueSize:        256,
		MaxFrameBytes:        64 * 1024,
		RateLimitPerSecond:   100,
		RateLimitBurst:       200,
		ResultsKeep:          50,
		ResultsChannel:       "scribble:results",
	}
}

// Load 以 Default 为基础读取环境变量，非法值保留默认
func Load() Config {
	cfg := Default()
	if raw := os.Getenv("TCP_ADDR"); raw != "" {
		cfg.TCPAddr = raw
	}
	if raw := os.Getenv("HTTP_ADDR"); raw != "" {
		cfg.HTTPAddr = raw
	}
	if raw := os.Getenv("LOG_FILE"); raw != "" {
		cfg.LogFile = raw
	}
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		cfg.LogLevel = strings.ToLower(raw)
	}
	if raw := os.Getenv("LOG_STDERR"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.LogStderr = value
		}
	}
	cfg.RoundSeconds = positiveInt("ROUND_SECONDS", cfg.RoundSeconds)
	cfg.RoundEndDelaySeconds = nonNegativeInt("ROUND_END_DELAY_SECONDS", cfg.RoundEndDelaySeconds)
	cfg.MinPlayers = positiveInt("MIN_PLAYERS", cfg.MinPlayers)
	cfg.RoundsPerPlayer = positiveInt("ROUNDS_PER_PLAYER", cfg.RoundsPerPlayer)
	cfg.SendQueueSize = positiveInt("SEND_QUEUE_SIZE", cfg.SendQueueSize)
	cfg.MaxFrameBytes = positiveInt("MAX_FRAME_BYTES", cfg.MaxFrameBytes)
	if raw := os.Getenv("RATE_LIMIT_PER_SECOND"); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil && value > 0 {
			cfg.RateLimitPerSecond = value
		}
	}
	cfg.RateLimitBurst = positiveInt("RATE_LIMIT_BURST", cfg.RateLimitBurst)
	if raw := os.Getenv("WORDS_FILE"); raw != "" {
		cfg.WordsFile = raw
	}
	if raw := os.Getenv("RANDOM_SEED"); raw != "" {
		if value, err := strconv.ParseInt(raw, 10, 64); err == nil {
			cfg.RandomSeed = value
		}
	}
	if raw := os.Getenv("REDIS_ADDR"); raw != "" {
		cfg.RedisAddr = raw
	}
	if raw := os.Getenv("REDIS_PASSWORD"); raw != "" {
		cfg.RedisPassword = raw
	}
	cfg.RedisDB = nonNegativeInt("REDIS_DB", cfg.RedisDB)
	cfg.ResultsKeep = positiveInt("RESULTS_KEEP", cfg.ResultsKeep)
	if raw := os.Getenv("RESULTS_CHANNEL"); raw != "" {
		cfg.ResultsChannel = raw
	}
	return cfg
}

func positiveInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			return value
		}
	}
	return fallback
}

func nonNegativeInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			return value
		}
	}
	return fallback
}
