// /internal/config/config.go
package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const AppName = "Voice Relay"

type Config struct {
	DiscordToken          string   `env:"DISCORD_TOKEN,required"`
	DiscordGuildBlacklist []string `env:"DISCORD_GUILD_BLACKLIST" envSeparator:","`
	DeveloperID           string   `env:"DEVELOPER_ID"`
	InitSlashCommands     bool     `env:"INIT_SLASH_COMMANDS" envDefault:"true"`
	CommandCacheDir       string   `env:"COMMAND_CACHE_DIR" envDefault:"data/commands"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"json"`
	StoragePath   string `env:"STORAGE_PATH" envDefault:"data/datastore.json"`

	TTSProvider     string        `env:"TTS_PROVIDER" envDefault:"google"`
	OpenAIKey       string        `env:"OPENAI_API_KEY"`
	OpenAIModel     string        `env:"OPENAI_TTS_MODEL" envDefault:"tts-1"`
	DefaultVoice    string        `env:"TTS_DEFAULT_VOICE" envDefault:"ko"`
	DefaultRate     float64       `env:"TTS_DEFAULT_RATE" envDefault:"1.0"`
	MaxTextLength   int           `env:"TTS_MAX_LENGTH" envDefault:"200"`
	IgnorePrefix    string        `env:"TTS_IGNORE_PREFIX" envDefault:";"`
	SynthTimeout    time.Duration `env:"TTS_TIMEOUT" envDefault:"15s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"30m"`
	AudioDecoder    string        `env:"AUDIO_DECODER" envDefault:"mp3"`
	FFmpegPath      string        `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	StatusAddr      string        `env:"STATUS_ADDR" envDefault:":8787"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFile         string        `env:"LOG_FILE"`
	LogMaxSizeMB    int           `env:"LOG_MAX_SIZE_MB" envDefault:"20"`
	LogMaxBackups   int           `env:"LOG_MAX_BACKUPS" envDefault:"3"`
	LogConsoleColor bool          `env:"LOG_CONSOLE_COLOR" envDefault:"true"`
}

var (
	storageDrivers = []string{"json", "sqlite"}
	ttsProviders   = []string{"google", "openai"}
	audioDecoders  = []string{"mp3", "ffmpeg"}
)

// New loads .env (if present) and parses the environment into a Config.
func New() (*Config, error) {
	// a missing .env is fine, the process environment still applies
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enum values and limits that env tags cannot express.
func (c *Config) Validate() error {
	if !slices.Contains(storageDrivers, c.StorageDriver) {
		return fmt.Errorf("STORAGE_DRIVER must be one of %v, got %q", storageDrivers, c.StorageDriver)
	}
	if !slices.Contains(ttsProviders, c.TTSProvider) {
		return fmt.Errorf("TTS_PROVIDER must be one of %v, got %q", ttsProviders, c.TTSProvider)
	}
	if c.TTSProvider == "openai" && c.OpenAIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when TTS_PROVIDER=openai")
	}
	if !slices.Contains(audioDecoders, c.AudioDecoder) {
		return fmt.Errorf("AUDIO_DECODER must be one of %v, got %q", audioDecoders, c.AudioDecoder)
	}
	if c.MaxTextLength <= 0 {
		return fmt.Errorf("TTS_MAX_LENGTH must be positive, got %d", c.MaxTextLength)
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("IDLE_TIMEOUT must be positive, got %s", c.IdleTimeout)
	}
	if c.DefaultRate <= 0 {
		return fmt.Errorf("TTS_DEFAULT_RATE must be positive, got %v", c.DefaultRate)
	}
	return nil
}

// IsDeveloper reports whether userID is the configured developer.
func IsDeveloper(cfg *Config, userID string) bool {
	return cfg != nil && cfg.DeveloperID != "" && cfg.DeveloperID == userID
}

// IsGuildBlacklisted reports whether the bot must refuse to serve guildID.
func (c *Config) IsGuildBlacklisted(guildID string) bool {
	return slices.Contains(c.DiscordGuildBlacklist, guildID)
}
