package config

import (
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestNewDefaults(t *testing.T) {
	is := is.New(t)
	t.Setenv("DISCORD_TOKEN", "token")

	cfg, err := New()
	is.NoErr(err)
	is.Equal(cfg.StorageDriver, "json")
	is.Equal(cfg.TTSProvider, "google")
	is.Equal(cfg.IdleTimeout, 30*time.Minute) // idle disconnect defaults to 30 minutes
	is.Equal(cfg.MaxTextLength, 200)
	is.True(cfg.InitSlashCommands)
}

func TestNewRequiresToken(t *testing.T) {
	is := is.New(t)
	t.Setenv("DISCORD_TOKEN", "")

	_, err := New()
	is.True(err != nil)
}

func TestNewParsesBlacklist(t *testing.T) {
	is := is.New(t)
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DISCORD_GUILD_BLACKLIST", "1,2")

	cfg, err := New()
	is.NoErr(err)
	is.True(cfg.IsGuildBlacklisted("2"))
	is.True(!cfg.IsGuildBlacklisted("3"))
}

func TestValidate(t *testing.T) {
	base := Config{
		StorageDriver: "json",
		TTSProvider:   "google",
		AudioDecoder:  "mp3",
		MaxTextLength: 10,
		IdleTimeout:   time.Minute,
		DefaultRate:   1,
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "ok", mutate: func(c *Config) {}},
		{name: "bad driver", mutate: func(c *Config) { c.StorageDriver = "redis" }, wantErr: true},
		{name: "openai without key", mutate: func(c *Config) { c.TTSProvider = "openai" }, wantErr: true},
		{name: "openai with key", mutate: func(c *Config) { c.TTSProvider = "openai"; c.OpenAIKey = "k" }},
		{name: "zero cap", mutate: func(c *Config) { c.MaxTextLength = 0 }, wantErr: true},
		{name: "bad decoder", mutate: func(c *Config) { c.AudioDecoder = "wav" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			c := base
			tt.mutate(&c)
			err := c.Validate()
			is.Equal(err != nil, tt.wantErr)
		})
	}
}
