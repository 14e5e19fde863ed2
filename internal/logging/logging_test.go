package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
)

func TestNewLevel(t *testing.T) {
	is := is.New(t)

	l := New(Options{Level: "warn"})
	is.Equal(l.GetLevel(), zerolog.WarnLevel)

	l = New(Options{Level: "nonsense"})
	is.Equal(l.GetLevel(), zerolog.InfoLevel) // unknown levels fall back to info
}

func TestNewWritesFile(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "bot.log")

	l := New(Options{Level: "info", File: path, MaxSizeMB: 1, MaxBackups: 1})
	l.Info().Str("guild", "g1").Msg("hello")

	data, err := os.ReadFile(path)
	is.NoErr(err)
	is.True(len(data) > 0) // log line reached the rotated file
}
