// Package logging builds the process logger: zerolog on the console, optionally
// mirrored into a size-rotated file.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	Color      bool
}

// New returns the root logger. Writes go to stderr and, when opts.File is set,
// to a lumberjack-rotated file as JSON lines.
func New(opts Options) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	var out io.Writer = zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.DateTime,
		NoColor:    !opts.Color,
	}

	if opts.File != "" {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			Compress:   true,
		})
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// RedirectDiscordgo routes discordgo's internal logging through l.
func RedirectDiscordgo(l zerolog.Logger) {
	dl := l.With().Str("component", "discordgo").Logger()
	discordgo.Logger = func(msgL, caller int, format string, a ...interface{}) {
		var ev *zerolog.Event
		switch msgL {
		case discordgo.LogError:
			ev = dl.Error()
		case discordgo.LogWarning:
			ev = dl.Warn()
		case discordgo.LogInformational:
			ev = dl.Info()
		default:
			ev = dl.Debug()
		}
		ev.Msg(fmt.Sprintf(format, a...))
	}
}
