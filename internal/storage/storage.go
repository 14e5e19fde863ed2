// /internal/storage/storage.go
package storage

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const commandHistoryLimit int = 20

// GuildPrefs are per-guild settings.
type GuildPrefs struct {
	TTSChannelID string `json:"tts_channel_id"`
	Muted        bool   `json:"muted"`
}

// UserPrefs are per-user voice settings. Zero values mean "use the default".
type UserPrefs struct {
	Voice string  `json:"voice"`
	Rate  float64 `json:"rate"`
}

type CommandRecord struct {
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Command   string    `json:"command"`
	Datetime  time.Time `json:"datetime"`
}

// Store is the persistence surface the bot needs. Implementations must be
// safe for concurrent use.
type Store interface {
	GuildPrefs(guildID string) (GuildPrefs, error)
	SetTTSChannel(guildID, channelID string) error
	SetMuted(guildID string, muted bool) error

	UserPrefs(userID string) (UserPrefs, error)
	SetUserVoice(userID, voice string) error
	SetUserRate(userID string, rate float64) error

	AppendCommand(guildID string, rec CommandRecord) error
	CommandHistory(guildID string) ([]CommandRecord, error)

	// GuildIDs lists guilds that have stored settings.
	GuildIDs() ([]string, error)

	Close() error
}

// Open returns the Store for driver ("json" or "sqlite") at path.
func Open(driver, path string, log zerolog.Logger) (Store, error) {
	switch driver {
	case "json":
		return NewJSON(path, log)
	case "sqlite":
		return NewSQLite(path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

func trimHistory(list []CommandRecord) []CommandRecord {
	if len(list) > commandHistoryLimit {
		return list[len(list)-commandHistoryLimit:]
	}
	return list
}
