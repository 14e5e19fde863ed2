package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps preferences in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite: empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("sqlite: creating dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS guild_prefs (
	guild_id TEXT PRIMARY KEY,
	tts_channel_id TEXT NOT NULL DEFAULT '',
	muted INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS user_prefs (
	user_id TEXT PRIMARY KEY,
	voice TEXT NOT NULL DEFAULT '',
	rate REAL NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS command_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	guild_id TEXT NOT NULL,
	channel_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	username TEXT NOT NULL,
	command TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_command_history_guild ON command_history (guild_id, id);`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GuildPrefs(guildID string) (GuildPrefs, error) {
	var (
		prefs GuildPrefs
		muted int
	)
	err := s.db.QueryRow(`SELECT tts_channel_id, muted FROM guild_prefs WHERE guild_id = ?`, guildID).
		Scan(&prefs.TTSChannelID, &muted)
	if errors.Is(err, sql.ErrNoRows) {
		return GuildPrefs{}, nil
	}
	if err != nil {
		return GuildPrefs{}, fmt.Errorf("sqlite: guild prefs %s: %w", guildID, err)
	}
	prefs.Muted = muted != 0
	return prefs, nil
}

func (s *SQLiteStore) SetTTSChannel(guildID, channelID string) error {
	_, err := s.db.Exec(`
INSERT INTO guild_prefs (guild_id, tts_channel_id) VALUES (?, ?)
ON CONFLICT(guild_id) DO UPDATE SET tts_channel_id = excluded.tts_channel_id`, guildID, channelID)
	if err != nil {
		return fmt.Errorf("sqlite: set tts channel %s: %w", guildID, err)
	}
	return nil
}

func (s *SQLiteStore) SetMuted(guildID string, muted bool) error {
	_, err := s.db.Exec(`
INSERT INTO guild_prefs (guild_id, muted) VALUES (?, ?)
ON CONFLICT(guild_id) DO UPDATE SET muted = excluded.muted`, guildID, boolToInt(muted))
	if err != nil {
		return fmt.Errorf("sqlite: set muted %s: %w", guildID, err)
	}
	return nil
}

func (s *SQLiteStore) UserPrefs(userID string) (UserPrefs, error) {
	var prefs UserPrefs
	err := s.db.QueryRow(`SELECT voice, rate FROM user_prefs WHERE user_id = ?`, userID).
		Scan(&prefs.Voice, &prefs.Rate)
	if errors.Is(err, sql.ErrNoRows) {
		return UserPrefs{}, nil
	}
	if err != nil {
		return UserPrefs{}, fmt.Errorf("sqlite: user prefs %s: %w", userID, err)
	}
	return prefs, nil
}

func (s *SQLiteStore) SetUserVoice(userID, voice string) error {
	_, err := s.db.Exec(`
INSERT INTO user_prefs (user_id, voice) VALUES (?, ?)
ON CONFLICT(user_id) DO UPDATE SET voice = excluded.voice`, userID, voice)
	if err != nil {
		return fmt.Errorf("sqlite: set voice %s: %w", userID, err)
	}
	return nil
}

func (s *SQLiteStore) SetUserRate(userID string, rate float64) error {
	_, err := s.db.Exec(`
INSERT INTO user_prefs (user_id, rate) VALUES (?, ?)
ON CONFLICT(user_id) DO UPDATE SET rate = excluded.rate`, userID, rate)
	if err != nil {
		return fmt.Errorf("sqlite: set rate %s: %w", userID, err)
	}
	return nil
}

func (s *SQLiteStore) AppendCommand(guildID string, rec CommandRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`
INSERT INTO command_history (guild_id, channel_id, user_id, username, command, created_at)
VALUES (?, ?, ?, ?, ?, ?)`, guildID, rec.ChannelID, rec.UserID, rec.Username, rec.Command, rec.Datetime.UTC()); err != nil {
		return fmt.Errorf("sqlite: append command: %w", err)
	}

	if _, err := tx.Exec(`
DELETE FROM command_history WHERE guild_id = ? AND id NOT IN (
	SELECT id FROM command_history WHERE guild_id = ? ORDER BY id DESC LIMIT ?
)`, guildID, guildID, commandHistoryLimit); err != nil {
		return fmt.Errorf("sqlite: trim history: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) CommandHistory(guildID string) ([]CommandRecord, error) {
	rows, err := s.db.Query(`
SELECT channel_id, user_id, username, command, created_at
FROM command_history WHERE guild_id = ? ORDER BY id`, guildID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: command history: %w", err)
	}
	defer rows.Close()

	var out []CommandRecord
	for rows.Next() {
		var rec CommandRecord
		if err := rows.Scan(&rec.ChannelID, &rec.UserID, &rec.Username, &rec.Command, &rec.Datetime); err != nil {
			return nil, fmt.Errorf("sqlite: scan history: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GuildIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT guild_id FROM guild_prefs ORDER BY guild_id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: guild ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
