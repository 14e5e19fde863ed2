package storage

import (
	"fmt"
	"strings"
	"sync"

	"github.com/keshon/voice-relay/internal/datastore"
	"github.com/rs/zerolog"
)

const (
	guildKeyPrefix = "guild:"
	userKeyPrefix  = "user:"
)

type guildRecord struct {
	Prefs   GuildPrefs      `json:"prefs"`
	History []CommandRecord `json:"cmd_history"`
}

// JSONStore keeps preferences in a datastore JSON file.
type JSONStore struct {
	// serializes read-modify-write cycles on records
	mu sync.Mutex
	ds *datastore.DataStore
}

func NewJSON(path string, log zerolog.Logger) (*JSONStore, error) {
	cfg := datastore.DefaultConfig(path)
	cfg.Logger = log.With().Str("component", "datastore").Logger()

	ds, err := datastore.NewWithConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &JSONStore{ds: ds}, nil
}

func (s *JSONStore) Close() error {
	return s.ds.Close()
}

func (s *JSONStore) guildRecord(guildID string) (guildRecord, error) {
	var rec guildRecord
	if _, err := s.ds.Get(guildKeyPrefix+guildID, &rec); err != nil {
		return guildRecord{}, fmt.Errorf("error reading guild %s: %w", guildID, err)
	}
	return rec, nil
}

func (s *JSONStore) updateGuild(guildID string, fn func(*guildRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.guildRecord(guildID)
	if err != nil {
		return err
	}
	fn(&rec)
	return s.ds.Put(guildKeyPrefix+guildID, rec)
}

func (s *JSONStore) updateUser(userID string, fn func(*UserPrefs)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs, err := s.UserPrefs(userID)
	if err != nil {
		return err
	}
	fn(&prefs)
	return s.ds.Put(userKeyPrefix+userID, prefs)
}

func (s *JSONStore) GuildPrefs(guildID string) (GuildPrefs, error) {
	rec, err := s.guildRecord(guildID)
	return rec.Prefs, err
}

func (s *JSONStore) SetTTSChannel(guildID, channelID string) error {
	return s.updateGuild(guildID, func(r *guildRecord) { r.Prefs.TTSChannelID = channelID })
}

func (s *JSONStore) SetMuted(guildID string, muted bool) error {
	return s.updateGuild(guildID, func(r *guildRecord) { r.Prefs.Muted = muted })
}

func (s *JSONStore) UserPrefs(userID string) (UserPrefs, error) {
	var prefs UserPrefs
	if _, err := s.ds.Get(userKeyPrefix+userID, &prefs); err != nil {
		return UserPrefs{}, fmt.Errorf("error reading user %s: %w", userID, err)
	}
	return prefs, nil
}

func (s *JSONStore) SetUserVoice(userID, voice string) error {
	return s.updateUser(userID, func(p *UserPrefs) { p.Voice = voice })
}

func (s *JSONStore) SetUserRate(userID string, rate float64) error {
	return s.updateUser(userID, func(p *UserPrefs) { p.Rate = rate })
}

func (s *JSONStore) AppendCommand(guildID string, rec CommandRecord) error {
	return s.updateGuild(guildID, func(r *guildRecord) {
		r.History = trimHistory(append(r.History, rec))
	})
}

func (s *JSONStore) CommandHistory(guildID string) ([]CommandRecord, error) {
	rec, err := s.guildRecord(guildID)
	return rec.History, err
}

func (s *JSONStore) GuildIDs() ([]string, error) {
	var ids []string
	for _, key := range s.ds.Keys() {
		if id, ok := strings.CutPrefix(key, guildKeyPrefix); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
