package storage

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
)

func openAll(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	stores := map[string]Store{}
	for _, driver := range []string{"json", "sqlite"} {
		s, err := Open(driver, filepath.Join(dir, driver+".db"), zerolog.Nop())
		if err != nil {
			t.Fatalf("open %s: %v", driver, err)
		}
		t.Cleanup(func() { s.Close() })
		stores[driver] = s
	}
	return stores
}

func TestGuildPrefs(t *testing.T) {
	for driver, s := range openAll(t) {
		t.Run(driver, func(t *testing.T) {
			is := is.New(t)

			prefs, err := s.GuildPrefs("g1")
			is.NoErr(err)
			is.Equal(prefs, GuildPrefs{}) // unknown guild yields zero prefs

			is.NoErr(s.SetTTSChannel("g1", "c1"))
			is.NoErr(s.SetMuted("g1", true))

			prefs, err = s.GuildPrefs("g1")
			is.NoErr(err)
			is.Equal(prefs, GuildPrefs{TTSChannelID: "c1", Muted: true})

			is.NoErr(s.SetMuted("g1", false))
			prefs, err = s.GuildPrefs("g1")
			is.NoErr(err)
			is.Equal(prefs.TTSChannelID, "c1") // toggling mute keeps the channel
			is.True(!prefs.Muted)

			ids, err := s.GuildIDs()
			is.NoErr(err)
			is.Equal(ids, []string{"g1"})
		})
	}
}

func TestUserPrefs(t *testing.T) {
	for driver, s := range openAll(t) {
		t.Run(driver, func(t *testing.T) {
			is := is.New(t)

			is.NoErr(s.SetUserVoice("u1", "ja"))
			is.NoErr(s.SetUserRate("u1", 1.5))

			prefs, err := s.UserPrefs("u1")
			is.NoErr(err)
			is.Equal(prefs, UserPrefs{Voice: "ja", Rate: 1.5})
		})
	}
}

func TestCommandHistoryIsBounded(t *testing.T) {
	for driver, s := range openAll(t) {
		t.Run(driver, func(t *testing.T) {
			is := is.New(t)

			for i := 0; i < commandHistoryLimit+5; i++ {
				is.NoErr(s.AppendCommand("g1", CommandRecord{
					UserID:   "u1",
					Command:  fmt.Sprintf("cmd%d", i),
					Datetime: time.Now(),
				}))
			}

			list, err := s.CommandHistory("g1")
			is.NoErr(err)
			is.Equal(len(list), commandHistoryLimit)
			is.Equal(list[len(list)-1].Command, fmt.Sprintf("cmd%d", commandHistoryLimit+4)) // newest kept last
		})
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	is := is.New(t)
	_, err := Open("redis", "x", zerolog.Nop())
	is.True(err != nil)
}
