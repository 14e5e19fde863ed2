package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/keshon/voice-relay/internal/player"
	"github.com/matryer/is"
	"github.com/rs/zerolog"
)

type nopSink struct{}

func (nopSink) Speaking(bool) error       { return nil }
func (nopSink) WriteFrame([]int16) error { return nil }

func TestGetOrCreateIsUniquePerGuild(t *testing.T) {
	is := is.New(t)
	r := NewRegistry(zerolog.Nop())

	var wg sync.WaitGroup
	got := make([]*Session, 50)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = r.GetOrCreate("g1")
		}(i)
	}
	wg.Wait()

	for _, s := range got {
		is.True(s == got[0])
	}
	is.Equal(r.Len(), 1)
}

func TestRemoveRequiresRelease(t *testing.T) {
	is := is.New(t)
	r := NewRegistry(zerolog.Nop())
	s := r.GetOrCreate("g1")
	s.Bind("c1", player.New(nopSink{}, zerolog.Nop()))

	is.Equal(r.Remove("g1"), ErrResourcesAttached)
	_, ok := r.Get("g1")
	is.True(ok)

	s.Release()
	is.NoErr(r.Remove("g1"))
	_, ok = r.Get("g1")
	is.True(!ok)
	is.NoErr(r.Remove("g1"))
}

func TestRemoveRefusesArmedTimer(t *testing.T) {
	is := is.New(t)
	r := NewRegistry(zerolog.Nop())
	s := r.GetOrCreate("g1")
	s.ArmTimer(clock.NewMock(), time.Minute, func(uint64) {})

	is.Equal(r.Remove("g1"), ErrResourcesAttached)
	is.True(s.StopTimer())
	is.NoErr(r.Remove("g1"))
}

func TestArmTimerResetsInsteadOfStacking(t *testing.T) {
	is := is.New(t)
	mock := clock.NewMock()
	s := newSession("g1")

	var mu sync.Mutex
	var fired []uint64
	fire := func(seq uint64) {
		mu.Lock()
		fired = append(fired, seq)
		mu.Unlock()
	}

	s.ArmTimer(mock, 30*time.Minute, fire)
	mock.Add(10 * time.Minute)
	last := s.ArmTimer(mock, 30*time.Minute, fire)

	mock.Add(25 * time.Minute)
	mu.Lock()
	is.Equal(len(fired), 0) // the first timer was canceled
	mu.Unlock()

	mock.Add(5 * time.Minute)
	is.True(s.ClaimTimer(last))
	is.True(!s.HasTimer())
	is.True(!s.ClaimTimer(last))
}

func TestClaimTimerRejectsSuperseded(t *testing.T) {
	is := is.New(t)
	mock := clock.NewMock()
	s := newSession("g1")

	first := s.ArmTimer(mock, time.Minute, func(uint64) {})
	s.ArmTimer(mock, time.Minute, func(uint64) {})
	is.True(!s.ClaimTimer(first))
	is.True(s.HasTimer())
}

func TestBindingEpochs(t *testing.T) {
	is := is.New(t)
	s := newSession("g1")

	_, ok := s.Binding()
	is.True(!ok)

	p := player.New(nopSink{}, zerolog.Nop())
	e1, prev := s.Bind("c1", p)
	is.True(prev == nil)

	b, ok := s.Binding()
	is.True(ok)
	is.Equal(b.ChannelID, "c1")
	is.Equal(b.Epoch, e1)

	tok, ok := s.Acquire()
	is.True(ok)
	_, ok = s.Acquire()
	is.True(!ok)

	released, epoch := s.Release()
	is.True(released == p)
	is.True(!s.InFlight())
	is.True(epoch > e1)
	is.Equal(s.Epoch(), epoch)

	// a completion from the released utterance must not end a newer one
	tok2, ok := s.Acquire()
	is.True(ok)
	s.Done(tok)
	is.True(s.InFlight())
	s.Done(tok2)
	is.True(!s.InFlight())
}

func TestSnapshotSorted(t *testing.T) {
	is := is.New(t)
	r := NewRegistry(zerolog.Nop())
	for i := 3; i > 0; i-- {
		r.GetOrCreate(fmt.Sprintf("g%d", i))
	}
	r.GetOrCreate("g2").Bind("c9", player.New(nopSink{}, zerolog.Nop()))

	snap := r.Snapshot()
	is.Equal(len(snap), 3)
	is.Equal(snap[0].GuildID, "g1")
	is.Equal(snap[1].GuildID, "g2")
	is.True(snap[1].Connected)
	is.Equal(snap[1].ChannelID, "c9")
	is.True(!snap[2].Connected)
}
