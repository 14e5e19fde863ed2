// /internal/session/session.go
package session

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/keshon/voice-relay/internal/action"
	"github.com/keshon/voice-relay/internal/player"
)

// Binding is what a session knows about its voice connection.
type Binding struct {
	ChannelID string
	Player    *player.Player
	Epoch     uint64
}

// Session is the per-guild record. All fields are guarded by mu; the lock is
// never held across I/O.
type Session struct {
	GuildID string

	mu        sync.Mutex
	channelID string
	player    *player.Player
	epoch     uint64
	flight    uint64
	flightSeq uint64

	timer    *clock.Timer
	timerSeq uint64

	action *action.Action
}

func newSession(guildID string) *Session {
	return &Session{GuildID: guildID}
}

// Attach replaces the session's response channel with act.
func (s *Session) Attach(act *action.Action) {
	s.mu.Lock()
	s.action = act
	s.mu.Unlock()
}

// Action returns the most recently attached response channel, or nil.
func (s *Session) Action() *action.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.action
}

// Bind records a new voice binding and returns its epoch. Any previous player
// is returned so the caller can stop it outside the lock.
func (s *Session) Bind(channelID string, p *player.Player) (epoch uint64, previous *player.Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous = s.player
	s.channelID = channelID
	s.player = p
	s.epoch++
	return s.epoch, previous
}

// Release drops the binding and any in-flight utterance, bumps the epoch and
// returns the player that was attached, if any, with the new epoch.
func (s *Session) Release() (*player.Player, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.player
	s.channelID = ""
	s.player = nil
	s.flight = 0
	s.epoch++
	return p, s.epoch
}

// Binding returns the current binding; ok is false when no player is bound.
func (s *Session) Binding() (b Binding, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return Binding{Epoch: s.epoch}, false
	}
	return Binding{ChannelID: s.channelID, Player: s.player, Epoch: s.epoch}, true
}

// Epoch returns the current binding generation.
func (s *Session) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Acquire marks an utterance in flight and returns its token. It fails when
// one already is or the bound player is still playing.
func (s *Session) Acquire() (token uint64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flight != 0 || (s.player != nil && s.player.IsPlaying()) {
		return 0, false
	}
	s.flightSeq++
	s.flight = s.flightSeq
	return s.flight, true
}

// Done ends the utterance identified by token. Tokens cleared by Release or
// superseded since are ignored.
func (s *Session) Done(token uint64) {
	s.mu.Lock()
	if s.flight == token {
		s.flight = 0
	}
	s.mu.Unlock()
}

// InFlight reports whether an utterance is being synthesized or played.
func (s *Session) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flight != 0
}

// ArmTimer cancels any outstanding idle timer and arms a new one after d.
// fire receives the sequence number of the timer that fired; pass it to
// ClaimTimer to find out whether that timer is still the current one.
func (s *Session) ArmTimer(c clock.Clock, d time.Duration, fire func(seq uint64)) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timerSeq++
	seq := s.timerSeq
	s.timer = c.AfterFunc(d, func() { fire(seq) })
	return seq
}

// StopTimer cancels the idle timer. It reports whether one was armed.
func (s *Session) StopTimer() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer == nil {
		return false
	}
	s.timer.Stop()
	s.timer = nil
	s.timerSeq++
	return true
}

// ClaimTimer detaches the timer identified by seq. It returns false for a
// timer that was stopped or superseded after it fired.
func (s *Session) ClaimTimer(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer == nil || s.timerSeq != seq {
		return false
	}
	s.timer = nil
	return true
}

func (s *Session) HasTimer() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Status is a read-only view of a session.
type Status struct {
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id,omitempty"`
	Connected bool   `json:"connected"`
	Playing   bool   `json:"playing"`
	IdleTimer bool   `json:"idle_timer"`
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		GuildID:   s.GuildID,
		ChannelID: s.channelID,
		Connected: s.player != nil,
		Playing:   s.player != nil && (s.flight != 0 || s.player.IsPlaying()),
		IdleTimer: s.timer != nil,
	}
}

func (s *Session) attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player != nil || s.timer != nil
}
