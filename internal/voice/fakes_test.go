package voice

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/bwmarrin/discordgo"
	"github.com/keshon/voice-relay/internal/action"
	"github.com/keshon/voice-relay/internal/audio"
	"github.com/keshon/voice-relay/internal/session"
	"github.com/keshon/voice-relay/internal/tts"
	"github.com/rs/zerolog"
)

type fakeConn struct {
	owner     *fakeConnector
	guildID   string
	channelID string
	release   chan struct{}

	mu     sync.Mutex
	frames int
}

func (c *fakeConn) ChannelID() string   { return c.channelID }
func (c *fakeConn) Speaking(bool) error { return nil }
func (c *fakeConn) Disconnect() error   { return c.owner.drop(c.guildID) }

func (c *fakeConn) framesWritten() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

func (c *fakeConn) WriteFrame([]int16) error {
	if c.release != nil {
		<-c.release
	}
	c.mu.Lock()
	c.frames++
	c.mu.Unlock()
	return nil
}

type fakeConnector struct {
	mu          sync.Mutex
	conns       map[string]*fakeConn
	connects    int
	disconnects int
	fail        error
	// release is handed to every new connection; nil lets playback finish
	// immediately.
	release chan struct{}
	// onLookup runs before every Connection lookup with its 1-based count.
	onLookup func(n int)
	lookups  int
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{conns: make(map[string]*fakeConn)}
}

func (f *fakeConnector) Connect(_ context.Context, guildID, channelID string) (Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	f.connects++
	c := &fakeConn{owner: f, guildID: guildID, channelID: channelID, release: f.release}
	f.conns[guildID] = c
	return c, nil
}

func (f *fakeConnector) Connection(guildID string) (Connection, bool) {
	f.mu.Lock()
	f.lookups++
	n, hook := f.lookups, f.onLookup
	f.mu.Unlock()
	if hook != nil {
		hook(n)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conns[guildID]
	if !ok {
		return nil, false
	}
	return c, true
}

func (f *fakeConnector) drop(guildID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.conns[guildID]; !ok {
		return errors.New("not connected")
	}
	delete(f.conns, guildID)
	f.disconnects++
	return nil
}

func (f *fakeConnector) stats() (connects, disconnects int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects, f.disconnects
}

type fakePresence struct {
	mu     sync.Mutex
	users  map[string]string
	humans map[string]int
}

func newFakePresence() *fakePresence {
	return &fakePresence{users: make(map[string]string), humans: make(map[string]int)}
}

func (p *fakePresence) move(userID, channelID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if prev, ok := p.users[userID]; ok {
		p.humans[prev]--
		delete(p.users, userID)
	}
	if channelID != "" {
		p.users[userID] = channelID
		p.humans[channelID]++
	}
}

func (p *fakePresence) UserVoiceChannel(_, userID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.users[userID]
	return ch, ok
}

func (p *fakePresence) HumanCount(_, channelID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.humans[channelID]
}

type fakeSynth struct {
	mu      sync.Mutex
	calls   []tts.Request
	err     error
	gate    chan struct{}
	started chan struct{}
}

func (s *fakeSynth) Name() string        { return "fake" }
func (s *fakeSynth) Voices() []tts.Voice { return []tts.Voice{{ID: "ko", Label: "Korean"}} }

func (s *fakeSynth) Synthesize(ctx context.Context, req tts.Request) (io.ReadCloser, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	gate, started, err := s.gate, s.started, s.err
	s.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader([]byte("ID3"))), nil
}

func (s *fakeSynth) requests() []tts.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tts.Request(nil), s.calls...)
}

type fakeDecoder struct{ frames int }

func (d fakeDecoder) Decode(_ context.Context, r io.Reader) (io.ReadCloser, error) {
	if _, err := io.ReadAll(r); err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(make([]byte, d.frames*audio.FrameBytes))), nil
}

type fakeReplier struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeReplier) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if resp.Data != nil && resp.Data.Content != "" {
		f.sent = append(f.sent, resp.Data.Content)
	}
	return nil
}

func (f *fakeReplier) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, *edit.Content)
	return &discordgo.Message{}, nil
}

func (f *fakeReplier) ChannelMessageSend(_ string, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, content)
	return &discordgo.Message{}, nil
}

func (f *fakeReplier) ChannelTyping(string, ...discordgo.RequestOption) error { return nil }

func (f *fakeReplier) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type harness struct {
	ctl       *Controller
	registry  *session.Registry
	connector *fakeConnector
	presence  *fakePresence
	synth     *fakeSynth
	replier   *fakeReplier
	clock     *clock.Mock
}

func newHarness(cfg Config) *harness {
	h := &harness{
		registry:  session.NewRegistry(zerolog.Nop()),
		connector: newFakeConnector(),
		presence:  newFakePresence(),
		synth:     &fakeSynth{},
		replier:   &fakeReplier{},
		clock:     clock.NewMock(),
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	if cfg.DefaultVoice == "" {
		cfg.DefaultVoice = "ko"
	}
	h.ctl = NewController(h.registry, h.connector, h.presence, h.synth, fakeDecoder{frames: 3}, nil, cfg, zerolog.Nop(), WithClock(h.clock))
	return h
}

func (h *harness) message(text string) *action.Action {
	return action.New(h.replier, action.MessageRequest{Message: &discordgo.Message{
		GuildID:   "g1",
		ChannelID: "tts",
		Content:   text,
		Author:    &discordgo.User{ID: "u1"},
	}}, false, zerolog.Nop())
}

func (h *harness) command() *action.Action {
	return action.New(h.replier, action.CommandRequest{Interaction: &discordgo.Interaction{
		GuildID:   "g1",
		ChannelID: "tts",
		Member:    &discordgo.Member{User: &discordgo.User{ID: "u1"}},
	}}, false, zerolog.Nop())
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
