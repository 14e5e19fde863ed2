package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/keshon/voice-relay/internal/action"
	"github.com/keshon/voice-relay/internal/audio"
	"github.com/keshon/voice-relay/internal/player"
	"github.com/keshon/voice-relay/internal/sanitize"
	"github.com/keshon/voice-relay/internal/session"
	"github.com/keshon/voice-relay/internal/tts"
	"github.com/rs/zerolog"
)

type Config struct {
	IdleTimeout  time.Duration
	MaxLength    int
	SynthTimeout time.Duration
	DefaultVoice string
	DefaultRate  float64
}

// Controller owns voice connections and players for every guild session.
// It is safe for concurrent use from gateway handlers.
type Controller struct {
	registry  *session.Registry
	connector Connector
	presence  Presence
	synth     tts.Synthesizer
	decoder   audio.Decoder
	prefs     Prefs
	clock     clock.Clock
	cfg       Config
	log       zerolog.Logger
}

type Option func(*Controller)

// WithClock replaces the wall clock used for idle timers.
func WithClock(c clock.Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

func NewController(
	registry *session.Registry,
	connector Connector,
	presence Presence,
	synth tts.Synthesizer,
	decoder audio.Decoder,
	prefs Prefs,
	cfg Config,
	log zerolog.Logger,
	opts ...Option,
) *Controller {
	c := &Controller{
		registry:  registry,
		connector: connector,
		presence:  presence,
		synth:     synth,
		decoder:   decoder,
		prefs:     prefs,
		clock:     clock.New(),
		cfg:       cfg,
		log:       log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State reports the guild's voice state.
func (c *Controller) State(guildID string) State {
	sess, ok := c.registry.Get(guildID)
	if !ok {
		return Disconnected
	}
	b, ok := c.current(sess)
	if !ok {
		return Disconnected
	}
	if b.Player.IsPlaying() || sess.InFlight() {
		return ConnectedPlaying
	}
	return ConnectedIdle
}

// Join connects to the requester's voice channel.
func (c *Controller) Join(ctx context.Context, act *action.Action, guildID, userID string) Result {
	sess := c.registry.GetOrCreate(guildID)
	sess.Attach(act)

	target, ok := c.presence.UserVoiceChannel(guildID, userID)
	if !ok {
		act.Reply(msgNotInVoice)
		return NotInVoice
	}

	if b, ok := c.current(sess); ok && b.ChannelID == target {
		act.Reply(fmt.Sprintf(msgAlreadyConnected, target))
		return AlreadyConnected
	}

	if _, err := c.bind(ctx, sess, target); err != nil {
		c.log.Error().Err(err).Str("guild_id", guildID).Str("channel_id", target).Msg("Failed to join voice channel")
		act.Reply(msgJoinFailed)
		return JoinFailed
	}
	act.Reply(fmt.Sprintf(msgJoined, target))
	return Joined
}

// Leave disconnects the guild's voice session.
func (c *Controller) Leave(ctx context.Context, act *action.Action, guildID string) Result {
	sess := c.registry.GetOrCreate(guildID)
	sess.Attach(act)

	if _, ok := c.current(sess); !ok {
		act.Reply(msgNotConnected)
		return NotConnected
	}
	c.teardown(sess, "leave requested")
	act.Reply(msgLeft)
	return Left
}

// Speak synthesizes text and plays it in the guild, joining the requester's
// voice channel first when the session is disconnected.
func (c *Controller) Speak(ctx context.Context, act *action.Action, guildID, userID, text string) Result {
	sess := c.registry.GetOrCreate(guildID)
	sess.Attach(act)
	log := c.log.With().Str("guild_id", guildID).Str("user_id", userID).Str("action_id", act.ID).Logger()

	start, live := c.current(sess)

	token, ok := sess.Acquire()
	if !ok {
		act.Reply(msgBusy)
		return Busy
	}

	if !live {
		if _, inVoice := c.presence.UserVoiceChannel(guildID, userID); !inVoice {
			sess.Done(token)
			log.Debug().Msg("Requester is not in voice, nothing to do")
			return Skipped
		}
	}

	text = sanitize.Text(text)
	if text == "" {
		sess.Done(token)
		return Skipped
	}
	if limit := c.cfg.MaxLength; limit > 0 {
		var truncated bool
		if text, truncated = sanitize.Truncate(text, limit); truncated {
			act.Notify(fmt.Sprintf(msgTruncated, limit))
		}
	}

	act.Defer()
	pcm, err := c.render(ctx, userID, text)
	if err != nil {
		sess.Done(token)
		log.Error().Err(err).Msg("Speech synthesis failed")
		act.Reply(msgSynthFailed)
		return SynthesisFailed
	}

	// The session may have changed while synthesizing.
	b, ok := c.current(sess)
	switch {
	case live && (!ok || b.Epoch != start.Epoch):
		pcm.Close()
		sess.Done(token)
		log.Debug().Msg("Voice session changed during synthesis, dropping utterance")
		if _, isCommand := act.Request().(action.CommandRequest); isCommand {
			act.Reply(msgStale)
		}
		return Stale
	case !ok:
		target, inVoice := c.presence.UserVoiceChannel(guildID, userID)
		if !inVoice {
			pcm.Close()
			sess.Done(token)
			return Skipped
		}
		if b, err = c.bind(ctx, sess, target); err != nil {
			pcm.Close()
			sess.Done(token)
			log.Error().Err(err).Str("channel_id", target).Msg("Failed to join voice channel")
			act.Reply(msgJoinFailed)
			return JoinFailed
		}
	}

	err = b.Player.Play(pcm, func(err error) {
		sess.Done(token)
		if err != nil {
			log.Warn().Err(err).Msg("Playback ended with error")
		}
	})
	if err != nil {
		pcm.Close()
		sess.Done(token)
		act.Reply(msgBusy)
		return Busy
	}

	c.armIdleTimer(sess)
	if _, ok := act.Request().(action.CommandRequest); ok {
		act.Reply(msgSpeaking)
	}
	return Started
}

// render synthesizes and decodes text with the user's voice preferences.
func (c *Controller) render(ctx context.Context, userID, text string) (io.ReadCloser, error) {
	req := tts.Request{Text: text, Voice: c.cfg.DefaultVoice, Rate: c.cfg.DefaultRate}
	if c.prefs != nil {
		prefs, err := c.prefs.UserPrefs(userID)
		if err != nil {
			c.log.Warn().Err(err).Str("user_id", userID).Msg("Failed to load user preferences, using defaults")
		}
		if prefs.Voice != "" {
			req.Voice = prefs.Voice
		}
		if prefs.Rate > 0 {
			req.Rate = prefs.Rate
		}
	}

	synthCtx := ctx
	if c.cfg.SynthTimeout > 0 {
		var cancel context.CancelFunc
		synthCtx, cancel = context.WithTimeout(ctx, c.cfg.SynthTimeout)
		defer cancel()
	}

	encoded, err := c.synth.Synthesize(synthCtx, req)
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	pcm, err := c.decoder.Decode(ctx, encoded)
	if err != nil {
		encoded.Close()
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &pipeline{ReadCloser: pcm, source: encoded}, nil
}

// pipeline closes the decoded stream and the encoded source together.
type pipeline struct {
	io.ReadCloser
	source io.Closer
}

func (p *pipeline) Close() error {
	return errors.Join(p.ReadCloser.Close(), p.source.Close())
}

// current returns the session's live binding. A player whose connection is
// gone is released and reported as not connected.
func (c *Controller) current(sess *session.Session) (session.Binding, bool) {
	b, ok := sess.Binding()
	if !ok {
		return b, false
	}
	conn, ok := c.connector.Connection(sess.GuildID)
	if !ok {
		c.log.Warn().Str("guild_id", sess.GuildID).Msg("Player has no voice connection, releasing")
		sess.StopTimer()
		if p, _ := sess.Release(); p != nil {
			stopPlayer(p)
		}
		return session.Binding{}, false
	}
	if ch := conn.ChannelID(); ch != "" {
		b.ChannelID = ch
	}
	return b, true
}

// bind connects to channelID and attaches a fresh player to the session.
func (c *Controller) bind(ctx context.Context, sess *session.Session, channelID string) (session.Binding, error) {
	conn, err := c.connector.Connect(ctx, sess.GuildID, channelID)
	if err != nil {
		return session.Binding{}, err
	}
	p := player.New(conn, c.log.With().Str("guild_id", sess.GuildID).Logger())
	epoch, previous := sess.Bind(channelID, p)
	if previous != nil {
		stopPlayer(previous)
	}
	c.log.Info().Str("guild_id", sess.GuildID).Str("channel_id", channelID).Msg("Joined voice channel")
	return session.Binding{ChannelID: channelID, Player: p, Epoch: epoch}, nil
}

// teardown releases the player, the idle timer and the voice connection. A
// connection bound by a Join that raced in after the release is left alone.
func (c *Controller) teardown(sess *session.Session, reason string) {
	sess.StopTimer()
	p, epoch := sess.Release()
	if p != nil {
		stopPlayer(p)
	}
	if conn, ok := c.connector.Connection(sess.GuildID); ok {
		if sess.Epoch() != epoch {
			c.log.Debug().Str("guild_id", sess.GuildID).Msg("Session rebound during teardown, keeping connection")
			return
		}
		if err := conn.Disconnect(); err != nil {
			c.log.Warn().Err(err).Str("guild_id", sess.GuildID).Msg("Voice disconnect failed")
		}
	}
	c.log.Info().Str("guild_id", sess.GuildID).Str("reason", reason).Msg("Voice session closed")
}

func (c *Controller) armIdleTimer(sess *session.Session) {
	if c.cfg.IdleTimeout <= 0 {
		return
	}
	guildID := sess.GuildID
	sess.ArmTimer(c.clock, c.cfg.IdleTimeout, func(seq uint64) {
		c.onIdleTimeout(guildID, seq)
	})
}

// stopPlayer stops p; a player that already finished is fine.
func stopPlayer(p *player.Player) {
	_ = p.Stop()
}
