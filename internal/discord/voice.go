package discord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/voice-relay/internal/audio"
	"github.com/keshon/voice-relay/internal/voice"
	"github.com/rs/zerolog"
	"layeh.com/gopus"
)

// sendTimeout bounds how long a frame may wait for the voice websocket.
const sendTimeout = time.Second

var errVoiceStalled = errors.New("voice connection stopped accepting audio")

// voiceConnector joins voice channels through discordgo. The session's own
// VoiceConnections map is the source of truth for live connections.
type voiceConnector struct {
	dg       *discordgo.Session
	presence *statePresence
	log      zerolog.Logger
}

func (c *voiceConnector) Connect(ctx context.Context, guildID, channelID string) (voice.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.log.Debug().Str("guild_id", guildID).Str("channel_id", channelID).Msg("Joining voice channel")
	vc, err := c.dg.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		if vc != nil {
			_ = vc.Disconnect()
		}
		return nil, fmt.Errorf("failed to join voice channel: %w", err)
	}
	return &connection{vc: vc, connector: c}, nil
}

// Connection returns the guild's voice connection if the gateway still has
// the bot in a voice channel there.
func (c *voiceConnector) Connection(guildID string) (voice.Connection, bool) {
	c.dg.RLock()
	vc, ok := c.dg.VoiceConnections[guildID]
	c.dg.RUnlock()
	if !ok || vc == nil {
		return nil, false
	}
	if c.dg.State.User == nil {
		return nil, false
	}
	if _, in := c.presence.UserVoiceChannel(guildID, c.dg.State.User.ID); !in {
		return nil, false
	}
	return &connection{vc: vc, connector: c}, true
}

// connection encodes PCM frames to Opus and feeds the voice websocket. Only
// the player bound to it writes frames.
type connection struct {
	vc        *discordgo.VoiceConnection
	connector *voiceConnector
	enc       *gopus.Encoder
}

func (c *connection) ChannelID() string {
	if c.connector.dg.State.User != nil {
		if ch, ok := c.connector.presence.UserVoiceChannel(c.vc.GuildID, c.connector.dg.State.User.ID); ok {
			return ch
		}
	}
	c.vc.RLock()
	defer c.vc.RUnlock()
	return c.vc.ChannelID
}

func (c *connection) Speaking(on bool) error {
	return c.vc.Speaking(on)
}

func (c *connection) WriteFrame(pcm []int16) error {
	if c.enc == nil {
		enc, err := gopus.NewEncoder(audio.SampleRate, audio.Channels, gopus.Audio)
		if err != nil {
			return fmt.Errorf("encoder error: %w", err)
		}
		c.enc = enc
	}
	packet, err := c.enc.Encode(pcm, audio.FrameSize, audio.FrameBytes)
	if err != nil {
		return fmt.Errorf("encode error: %w", err)
	}

	timer := time.NewTimer(sendTimeout)
	defer timer.Stop()
	select {
	case c.vc.OpusSend <- packet:
		return nil
	case <-timer.C:
		return errVoiceStalled
	}
}

func (c *connection) Disconnect() error {
	return c.vc.Disconnect()
}

// statePresence answers voice presence questions from the gateway state cache.
type statePresence struct {
	state *discordgo.State
}

func (p *statePresence) UserVoiceChannel(guildID, userID string) (string, bool) {
	vs, err := p.state.VoiceState(guildID, userID)
	if err != nil || vs == nil || vs.ChannelID == "" {
		return "", false
	}
	return vs.ChannelID, true
}

func (p *statePresence) HumanCount(guildID, channelID string) int {
	guild, err := p.state.Guild(guildID)
	if err != nil {
		return 0
	}

	type occupant struct {
		userID string
		bot    bool
		known  bool
	}
	self := ""
	if p.state.User != nil {
		self = p.state.User.ID
	}

	p.state.RLock()
	var occupants []occupant
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != channelID || vs.UserID == self {
			continue
		}
		o := occupant{userID: vs.UserID}
		if vs.Member != nil && vs.Member.User != nil {
			o.bot, o.known = vs.Member.User.Bot, true
		}
		occupants = append(occupants, o)
	}
	p.state.RUnlock()

	humans := 0
	for _, o := range occupants {
		if !o.known {
			if m, err := p.state.Member(guildID, o.userID); err == nil && m.User != nil {
				o.bot = m.User.Bot
			}
		}
		if !o.bot {
			humans++
		}
	}
	return humans
}
