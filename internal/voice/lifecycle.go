package voice

import (
	"context"
	"fmt"

	"github.com/keshon/voice-relay/internal/session"
	"github.com/keshon/voice-relay/pkg/util"
)

// shutdownWorkers bounds concurrent disconnects on shutdown.
const shutdownWorkers = 8

// OnGuildAdded makes sure the guild has a session.
func (c *Controller) OnGuildAdded(guildID string) {
	c.registry.GetOrCreate(guildID)
}

// OnGuildRemoved releases the guild's voice resources, then forgets it.
func (c *Controller) OnGuildRemoved(guildID string) {
	sess, ok := c.registry.Get(guildID)
	if !ok {
		return
	}
	c.teardown(sess, "guild removed")
	if err := c.registry.Remove(guildID); err != nil {
		c.log.Error().Err(err).Str("guild_id", guildID).Msg("Failed to remove guild session")
	}
}

// OnVoiceStateUpdate handles a member moving between voice channels. When
// the session's channel has no humans left the session disconnects.
func (c *Controller) OnVoiceStateUpdate(guildID, userID, beforeChannelID, afterChannelID string) {
	if beforeChannelID == "" || beforeChannelID == afterChannelID {
		return
	}
	sess, ok := c.registry.Get(guildID)
	if !ok {
		return
	}
	b, ok := c.current(sess)
	if !ok || b.ChannelID != beforeChannelID {
		return
	}
	if c.presence.HumanCount(guildID, beforeChannelID) > 0 {
		return
	}
	c.teardown(sess, "voice channel empty")
}

// OnBotVoiceStateUpdate handles the bot's own voice state. Being
// disconnected from outside (kicked, channel deleted) ends the session.
func (c *Controller) OnBotVoiceStateUpdate(guildID, afterChannelID string) {
	if afterChannelID != "" {
		return
	}
	sess, ok := c.registry.Get(guildID)
	if !ok {
		return
	}
	if _, ok := sess.Binding(); !ok {
		return
	}
	if _, ok := c.connector.Connection(guildID); ok {
		return
	}
	c.teardown(sess, "disconnected by gateway")
}

func (c *Controller) onIdleTimeout(guildID string, seq uint64) {
	sess, ok := c.registry.Get(guildID)
	if !ok || !sess.ClaimTimer(seq) {
		return
	}
	if _, ok := c.current(sess); !ok {
		return
	}
	c.teardown(sess, "idle timeout")
	if act := sess.Action(); act != nil {
		act.Notify(fmt.Sprintf(msgIdle, c.cfg.IdleTimeout))
	}
}

// Shutdown tears down every connected session.
func (c *Controller) Shutdown() {
	_ = util.Parallel(context.Background(), c.registry.All(), shutdownWorkers, func(_ context.Context, sess *session.Session) error {
		if _, ok := sess.Binding(); ok {
			c.teardown(sess, "shutdown")
		} else {
			sess.StopTimer()
		}
		return nil
	})
}
