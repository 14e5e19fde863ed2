package voice

import (
	"context"
	"testing"

	"github.com/matryer/is"
)

func TestEmptyChannelAutoLeave(t *testing.T) {
	is := is.New(t)
	h := newHarness(Config{})
	h.presence.move("u1", "v1")

	is.Equal(h.ctl.Speak(context.Background(), h.message("hi"), "g1", "u1", "hi"), Started)
	eventually(t, "playback", func() bool { return h.ctl.State("g1") == ConnectedIdle })
	sess, _ := h.registry.Get("g1")
	is.True(sess.HasTimer())

	h.presence.move("u1", "")
	h.ctl.OnVoiceStateUpdate("g1", "u1", "v1", "")

	is.Equal(h.ctl.State("g1"), Disconnected)
	is.True(!sess.HasTimer())
	_, disconnects := h.connector.stats()
	is.Equal(disconnects, 1)
}

func TestChannelWithHumansStays(t *testing.T) {
	is := is.New(t)
	h := newHarness(Config{})
	h.presence.move("u1", "v1")
	h.presence.move("u2", "v1")
	is.Equal(h.ctl.Join(context.Background(), h.command(), "g1", "u1"), Joined)

	h.presence.move("u2", "v3")
	h.ctl.OnVoiceStateUpdate("g1", "u2", "v1", "v3")
	is.Equal(h.ctl.State("g1"), ConnectedIdle)

	// leaving some other channel does not matter
	h.ctl.OnVoiceStateUpdate("g1", "u3", "v9", "")
	is.Equal(h.ctl.State("g1"), ConnectedIdle)
}

func TestBotDisconnectedExternally(t *testing.T) {
	is := is.New(t)
	h := newHarness(Config{})
	h.presence.move("u1", "v1")
	is.Equal(h.ctl.Join(context.Background(), h.command(), "g1", "u1"), Joined)

	// still connected: the update is ignored
	h.ctl.OnBotVoiceStateUpdate("g1", "")
	is.Equal(h.ctl.State("g1"), ConnectedIdle)

	is.NoErr(h.connector.drop("g1"))
	h.ctl.OnBotVoiceStateUpdate("g1", "")

	sess, _ := h.registry.Get("g1")
	_, bound := sess.Binding()
	is.True(!bound)
}

func TestGuildAddedIsIdempotent(t *testing.T) {
	is := is.New(t)
	h := newHarness(Config{})

	h.ctl.OnGuildAdded("g1")
	first, _ := h.registry.Get("g1")
	h.ctl.OnGuildAdded("g1")
	second, _ := h.registry.Get("g1")

	is.True(first == second)
	is.Equal(h.registry.Len(), 1)
}

func TestGuildRemovedReleasesThenRemoves(t *testing.T) {
	is := is.New(t)
	h := newHarness(Config{})
	h.presence.move("u1", "v1")
	is.Equal(h.ctl.Speak(context.Background(), h.message("hi"), "g1", "u1", "hi"), Started)

	h.ctl.OnGuildRemoved("g1")

	_, ok := h.registry.Get("g1")
	is.True(!ok)
	_, disconnects := h.connector.stats()
	is.Equal(disconnects, 1)

	// unknown guilds are ignored
	h.ctl.OnGuildRemoved("g2")
}

func TestShutdownTearsDownEverySession(t *testing.T) {
	is := is.New(t)
	h := newHarness(Config{})
	h.presence.move("u1", "v1")
	is.Equal(h.ctl.Join(context.Background(), h.command(), "g1", "u1"), Joined)
	h.ctl.OnGuildAdded("g2")

	h.ctl.Shutdown()

	is.Equal(h.ctl.State("g1"), Disconnected)
	_, disconnects := h.connector.stats()
	is.Equal(disconnects, 1)
}
