// Package voice drives the per-guild voice session: joining and leaving
// voice channels, speaking one utterance at a time and disconnecting when
// the session goes idle or its channel empties.
package voice

import (
	"context"

	"github.com/keshon/voice-relay/internal/player"
	"github.com/keshon/voice-relay/internal/storage"
)

type State int

const (
	Disconnected State = iota
	ConnectedIdle
	ConnectedPlaying
)

func (s State) String() string {
	switch s {
	case ConnectedIdle:
		return "connected"
	case ConnectedPlaying:
		return "playing"
	default:
		return "disconnected"
	}
}

// Result is the outcome of a controller operation. Users see it as text
// through the request's Action.
type Result int

const (
	Joined Result = iota
	AlreadyConnected
	NotInVoice
	JoinFailed
	Left
	NotConnected
	Started
	Busy
	Skipped
	SynthesisFailed
	Stale
)

// Connection is a live voice connection owned by the transport.
type Connection interface {
	player.Sink
	ChannelID() string
	Disconnect() error
}

// Connector opens voice connections and looks up the ones it holds.
type Connector interface {
	Connect(ctx context.Context, guildID, channelID string) (Connection, error)
	Connection(guildID string) (Connection, bool)
}

// Presence answers who is in which voice channel.
type Presence interface {
	// UserVoiceChannel returns the voice channel the user is in.
	UserVoiceChannel(guildID, userID string) (channelID string, ok bool)
	// HumanCount counts non-bot members in a voice channel.
	HumanCount(guildID, channelID string) int
}

// Prefs is the read side of the preference store used for speech.
type Prefs interface {
	UserPrefs(userID string) (storage.UserPrefs, error)
}

const (
	msgNotInVoice       = "Join a voice channel first."
	msgAlreadyConnected = "Already connected to <#%s>."
	msgJoined           = "Joined <#%s>."
	msgJoinFailed       = "Failed to join the voice channel."
	msgNotConnected     = "Not connected to a voice channel."
	msgLeft             = "Left the voice channel."
	msgBusy             = "Already playing, wait for the current message to finish."
	msgTruncated        = "Message too long, truncated to %d characters."
	msgSynthFailed      = "Failed to synthesize speech."
	msgStale            = "The voice session changed while preparing speech, message dropped."
	msgSpeaking         = "🔊 Speaking."
	msgIdle             = "Left the voice channel after %s of inactivity."
)
