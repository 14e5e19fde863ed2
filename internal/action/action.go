// /internal/action/action.go
package action

import (
	"errors"
	"net/http"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Replier is the subset of *discordgo.Session used to answer requests.
type Replier interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
}

// Action answers exactly one inbound request. Reply delivers the primary
// answer once; later replies degrade to Notify. Nothing here returns an
// error: failures are logged and absorbed.
type Action struct {
	ID string

	req   Request
	r     Replier
	muted bool
	log   zerolog.Logger

	mu        sync.Mutex
	responded bool
	deferred  bool
}

// New wraps req. muted is the guild's mute flag at the time of the request.
func New(r Replier, req Request, muted bool, log zerolog.Logger) *Action {
	id := uuid.NewString()
	return &Action{
		ID:    id,
		req:   req,
		r:     r,
		muted: muted,
		log: log.With().
			Str("action_id", id).
			Str("kind", req.kind()).
			Str("guild_id", req.GuildID()).
			Str("channel_id", req.ChannelID()).
			Logger(),
	}
}

func (a *Action) Request() Request { return a.req }

func (a *Action) Muted() bool { return a.muted }

// Responded reports whether a primary answer has been delivered.
func (a *Action) Responded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.responded
}

// Defer acknowledges a command now so Reply can fill in content later. For
// message requests it only shows a typing indicator.
func (a *Action) Defer() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.responded || a.deferred {
		return
	}

	switch req := a.req.(type) {
	case CommandRequest:
		data := &discordgo.InteractionResponseData{}
		if a.muted {
			data.Flags = discordgo.MessageFlagsEphemeral
		}
		err := a.r.InteractionRespond(req.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
			Data: data,
		})
		if err != nil {
			a.log.Warn().Err(err).Msg("Failed to defer interaction")
			return
		}
		a.deferred = true
	case MessageRequest:
		if a.muted {
			return
		}
		if err := a.r.ChannelTyping(req.Message.ChannelID); err != nil {
			a.log.Debug().Err(err).Msg("Failed to send typing indicator")
		}
	}
}

// Reply delivers the primary answer, or a notification if one was already
// delivered.
func (a *Action) Reply(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.responded {
		a.notify(text)
		return
	}

	var err error
	switch req := a.req.(type) {
	case CommandRequest:
		err = a.replyCommand(req, text)
	case MessageRequest:
		if a.muted {
			a.log.Debug().Msg("Reply suppressed: guild is muted")
			a.responded = true
			return
		}
		_, err = a.r.ChannelMessageSend(req.Message.ChannelID, text)
	}
	if err == nil {
		a.responded = true
		return
	}

	if !IsPermissionError(err) {
		a.log.Error().Err(err).Msg("Failed to deliver reply")
		return
	}
	// Muted guilds get no channel fallback; the request still counts as answered.
	if a.muted {
		a.log.Warn().Err(err).Msg("Missing permission to reply; fallback suppressed: guild is muted")
		a.responded = true
		return
	}

	a.log.Warn().Err(err).Msg("Missing permission to reply, falling back to channel message")
	if _, ferr := a.r.ChannelMessageSend(a.req.ChannelID(), text); ferr != nil {
		a.log.Error().Err(ferr).Msg("Fallback reply failed")
		return
	}
	a.responded = true
}

func (a *Action) replyCommand(req CommandRequest, text string) error {
	if a.deferred {
		_, err := a.r.InteractionResponseEdit(req.Interaction, &discordgo.WebhookEdit{Content: &text})
		return err
	}
	data := &discordgo.InteractionResponseData{Content: text}
	if a.muted {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return a.r.InteractionRespond(req.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

// Notify posts an informational message into the originating channel.
func (a *Action) Notify(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.notify(text)
}

func (a *Action) notify(text string) {
	if a.muted {
		return
	}
	if _, err := a.r.ChannelMessageSend(a.req.ChannelID(), text); err != nil {
		if IsPermissionError(err) {
			a.log.Warn().Err(err).Msg("Missing permission to notify, dropped")
			return
		}
		a.log.Error().Err(err).Msg("Failed to notify")
	}
}

// IsPermissionError reports whether err is Discord refusing the bot access
// to the channel or the action.
func IsPermissionError(err error) bool {
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) {
		return false
	}
	if rest.Message != nil {
		switch rest.Message.Code {
		case discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeMissingAccess:
			return true
		}
	}
	return rest.Response != nil && rest.Response.StatusCode == http.StatusForbidden
}
