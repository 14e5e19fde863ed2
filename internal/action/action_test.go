package action

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/matryer/is"
	"github.com/rs/zerolog"
)

type call struct {
	method    string
	channelID string
	content   string
	respType  discordgo.InteractionResponseType
	ephemeral bool
}

type fakeReplier struct {
	mu         sync.Mutex
	calls      []call
	respondErr error
	editErr    error
	sendErrs   []error
}

func (f *fakeReplier) InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := call{method: "respond", respType: resp.Type}
	if resp.Data != nil {
		c.content = resp.Data.Content
		c.ephemeral = resp.Data.Flags&discordgo.MessageFlagsEphemeral != 0
	}
	if f.respondErr != nil {
		return f.respondErr
	}
	f.calls = append(f.calls, c)
	return nil
}

func (f *fakeReplier) InteractionResponseEdit(i *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return nil, f.editErr
	}
	f.calls = append(f.calls, call{method: "edit", content: *edit.Content})
	return &discordgo.Message{}, nil
}

func (f *fakeReplier) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	f.calls = append(f.calls, call{method: "send", channelID: channelID, content: content})
	return &discordgo.Message{}, nil
}

func (f *fakeReplier) ChannelTyping(channelID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{method: "typing", channelID: channelID})
	return nil
}

func permissionError() error {
	return fmt.Errorf("respond: %w", &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusForbidden},
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeMissingPermissions, Message: "Missing Permissions"},
	})
}

func command() Request {
	return CommandRequest{Interaction: &discordgo.Interaction{
		GuildID:   "g1",
		ChannelID: "c1",
		Member:    &discordgo.Member{User: &discordgo.User{ID: "u1"}},
	}}
}

func message() Request {
	return MessageRequest{Message: &discordgo.Message{
		GuildID:   "g1",
		ChannelID: "c1",
		Author:    &discordgo.User{ID: "u1"},
	}}
}

func TestReplyOnce(t *testing.T) {
	is := is.New(t)
	f := &fakeReplier{}
	a := New(f, command(), false, zerolog.Nop())

	a.Reply("first")
	a.Reply("second")

	is.Equal(len(f.calls), 2)
	is.Equal(f.calls[0].method, "respond")
	is.Equal(f.calls[0].content, "first")
	is.Equal(f.calls[1].method, "send") // degraded to a notification
	is.Equal(f.calls[1].content, "second")
	is.True(a.Responded())
}

func TestReplyFallsBackOnPermissionError(t *testing.T) {
	is := is.New(t)
	f := &fakeReplier{respondErr: permissionError()}
	a := New(f, command(), false, zerolog.Nop())

	a.Reply("hello")

	is.Equal(len(f.calls), 1)
	is.Equal(f.calls[0].method, "send")
	is.Equal(f.calls[0].channelID, "c1")
	is.True(a.Responded())
}

func TestReplyFallbackFailureLeavesUnresponded(t *testing.T) {
	is := is.New(t)
	f := &fakeReplier{respondErr: permissionError(), sendErrs: []error{permissionError()}}
	a := New(f, command(), false, zerolog.Nop())

	a.Reply("hello")

	is.Equal(len(f.calls), 0)
	is.True(!a.Responded())
}

func TestReplyOtherErrorsDoNotFallBack(t *testing.T) {
	is := is.New(t)
	f := &fakeReplier{respondErr: errors.New("unknown interaction")}
	a := New(f, command(), false, zerolog.Nop())

	a.Reply("hello")

	is.Equal(len(f.calls), 0)
	is.True(!a.Responded())
}

func TestMessageReplyPostsToChannel(t *testing.T) {
	is := is.New(t)
	f := &fakeReplier{}
	a := New(f, message(), false, zerolog.Nop())

	a.Reply("hi")

	is.Equal(len(f.calls), 1)
	is.Equal(f.calls[0], call{method: "send", channelID: "c1", content: "hi"})
}

func TestMutedMessageReplySuppressed(t *testing.T) {
	is := is.New(t)
	f := &fakeReplier{}
	a := New(f, message(), true, zerolog.Nop())

	a.Reply("hi")
	a.Notify("also hidden")

	is.Equal(len(f.calls), 0)
	is.True(a.Responded())
}

func TestMutedCommandIsEphemeral(t *testing.T) {
	is := is.New(t)
	f := &fakeReplier{}
	a := New(f, command(), true, zerolog.Nop())

	a.Reply("only you")

	is.Equal(len(f.calls), 1)
	is.Equal(f.calls[0].method, "respond")
	is.True(f.calls[0].ephemeral)
	is.True(a.Responded())
}

func TestMutedDeferredCommandStillEdits(t *testing.T) {
	is := is.New(t)
	f := &fakeReplier{}
	a := New(f, command(), true, zerolog.Nop())

	a.Defer()
	a.Reply("channel set")

	is.Equal(len(f.calls), 2)
	is.Equal(f.calls[0].respType, discordgo.InteractionResponseDeferredChannelMessageWithSource)
	is.True(f.calls[0].ephemeral) // hidden from everyone else
	is.Equal(f.calls[1].method, "edit")
	is.Equal(f.calls[1].content, "channel set")
	is.True(a.Responded())
}

func TestDeferredEditFallsBack(t *testing.T) {
	is := is.New(t)
	f := &fakeReplier{editErr: permissionError()}
	a := New(f, command(), false, zerolog.Nop())

	a.Defer()
	a.Reply("done")

	is.Equal(len(f.calls), 2)
	is.Equal(f.calls[1].method, "send")
	is.True(a.Responded())
}

func TestDeferMessageSendsTyping(t *testing.T) {
	is := is.New(t)
	f := &fakeReplier{}
	a := New(f, message(), false, zerolog.Nop())

	a.Defer()
	a.Defer()

	is.Equal(len(f.calls), 1)
	is.Equal(f.calls[0].method, "typing")
	is.True(!a.Responded())
}

func TestNotifyDropsPermissionError(t *testing.T) {
	is := is.New(t)
	f := &fakeReplier{sendErrs: []error{permissionError()}}
	a := New(f, message(), false, zerolog.Nop())

	a.Notify("fyi")
	a.Notify("fyi again")

	is.Equal(len(f.calls), 1)
	is.True(!a.Responded())
}

func TestConcurrentRepliesDeliverOnePrimary(t *testing.T) {
	is := is.New(t)
	f := &fakeReplier{}
	a := New(f, command(), false, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Reply("x")
		}()
	}
	wg.Wait()

	responds := 0
	for _, c := range f.calls {
		if c.method == "respond" {
			responds++
		}
	}
	is.Equal(responds, 1)
}

func TestIsPermissionError(t *testing.T) {
	is := is.New(t)
	is.True(IsPermissionError(permissionError()))
	is.True(IsPermissionError(&discordgo.RESTError{
		Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeMissingAccess},
	}))
	is.True(!IsPermissionError(&discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusNotFound},
	}))
	is.True(!IsPermissionError(errors.New("boom")))
}
