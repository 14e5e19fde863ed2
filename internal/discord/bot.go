// Package discord connects the voice relay to the Discord gateway: it turns
// gateway events into session operations and provides the voice transport.
package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/voice-relay/internal/audio"
	"github.com/keshon/voice-relay/internal/command"
	"github.com/keshon/voice-relay/internal/config"
	"github.com/keshon/voice-relay/internal/session"
	"github.com/keshon/voice-relay/internal/storage"
	"github.com/keshon/voice-relay/internal/tts"
	"github.com/keshon/voice-relay/internal/voice"
	"github.com/keshon/voice-relay/pkg/cmd"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildVoiceStates |
	discordgo.IntentsMessageContent

// Bot is a Discord bot
type Bot struct {
	cfg      *config.Config
	dg       *discordgo.Session
	store    storage.Store
	synth    tts.Synthesizer
	voice    *voice.Controller
	commands *cmd.Registry
	sync     *commandSync
	log      zerolog.Logger

	ctx context.Context
}

// New wires a bot around an unopened discordgo session.
func New(cfg *config.Config, dg *discordgo.Session, store storage.Store, synth tts.Synthesizer, decoder audio.Decoder, registry *session.Registry, log zerolog.Logger) *Bot {
	presence := &statePresence{state: dg.State}
	connector := &voiceConnector{dg: dg, presence: presence, log: log}

	b := &Bot{
		cfg:      cfg,
		dg:       dg,
		store:    store,
		synth:    synth,
		commands: cmd.NewRegistry(),
		log:      log,
		ctx:      context.Background(),
	}
	b.voice = voice.NewController(registry, connector, presence, synth, decoder, store, voice.Config{
		IdleTimeout:  cfg.IdleTimeout,
		MaxLength:    cfg.MaxTextLength,
		SynthTimeout: cfg.SynthTimeout,
		DefaultVoice: cfg.DefaultVoice,
		DefaultRate:  cfg.DefaultRate,
	}, log)
	command.Register(b.commands, store, synth.Voices())

	// Discord allows 200 command creates per day per guild; stay far below
	// the burst limit as well.
	limiter := rate.NewLimiter(rate.Every(250*time.Millisecond), 4)
	b.sync = newCommandSync(dg, newCommandCache(cfg.CommandCacheDir), limiter, log)
	return b
}

// Run opens the gateway and blocks until ctx is canceled, then tears every
// voice session down and closes the gateway.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx
	b.dg.Identify.Intents = intents
	b.dg.StateEnabled = true
	b.dg.State.TrackVoice = true

	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onGuildCreate)
	b.dg.AddHandler(b.onGuildDelete)
	b.dg.AddHandler(b.onInteractionCreate)
	b.dg.AddHandler(b.onMessageCreate)
	b.dg.AddHandler(b.onVoiceStateUpdate)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}

	<-ctx.Done()
	b.log.Info().Msg("Shutdown signal received. Cleaning up...")
	b.voice.Shutdown()
	if err := b.dg.Close(); err != nil {
		return fmt.Errorf("failed to close Discord session: %w", err)
	}
	return nil
}
