package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/voice-relay/internal/audio"
	"github.com/keshon/voice-relay/internal/command"
	"github.com/keshon/voice-relay/internal/config"
	"github.com/keshon/voice-relay/internal/discord"
	"github.com/keshon/voice-relay/internal/docs"
	"github.com/keshon/voice-relay/internal/logging"
	"github.com/keshon/voice-relay/internal/session"
	"github.com/keshon/voice-relay/internal/status"
	"github.com/keshon/voice-relay/internal/storage"
	"github.com/keshon/voice-relay/internal/tts"
	"github.com/keshon/voice-relay/pkg/cmd"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "voice-relay",
	Short:        config.AppName + " reads text channel messages aloud in Discord voice channels",
	SilenceUsage: true,
	RunE: func(c *cobra.Command, args []string) error {
		return run(c.Context())
	},
}

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List the voices offered by a TTS provider",
	RunE: func(c *cobra.Command, args []string) error {
		provider, _ := c.Flags().GetString("provider")
		synth, err := newSynthesizer(&config.Config{
			TTSProvider: provider,
			OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
			OpenAIModel: "tts-1",
		}, zerolog.Nop())
		if err != nil {
			return err
		}
		for _, v := range synth.Voices() {
			fmt.Fprintf(c.OutOrStdout(), "%-8s %s\n", v.ID, v.Label)
		}
		return nil
	},
}

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "Print the slash command definitions as JSON",
	RunE: func(c *cobra.Command, args []string) error {
		r := cmd.NewRegistry()
		command.Register(r, nil, tts.NewGoogle(zerolog.Nop()).Voices())
		enc := json.NewEncoder(c.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(command.Definitions(r))
	},
}

var readmeCmd = &cobra.Command{
	Use:   "readme",
	Short: "Regenerate README.md from README.md.tmpl",
	RunE: func(c *cobra.Command, args []string) error {
		tmpl, _ := c.Flags().GetString("template")
		out, _ := c.Flags().GetString("out")
		r := cmd.NewRegistry()
		command.Register(r, nil, tts.NewGoogle(zerolog.Nop()).Voices())
		if err := docs.UpdateReadme(r, tmpl, out); err != nil {
			return err
		}
		fmt.Fprintf(c.OutOrStdout(), "%s updated\n", out)
		return nil
	},
}

func init() {
	voicesCmd.Flags().String("provider", "google", "TTS provider (google, openai)")
	readmeCmd.Flags().String("template", "README.md.tmpl", "template path")
	readmeCmd.Flags().String("out", "README.md", "output path")
	rootCmd.AddCommand(voicesCmd, commandsCmd, readmeCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}

	log := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		Color:      cfg.LogConsoleColor,
	})
	logging.RedirectDiscordgo(log)
	log.Info().Str("app", config.AppName).Msg("Starting bot")

	store, err := storage.Open(cfg.StorageDriver, cfg.StoragePath, log)
	if err != nil {
		return err
	}
	defer store.Close()

	synth, err := newSynthesizer(cfg, log)
	if err != nil {
		return err
	}

	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("failed to create discord session: %w", err)
	}

	registry := session.NewRegistry(log)
	bot := discord.New(cfg, dg, store, synth, audio.NewDecoder(cfg.AudioDecoder, cfg.FFmpegPath), registry, log)

	go func() {
		if err := status.NewServer(cfg.StatusAddr, registry, log).Run(ctx); err != nil {
			log.Error().Err(err).Msg("Status server stopped")
		}
	}()

	if err := bot.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Discord bot error")
		return err
	}
	log.Info().Msg("Discord bot exited cleanly")
	return nil
}

func newSynthesizer(cfg *config.Config, log zerolog.Logger) (tts.Synthesizer, error) {
	switch cfg.TTSProvider {
	case "google", "":
		return tts.NewGoogle(log), nil
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
		return tts.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel, "", log), nil
	default:
		return nil, fmt.Errorf("unknown TTS provider %q", cfg.TTSProvider)
	}
}
