package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ShiftBot/app/clients"
	"ShiftBot/app/configs"
	"ShiftBot/app/reminders"
	"ShiftBot/app/storage"
	"ShiftBot/app/wizard"
)

func main() {
	configPath := flag.String("config", defaultConfigPath(), "path to the YAML configuration")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := configs.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("❌ Could not load configuration")
	}

	store, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Could not open storage")
	}
	defer store.Close()

	flows, err := wizard.FlowsFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Could not build flows")
	}
	for _, f := range flows {
		log.Info().Msgf("🧭 Flow loaded:\n%s", f.Tree())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := clients.NewRegistry()

	// Collaborators are wired after the client exists: the finalizer and the
	// scheduler both talk through the platform connector itself.
	for _, cc := range cfg.Clients {
		if !cc.Enabled {
			log.Info().Str("client", cc.Type).Msg("⏭️ Client disabled, skipping")
			continue
		}
		client, err := clients.CreateClient(cc)
		if err != nil {
			log.Fatal().Err(err).Str("client", cc.Type).Msg("❌ Could not create chat client")
		}

		transport, ok := client.(clients.MessageTransport)
		if !ok {
			log.Fatal().Str("client", cc.Type).Msg("❌ Client does not support message transport")
		}
		widgets, _ := client.(clients.WidgetPresenter)
		prompts, _ := client.(clients.PromptChannel)
		roles, _ := client.(clients.RoleService)

		scheduler := reminders.NewScheduler(transport)
		finalizer := wizard.NewFinalizer(transport, roles, store, scheduler)
		manager := wizard.NewManager(flows, wizard.Deps{
			Widgets:   widgets,
			Prompts:   prompts,
			Transport: transport,
			Finalizer: finalizer,
		})

		if err := registry.Register(client, manager); err != nil {
			log.Fatal().Err(err).Str("client", cc.Type).Msg("❌ Could not open chat client")
		}
		log.Info().Str("client", cc.Type).Msg("🔌 Chat client connected")
	}

	log.Info().Msg("✅ ShiftBot is running")
	<-ctx.Done()

	log.Info().Msg("👋 Shutting down")
	registry.CloseAll()
}

func defaultConfigPath() string {
	if p := os.Getenv("SHIFTBOT_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}
