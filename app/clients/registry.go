package clients

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"ShiftBot/app/configs"
)

type Registry struct {
	mu      sync.RWMutex
	clients []Interface
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make([]Interface, 0),
	}
}

func (r *Registry) Register(client Interface, runner Runner) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	client.Subscribe(runner)
	if err := client.Open(); err != nil {
		return fmt.Errorf("open client: %w", err)
	}
	r.clients = append(r.clients, client)

	return nil
}

func (r *Registry) GetAll() []Interface {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Interface, len(r.clients))
	copy(result, r.clients)
	return result
}

func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, client := range r.clients {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("⚠️ Error closing client")
		}
	}
	r.clients = make([]Interface, 0)
}

func CreateClient(cfg configs.ClientConfig) (Interface, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("client %s is disabled", cfg.Type)
	}

	switch cfg.Type {
	case "discord":
		return NewDiscordClientFromConfig(cfg.Config)
	// Add more client types here in the future:
	// case "slack":
	//     return NewSlackClient(cfg.Config)
	// case "telegram":
	//     return NewTelegramClient(cfg.Config)
	default:
		return nil, fmt.Errorf("unknown client type: %s", cfg.Type)
	}
}
