package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Manager maps chat commands onto flows and owns the live runs. It is the
// Runner the chat clients call into.
type Manager struct {
	mu    sync.Mutex
	flows map[string]Flow
	deps  Deps
	runs  map[string]*Sequencer
}

func NewManager(flows []Flow, deps Deps) *Manager {
	deps.fill()
	byName := make(map[string]Flow, len(flows))
	for _, f := range flows {
		byName[f.Name] = f
	}
	return &Manager{
		flows: byName,
		deps:  deps,
		runs:  make(map[string]*Sequencer),
	}
}

// StartRun launches the flow named by the trigger. Each invocation is an
// independent run; runs in the same channel do not interfere with each other
// beyond sharing the channel's messages.
func (m *Manager) StartRun(ctx context.Context, trigger, channelID, userID, userDisplay string) error {
	m.mu.Lock()
	flow, ok := m.flows[trigger]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("no flow for command %q", trigger)
	}

	runID := uuid.NewString()
	seq := NewSequencer(flow, m.deps, runID, channelID, userID, userDisplay)
	seq.done = func() {
		m.mu.Lock()
		delete(m.runs, runID)
		m.mu.Unlock()
	}

	m.mu.Lock()
	m.runs[runID] = seq
	m.mu.Unlock()

	log.Info().Str("run", runID).Str("flow", flow.Name).Str("channel", channelID).Msgf("🚀 Starting %s run for %s", flow.Name, userDisplay)

	if err := seq.Start(ctx); err != nil {
		m.mu.Lock()
		delete(m.runs, runID)
		m.mu.Unlock()

		if errors.Is(err, ErrConfiguration) && m.deps.Transport != nil {
			notice := fmt.Sprintf("⚠️ The %s command is not configured correctly. Please contact an administrator.", flow.Name)
			if _, serr := m.deps.Transport.Send(ctx, channelID, notice); serr != nil {
				log.Warn().Err(serr).Str("run", runID).Msg("⚠️ Could not notify channel about configuration problem")
			}
		}
		return err
	}
	return nil
}

// ActiveRuns reports how many runs are currently live.
func (m *Manager) ActiveRuns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runs)
}
