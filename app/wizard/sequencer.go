package wizard

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"ShiftBot/app/clients"
	"ShiftBot/app/roster"
)

// Run phases. Everything from StateFinalizing on is terminal for event
// processing: late selection events and chat replies are ignored.
const (
	StateAwaitingPeople = iota
	StateAwaitingPlaces
	StateAwaitingSettings
	StateAwaitingComment
	StateFinalizing
	StateDone
	StateAbandoned
)

// Widget step IDs routed back by the platform adapter.
const (
	stepPeople        = "people"
	stepPlacePrefix   = "place:"
	stepSettingPrefix = "setting:"
)

// RunFinalizer performs the terminal side effects of a run.
type RunFinalizer interface {
	Finalize(ctx context.Context, flow Flow, st *State) error
}

// Deps are the collaborators a sequencer drives. LoadRoster and Clock
// default to roster.Load and time.Now when nil.
type Deps struct {
	Widgets    clients.WidgetPresenter
	Prompts    clients.PromptChannel
	Transport  clients.MessageTransport
	Finalizer  RunFinalizer
	LoadRoster func(path string) ([]roster.Entity, error)
	Clock      func() time.Time
}

func (d *Deps) fill() {
	if d.LoadRoster == nil {
		d.LoadRoster = roster.Load
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
}

// Sequencer owns one run's state and decides, after each incoming event,
// whether a step completed and which step runs next. Platform callbacks
// arrive on arbitrary goroutines; the mutex makes every record-then-check an
// uninterrupted step, and the finalized latch guarantees the terminal
// transition fires exactly once no matter how events interleave.
type Sequencer struct {
	mu        sync.Mutex
	flow      Flow
	deps      Deps
	state     *State
	phase     int
	finalized bool

	people []roster.Entity
	places []roster.Entity

	done func() // invoked once when the run reaches a terminal phase
}

func NewSequencer(flow Flow, deps Deps, runID, channelID, ownerID, ownerDisplay string) *Sequencer {
	deps.fill()
	return &Sequencer{
		flow:  flow,
		deps:  deps,
		phase: StateAwaitingPeople,
		state: newState(runID, channelID, ownerID, ownerDisplay, deps.Clock()),
	}
}

// Start loads the flow's reference data and presents the people widget.
// Empty reference data fails the run before any UI is shown.
func (s *Sequencer) Start(ctx context.Context) error {
	people, err := s.deps.LoadRoster(s.flow.PeopleFile)
	if err != nil {
		return fmt.Errorf("%w: people: %v", ErrConfiguration, err)
	}
	places, err := s.deps.LoadRoster(s.flow.PlacesFile)
	if err != nil {
		return fmt.Errorf("%w: places: %v", ErrConfiguration, err)
	}
	if len(people) == 0 || len(places) == 0 {
		return fmt.Errorf("%w: %s has %d people, %d places", ErrConfiguration, s.flow.Name, len(people), len(places))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.people = people
	s.places = places

	refs, err := s.deps.Widgets.Present(ctx, s.state.ChannelID, s.flow.PeoplePrompt, []clients.WidgetStep{{
		StepID:      stepPeople,
		Placeholder: "Select people",
		Options:     people,
		Multiple:    true,
	}}, s.sink(ctx))
	s.state.track(refs...)
	if err != nil {
		s.abandonLocked(fmt.Errorf("%w: %v", ErrStaleInteraction, err))
		return err
	}
	return nil
}

func (s *Sequencer) sink(ctx context.Context) clients.SelectionHandler {
	return func(stepID string, values []string) {
		s.OnSelection(ctx, stepID, values)
	}
}

// OnSelection is the sink for every widget of the run. It records the event,
// evaluates the step's completion predicate and advances — all in one
// uninterrupted critical section.
func (s *Sequencer) OnSelection(ctx context.Context, stepID string, values []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminalLocked() {
		log.Debug().Str("run", s.state.RunID).Str("step", stepID).Msg("Selection after run ended, ignoring")
		return
	}
	if len(values) == 0 {
		// Cannot happen while the platform enforces a minimum of one; the
		// still-live widget is its own re-prompt.
		log.Debug().Str("run", s.state.RunID).Str("step", stepID).Msg("Empty selection, ignoring")
		return
	}

	switch {
	case stepID == stepPeople:
		s.onPeopleSelected(ctx, values)
	case strings.HasPrefix(stepID, stepPlacePrefix):
		s.onPlaceSelected(ctx, strings.TrimPrefix(stepID, stepPlacePrefix), values)
	case strings.HasPrefix(stepID, stepSettingPrefix):
		s.onSettingSelected(ctx, strings.TrimPrefix(stepID, stepSettingPrefix), values)
	default:
		log.Warn().Str("run", s.state.RunID).Str("step", stepID).Msg("⚠️ Selection for unknown step, ignoring")
	}
}

func (s *Sequencer) onPeopleSelected(ctx context.Context, values []string) {
	if s.phase != StateAwaitingPeople {
		log.Debug().Str("run", s.state.RunID).Msg("Repeated people selection, ignoring")
		return
	}

	s.state.addPeople(values, s.people)
	if len(s.state.People) == 0 {
		log.Warn().Str("run", s.state.RunID).Msg("⚠️ People selection matched nobody on the roster")
		return
	}

	log.Info().Str("run", s.state.RunID).Int("people", len(s.state.People)).Msgf("✅ People selected for %s", s.flow.Name)
	s.phase = StateAwaitingPlaces
	s.presentPlaceWidgetsLocked(ctx)
}

func (s *Sequencer) onPlaceSelected(ctx context.Context, personID string, values []string) {
	if s.phase != StateAwaitingPlaces {
		log.Debug().Str("run", s.state.RunID).Str("person", personID).Msg("Place selection outside assignment step, ignoring")
		return
	}
	if s.state.person(personID) == nil {
		log.Warn().Str("run", s.state.RunID).Str("person", personID).Msg("⚠️ Place selection for unselected person, ignoring")
		return
	}
	if !s.state.recordAssignment(personID, s.placeLabels(values)) {
		log.Debug().Str("run", s.state.RunID).Str("person", personID).Msg("Person already resolved, ignoring late event")
		return
	}

	// Record-then-check with no suspension point in between: the event that
	// completes the mapping is the only one that can advance the phase.
	if !s.state.assignmentComplete() {
		return
	}

	log.Info().Str("run", s.state.RunID).Msg("✅ All places assigned")
	if len(s.flow.Settings) > 0 {
		s.phase = StateAwaitingSettings
		s.presentSettingsWidgetsLocked(ctx)
		return
	}
	s.beginCommentLocked(ctx)
}

func (s *Sequencer) onSettingSelected(ctx context.Context, name string, values []string) {
	if s.phase != StateAwaitingSettings {
		log.Debug().Str("run", s.state.RunID).Str("setting", name).Msg("Setting selection outside settings step, ignoring")
		return
	}
	if s.settingSpec(name) == nil {
		log.Warn().Str("run", s.state.RunID).Str("setting", name).Msg("⚠️ Selection for undeclared setting, ignoring")
		return
	}
	if _, done := s.state.Settings[name]; done {
		log.Debug().Str("run", s.state.RunID).Str("setting", name).Msg("Setting already recorded, ignoring")
		return
	}
	value, err := strconv.Atoi(values[0])
	if err != nil {
		log.Warn().Err(err).Str("run", s.state.RunID).Str("setting", name).Msg("⚠️ Non-numeric setting value, ignoring")
		return
	}

	s.state.Settings[name] = value
	log.Info().Str("run", s.state.RunID).Str("setting", name).Int("value", value).Msg("✅ Setting recorded")

	if len(s.state.Settings) == len(s.flow.Settings) {
		s.beginCommentLocked(ctx)
	}
}

// OnChatReply is the sink for the timed comment prompt. A timeout or blank
// reply records no comment; either way the run finalizes.
func (s *Sequencer) OnChatReply(ctx context.Context, text string, timedOut bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != StateAwaitingComment || s.finalized {
		log.Debug().Str("run", s.state.RunID).Msg("Chat reply outside comment step, ignoring")
		return
	}
	if !timedOut && strings.TrimSpace(text) != "" {
		comment := text
		s.state.Comment = &comment
	}
	s.finalizeLocked(ctx)
}

// Abandon stops the run without a report: the interaction context is gone
// and no recovery is possible beyond re-invoking the command.
func (s *Sequencer) Abandon(reason error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.abandonLocked(reason)
}

// Phase reports the current run phase.
func (s *Sequencer) Phase() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Snapshot returns the run state for inspection. The caller must treat it as
// read-only once the run is live.
func (s *Sequencer) Snapshot() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Sequencer) terminalLocked() bool {
	return s.phase >= StateFinalizing
}

func (s *Sequencer) settingSpec(name string) *SettingSpec {
	for i := range s.flow.Settings {
		if s.flow.Settings[i].Name == name {
			return &s.flow.Settings[i]
		}
	}
	return nil
}

// placeLabels maps chosen place IDs back to display labels, keeping the
// selection order. Unknown IDs pass through as-is.
func (s *Sequencer) placeLabels(values []string) []string {
	labels := make([]string, 0, len(values))
	for _, v := range values {
		label := v
		for _, place := range s.places {
			if place.ID == v {
				label = place.Label
				break
			}
		}
		labels = append(labels, label)
	}
	return labels
}

// presentPlaceWidgetsLocked spawns one place picker per selected person. All
// of them are live simultaneously; their events may interleave freely.
func (s *Sequencer) presentPlaceWidgetsLocked(ctx context.Context) {
	steps := make([]clients.WidgetStep, 0, len(s.state.People))
	for _, person := range s.state.People {
		steps = append(steps, clients.WidgetStep{
			StepID:      stepPlacePrefix + person.ID,
			Placeholder: fmt.Sprintf(s.flow.PlacePrompt, person.Label),
			Options:     s.places,
			Multiple:    true,
			MaxChoices:  s.flow.MaxPlaces,
		})
	}

	refs, err := s.deps.Widgets.Present(ctx, s.state.ChannelID, s.flow.PlacesPrompt, steps, s.sink(ctx))
	s.state.track(refs...)
	if err != nil {
		s.abandonLocked(fmt.Errorf("%w: %v", ErrStaleInteraction, err))
	}
}

func (s *Sequencer) presentSettingsWidgetsLocked(ctx context.Context) {
	steps := make([]clients.WidgetStep, 0, len(s.flow.Settings))
	for _, setting := range s.flow.Settings {
		steps = append(steps, clients.WidgetStep{
			StepID:      stepSettingPrefix + setting.Name,
			Placeholder: setting.Prompt,
			Options:     setting.Options,
		})
	}

	refs, err := s.deps.Widgets.Present(ctx, s.state.ChannelID, s.flow.SettingsPrompt, steps, s.sink(ctx))
	s.state.track(refs...)
	if err != nil {
		s.abandonLocked(fmt.Errorf("%w: %v", ErrStaleInteraction, err))
	}
}

func (s *Sequencer) beginCommentLocked(ctx context.Context) {
	s.phase = StateAwaitingComment
	go s.askComment(ctx)
}

func (s *Sequencer) askComment(ctx context.Context) {
	result, err := s.deps.Prompts.Ask(ctx, s.state.ChannelID, s.state.OwnerID, s.flow.CommentPrompt, s.flow.CommentTimeout)
	if err != nil {
		log.Warn().Err(err).Str("run", s.state.RunID).Msg("⚠️ Comment prompt failed, continuing without comment")
	}

	if result.Prompt != (clients.MessageRef{}) {
		s.mu.Lock()
		s.state.track(result.Prompt)
		s.mu.Unlock()
	}

	s.OnChatReply(ctx, result.Reply, !result.Answered)
}

// finalizeLocked consumes the one-shot latch: the first caller to observe
// completion flips it and hands the state to the finalizer, every later
// caller is a no-op.
func (s *Sequencer) finalizeLocked(ctx context.Context) {
	if s.finalized {
		return
	}
	s.finalized = true
	s.phase = StateFinalizing
	go s.runFinalize(ctx)
}

func (s *Sequencer) runFinalize(ctx context.Context) {
	err := s.deps.Finalizer.Finalize(ctx, s.flow, s.state)

	s.mu.Lock()
	s.phase = StateDone
	s.mu.Unlock()

	if err != nil {
		log.Error().Err(err).Str("run", s.state.RunID).Msg("❌ Run finalization failed")
		if s.deps.Transport != nil {
			notice := "⚠️ Could not publish the shift plan. Please run the command again."
			if _, serr := s.deps.Transport.Send(ctx, s.state.ChannelID, notice); serr != nil {
				log.Warn().Err(serr).Str("run", s.state.RunID).Msg("⚠️ Could not notify channel about the failure")
			}
		}
	} else {
		log.Info().Str("run", s.state.RunID).Msgf("🎉 %s run completed", s.flow.Name)
	}

	if s.done != nil {
		s.done()
	}
}

func (s *Sequencer) abandonLocked(reason error) {
	if s.terminalLocked() {
		return
	}
	s.phase = StateAbandoned
	s.finalized = true
	log.Warn().Err(reason).Str("run", s.state.RunID).Msgf("🚧 %s run abandoned", s.flow.Name)
	if s.done != nil {
		go s.done()
	}
}
