package wizard

import (
	"time"

	"ShiftBot/app/clients"
	"ShiftBot/app/report"
	"ShiftBot/app/roster"
)

// State is the mutable record of one run. It is owned exclusively by the
// run's sequencer: every access goes through the sequencer mutex, and the
// whole record is discarded when the run finalizes or is abandoned.
type State struct {
	RunID     string
	ChannelID string
	OwnerID   string
	Owner     string // display name, captured at start, immutable afterwards
	StartedAt time.Time

	People      []roster.Entity     // insertion order = selection event order
	Assignments map[string][]string // person ID -> ordered place labels
	AssignOrder []string            // person IDs in resolution order
	Settings    map[string]int      // each written at most once
	Comment     *string             // nil = timed out or blank

	// Pending holds every bot-authored message still awaiting cleanup. It is
	// append-only until finalization drains it.
	Pending []clients.MessageRef
}

func newState(runID, channelID, ownerID, owner string, startedAt time.Time) *State {
	return &State{
		RunID:       runID,
		ChannelID:   channelID,
		OwnerID:     ownerID,
		Owner:       owner,
		StartedAt:   startedAt,
		Assignments: make(map[string][]string),
		Settings:    make(map[string]int),
	}
}

// addPeople records the chosen IDs, preserving event order and suppressing
// duplicates. IDs not present in the available roster are dropped.
func (s *State) addPeople(values []string, available []roster.Entity) {
	byID := make(map[string]roster.Entity, len(available))
	for _, e := range available {
		byID[e.ID] = e
	}
	have := make(map[string]bool, len(s.People))
	for _, e := range s.People {
		have[e.ID] = true
	}
	for _, id := range values {
		e, ok := byID[id]
		if !ok || have[id] {
			continue
		}
		have[id] = true
		s.People = append(s.People, e)
	}
}

func (s *State) person(id string) *roster.Entity {
	for i := range s.People {
		if s.People[i].ID == id {
			return &s.People[i]
		}
	}
	return nil
}

// recordAssignment writes a person's places exactly once; a second event for
// the same person reports false and changes nothing.
func (s *State) recordAssignment(personID string, places []string) bool {
	if _, done := s.Assignments[personID]; done {
		return false
	}
	s.Assignments[personID] = places
	s.AssignOrder = append(s.AssignOrder, personID)
	return true
}

// assignmentComplete is true once every selected person has a recorded list,
// empty or not.
func (s *State) assignmentComplete() bool {
	return len(s.Assignments) == len(s.People)
}

func (s *State) track(refs ...clients.MessageRef) {
	s.Pending = append(s.Pending, refs...)
}

func (s *State) reportRun() report.Run {
	return report.Run{
		Owner:    s.Owner,
		People:   s.People,
		Places:   s.Assignments,
		Order:    s.AssignOrder,
		Settings: s.Settings,
		Comment:  s.Comment,
	}
}
