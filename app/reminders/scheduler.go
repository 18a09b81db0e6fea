// Package reminders fires delayed follow-up notifications to the people
// captured by a finished run. Reminders are fire-and-forget: they are not
// persisted, not retried and not cancelled by later runs.
package reminders

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"ShiftBot/app/clients"
	"ShiftBot/app/roster"
)

// Spec is one delayed notification. Weekdays, when non-empty, restricts the
// reminder to runs started on those days.
type Spec struct {
	Delay    time.Duration
	Message  string
	Weekdays []time.Weekday
}

func (s Spec) appliesOn(day time.Weekday) bool {
	return len(s.Weekdays) == 0 || slices.Contains(s.Weekdays, day)
}

// Sender is the narrow transport slice the scheduler needs.
type Sender interface {
	Send(ctx context.Context, channelID, text string) (clients.MessageRef, error)
}

type Scheduler struct {
	sender Sender
}

func NewScheduler(sender Sender) *Scheduler {
	return &Scheduler{sender: sender}
}

// Schedule starts one independent timer per applicable spec. Each fires on
// its own; a failed send is logged, never retried, and never cancels the
// others. Cancelling ctx stops timers that have not fired yet.
func (s *Scheduler) Schedule(ctx context.Context, channelID string, recipients []roster.Entity, specs []Spec, start time.Time) {
	for _, spec := range specs {
		if !spec.appliesOn(start.Weekday()) {
			continue
		}
		go s.fire(ctx, channelID, recipients, spec)
	}
}

func (s *Scheduler) fire(ctx context.Context, channelID string, recipients []roster.Entity, spec Spec) {
	timer := time.NewTimer(spec.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	mentions := make([]string, 0, len(recipients))
	for _, r := range recipients {
		mentions = append(mentions, r.Mention())
	}
	text := strings.TrimSpace(strings.Join(mentions, " ") + " " + spec.Message)

	if _, err := s.sender.Send(ctx, channelID, text); err != nil {
		log.Warn().Err(err).Str("channel", channelID).Msgf("⚠️ Could not send reminder: %s", spec.Message)
	}
}
