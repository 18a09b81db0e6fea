package wizard

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"ShiftBot/app/clients"
	"ShiftBot/app/reminders"
	"ShiftBot/app/report"
	"ShiftBot/app/roster"
	"ShiftBot/app/storage"
)

// ReminderScheduler is the narrow scheduling slice the finalizer needs.
type ReminderScheduler interface {
	Schedule(ctx context.Context, channelID string, recipients []roster.Entity, specs []reminders.Spec, start time.Time)
}

// Finalizer runs the terminal sequence of a completed run: clean up prompts,
// publish and pin the report, persist the owner of record, resync the role
// and schedule reminders. Every step except publishing is best-effort.
type Finalizer struct {
	Transport clients.MessageTransport
	Roles     clients.RoleService
	Store     storage.Interface
	Reminders ReminderScheduler
	Clock     func() time.Time
}

func NewFinalizer(transport clients.MessageTransport, roles clients.RoleService, store storage.Interface, rems ReminderScheduler) *Finalizer {
	return &Finalizer{
		Transport: transport,
		Roles:     roles,
		Store:     store,
		Reminders: rems,
		Clock:     time.Now,
	}
}

func (f *Finalizer) Finalize(ctx context.Context, flow Flow, st *State) error {
	// Drain the wizard's own messages first so the report lands in a clean
	// channel. A message the user already deleted is not a problem.
	for _, ref := range st.Pending {
		if err := f.Transport.Delete(ctx, ref); err != nil {
			log.Warn().Err(err).Str("run", st.RunID).Str("message", ref.MessageID).Msg("⚠️ Could not delete wizard message")
		}
	}
	st.Pending = nil

	pinned, err := f.Transport.ListPinned(ctx, st.ChannelID)
	if err != nil {
		log.Warn().Err(err).Str("run", st.RunID).Msg("⚠️ Could not list pinned messages")
	}
	for _, ref := range pinned {
		if err := f.Transport.Unpin(ctx, ref); err != nil {
			log.Warn().Err(err).Str("run", st.RunID).Str("message", ref.MessageID).Msg("⚠️ Could not unpin old report")
		}
	}

	text := report.Compose(st.reportRun(), f.Clock(), flow.Policy)
	published, err := f.Transport.Send(ctx, st.ChannelID, text)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFatalPublish, err)
	}
	log.Info().Str("run", st.RunID).Str("message", published.MessageID).Msg("📨 Report published")

	if err := f.Transport.Pin(ctx, published); err != nil {
		log.Warn().Err(err).Str("run", st.RunID).Msg("⚠️ Could not pin the report")
	}

	if err := f.Store.WriteCurrentOwner(ctx, st.Owner); err != nil {
		log.Error().Err(err).Str("run", st.RunID).Msg("❌ Could not persist shift leader")
	}
	if err := f.Store.SaveRoster(ctx, st.People); err != nil {
		log.Error().Err(err).Str("run", st.RunID).Msg("❌ Could not persist shift roster")
	}

	if flow.RoleName != "" && f.Roles != nil {
		handles := make([]string, 0, len(st.People))
		for _, p := range st.People {
			if p.Handle != "" {
				handles = append(handles, p.Handle)
			}
		}
		if err := f.Roles.SyncRole(ctx, flow.RoleName, handles); err != nil {
			log.Warn().Err(err).Str("run", st.RunID).Str("role", flow.RoleName).Msg("⚠️ Could not resync role")
		}
	}

	if len(flow.Reminders) > 0 && f.Reminders != nil {
		f.Reminders.Schedule(ctx, st.ChannelID, st.People, flow.Reminders, st.StartedAt)
	}

	return nil
}
