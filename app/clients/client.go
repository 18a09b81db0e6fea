package clients

import (
	"context"
	"time"

	"ShiftBot/app/roster"
)

// MessageRef identifies one message on the chat platform, opaquely enough for
// later delete/pin/unpin calls.
type MessageRef struct {
	ChannelID string
	MessageID string
}

// WidgetStep is one multi-choice control to render. The StepID comes back
// verbatim with every selection event so the caller can route it.
type WidgetStep struct {
	StepID      string
	Placeholder string
	Options     []roster.Entity
	Multiple    bool
	MaxChoices  int // 0 = as many as offered
}

// SelectionHandler receives the chosen entity IDs whenever a widget fires.
// Handlers may be called concurrently and more than once per widget.
type SelectionHandler func(stepID string, values []string)

// WidgetPresenter renders selection widgets in a channel. Implementations cap
// options per widget and widgets per message at the platform limits and split
// across messages beyond that. Returned refs cover every message sent.
type WidgetPresenter interface {
	Present(ctx context.Context, channelID, prompt string, steps []WidgetStep, onSelect SelectionHandler) ([]MessageRef, error)
}

// PromptResult is the outcome of a timed chat prompt. Answered is false when
// the wait timed out; the prompt message ref is reported for later cleanup.
type PromptResult struct {
	Reply    string
	Answered bool
	Prompt   MessageRef
}

// PromptChannel sends a text prompt and waits for the next message from the
// given user in the given channel, bounded by timeout. Timing out is not an
// error.
type PromptChannel interface {
	Ask(ctx context.Context, channelID, userID, prompt string, timeout time.Duration) (PromptResult, error)
}

// MessageTransport is the plain send/delete/pin surface of the platform.
// Every call can fail independently.
type MessageTransport interface {
	Send(ctx context.Context, channelID, text string) (MessageRef, error)
	Delete(ctx context.Context, ref MessageRef) error
	Pin(ctx context.Context, ref MessageRef) error
	Unpin(ctx context.Context, ref MessageRef) error
	// ListPinned returns the channel's pinned messages authored by the bot.
	ListPinned(ctx context.Context, channelID string) ([]MessageRef, error)
}

// RoleService syncs a named role: revoke it from everyone who holds it, then
// grant it to exactly the given members.
type RoleService interface {
	SyncRole(ctx context.Context, roleName string, memberIDs []string) error
}

// Runner starts wizard runs in response to chat commands.
type Runner interface {
	StartRun(ctx context.Context, trigger, channelID, userID, userDisplay string) error
}

// Interface is the lifecycle every chat client connector implements.
type Interface interface {
	Subscribe(r Runner)
	Open() error
	Close() error
}
