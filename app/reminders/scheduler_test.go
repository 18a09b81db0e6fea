package reminders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ShiftBot/app/clients"
	"ShiftBot/app/roster"
)

type captureSender struct {
	mu   sync.Mutex
	sent []string
	errs map[string]error
}

func (c *captureSender) Send(_ context.Context, _ string, text string) (clients.MessageRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err, ok := c.errs[text]; ok {
		return clients.MessageRef{}, err
	}
	c.sent = append(c.sent, text)
	return clients.MessageRef{MessageID: "m1"}, nil
}

func (c *captureSender) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

var crew = []roster.Entity{
	{ID: "p1", Label: "Anna", Handle: "111"},
	{ID: "p2", Label: "Bjørn"},
}

func TestScheduleFiresEachSpecIndependently(t *testing.T) {
	sender := &captureSender{}
	s := NewScheduler(sender)

	s.Schedule(context.Background(), "chan-1", crew, []Spec{
		{Delay: time.Millisecond, Message: "first"},
		{Delay: 5 * time.Millisecond, Message: "second"},
	}, time.Now())

	require.Eventually(t, func() bool { return len(sender.messages()) == 2 }, time.Second, 5*time.Millisecond)
	assert.ElementsMatch(t, []string{
		"<@111> Bjørn first",
		"<@111> Bjørn second",
	}, sender.messages())
}

func TestScheduleSendFailureDoesNotAffectOthers(t *testing.T) {
	sender := &captureSender{errs: map[string]error{"<@111> Bjørn broken": errors.New("boom")}}
	s := NewScheduler(sender)

	s.Schedule(context.Background(), "chan-1", crew, []Spec{
		{Delay: time.Millisecond, Message: "broken"},
		{Delay: time.Millisecond, Message: "fine"},
	}, time.Now())

	require.Eventually(t, func() bool { return len(sender.messages()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"<@111> Bjørn fine"}, sender.messages())
}

func TestScheduleWeekdayFilter(t *testing.T) {
	sender := &captureSender{}
	s := NewScheduler(sender)

	friday := time.Date(2026, 3, 13, 9, 0, 0, 0, time.UTC)
	monday := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)

	s.Schedule(context.Background(), "chan-1", crew, []Spec{
		{Delay: time.Millisecond, Message: "car wash", Weekdays: []time.Weekday{time.Friday}},
	}, friday)
	require.Eventually(t, func() bool { return len(sender.messages()) == 1 }, time.Second, 5*time.Millisecond)

	s.Schedule(context.Background(), "chan-1", crew, []Spec{
		{Delay: time.Millisecond, Message: "car wash", Weekdays: []time.Weekday{time.Friday}},
	}, monday)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, sender.messages(), 1)
}

func TestScheduleContextCancelStopsPendingTimers(t *testing.T) {
	sender := &captureSender{}
	s := NewScheduler(sender)

	ctx, cancel := context.WithCancel(context.Background())
	s.Schedule(ctx, "chan-1", crew, []Spec{
		{Delay: time.Hour, Message: "never"},
	}, time.Now())
	cancel()

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, sender.messages())
}

func TestAppliesOnEmptyMeansEveryDay(t *testing.T) {
	spec := Spec{}
	for d := time.Sunday; d <= time.Saturday; d++ {
		assert.True(t, spec.appliesOn(d))
	}
	spec.Weekdays = []time.Weekday{time.Friday}
	assert.True(t, spec.appliesOn(time.Friday))
	assert.False(t, spec.appliesOn(time.Monday))
}
