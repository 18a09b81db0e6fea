package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ShiftBot/app/roster"
)

func TestJoinPlaces(t *testing.T) {
	tests := []struct {
		name   string
		places []string
		want   string
	}{
		{"empty", nil, ""},
		{"single", []string{"Dock"}, "Dock"},
		{"pair", []string{"Dock", "Yard"}, "Dock and Yard"},
		{"three", []string{"Dock", "Yard", "Gate"}, "Dock, Yard and Gate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, JoinPlaces(tt.places, "and"))
		})
	}
}

func TestShiftLabelBands(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		hour int
		want string
	}{
		{5, p.NightLabel},
		{6, p.MorningLabel},
		{13, p.MorningLabel},
		{14, p.EveningLabel},
		{21, p.EveningLabel},
		{22, p.NightLabel},
		{0, p.NightLabel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.ShiftLabel(tt.hour), "hour %d", tt.hour)
	}
}

func TestComposeCommentFallback(t *testing.T) {
	run := Run{Owner: "Anna"}
	p := DefaultPolicy()
	now := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)

	out := Compose(run, now, p)
	assert.Contains(t, out, "No additional comment")

	blank := "   "
	run.Comment = &blank
	out = Compose(run, now, p)
	assert.Contains(t, out, "No additional comment")

	note := "check batteries"
	run.Comment = &note
	out = Compose(run, now, p)
	assert.Contains(t, out, "check batteries")
	assert.NotContains(t, out, "No additional comment")
}

func TestComposeFullReport(t *testing.T) {
	run := Run{
		Owner: "Anna",
		People: []roster.Entity{
			{ID: "a", Label: "Alice", Handle: "111", Phone: "+47 1"},
			{ID: "b", Label: "Bob", Handle: "222"},
		},
		Places: map[string][]string{
			"a": {"Warehouse"},
			"b": {"Dock", "Yard"},
		},
		Order:    []string{"a", "b"},
		Settings: map[string]int{SettingPercentage: 40, SettingGoalPercentage: 90},
		Comment:  ptr("check batteries"),
	}
	p := DefaultPolicy()
	p.WeekdayLabels = []string{"Mandag", "Tirsdag", "Onsdag", "Torsdag", "Fredag", "Lørdag", "Søndag"}
	p.Connectors = []string{"will go to", "fixes"}
	p.IncludeContacts = true
	p.Footer = "Have a good shift!"

	// Monday 2026-03-09 at 09:00 lands in the morning band.
	now := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	out := Compose(run, now, p)

	assert.Contains(t, out, p.MorningLabel+" 09.03.2026")
	assert.Contains(t, out, "**Mandag**")
	assert.Contains(t, out, "**Shift Leader: Anna**")
	assert.Contains(t, out, "Availability: 90%")
	assert.Contains(t, out, "- <@111> will go to Warehouse")
	assert.Contains(t, out, "- <@222> fixes Dock and Yard")
	assert.Contains(t, out, "40% inactive.")
	assert.Contains(t, out, "50% in clusters.")
	assert.Contains(t, out, "55% on inactives.")
	assert.Contains(t, out, "check batteries")
	assert.Contains(t, out, "• Alice: +47 1")
	assert.NotContains(t, out, "Bob:") // no phone, no contact row
	assert.Contains(t, out, "Have a good shift!")

	// Fixed section order.
	wantOrder := []string{"Shift Leader", "Goal", "Team and Areas", "Operational Notes", "Comment", "Contact", "Have a good shift!"}
	last := -1
	for _, section := range wantOrder {
		idx := strings.Index(out, section)
		require.GreaterOrEqual(t, idx, 0, "section %q missing", section)
		require.Greater(t, idx, last, "section %q out of order", section)
		last = idx
	}
}

func TestComposeOmitsUnsetSettings(t *testing.T) {
	run := Run{
		Owner:  "Anna",
		People: []roster.Entity{{ID: "a", Label: "Alice"}},
		Places: map[string][]string{"a": {"Dock"}},
		Order:  []string{"a"},
	}
	out := Compose(run, time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC), DefaultPolicy())

	assert.NotContains(t, out, "Goal")
	assert.NotContains(t, out, "Operational Notes")
	assert.Contains(t, out, "- Alice will go to Dock")
}

func TestComposeDaysInactiveOnly(t *testing.T) {
	run := Run{
		Owner:    "Anna",
		Settings: map[string]int{SettingDaysInactive: 5},
	}
	out := Compose(run, time.Now(), DefaultPolicy())
	assert.Contains(t, out, "Inactivity window: 5 days.")
	assert.NotContains(t, out, "clusters")
}

func TestComposePersonWithoutPlaces(t *testing.T) {
	run := Run{
		Owner:  "Anna",
		People: []roster.Entity{{ID: "a", Label: "Alice"}},
		Places: map[string][]string{"a": {}},
		Order:  []string{"a"},
	}
	out := Compose(run, time.Now(), DefaultPolicy())
	assert.Contains(t, out, "- Alice\n")
	assert.NotContains(t, out, "- Alice will go to")
}

func ptr(s string) *string { return &s }
