package wizard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ShiftBot/app/configs"
)

func flowConfig() *configs.Config {
	return &configs.Config{
		Defaults: configs.Defaults{
			PromptTimeoutSeconds: 45,
			Conjunction:          "og",
			Connectors:           []string{"kjører til"},
			CommentFallback:      "Ingen kommentar",
			ShiftBands:           configs.ShiftBands{MorningStart: 6, EveningStart: 14, NightStart: 22},
			ShiftLabels:          configs.ShiftLabels{Morning: "Morgen", Evening: "Kveld", Night: "Natt"},
		},
		Flows: map[string]configs.FlowConfig{
			"opsplan": {
				PeopleFile: "people.csv",
				PlacesFile: "places.csv",
				RoleName:   "Ops på jobb",
				MaxPlaces:  4,
				Settings: []configs.SettingConfig{
					{Name: "percentage", Min: 20, Max: 40, Step: 5, Unit: "%"},
				},
				Report: configs.ReportConfig{OwnerHeading: "Skiftleder", Footer: "Godt skift!"},
				Reminders: []configs.ReminderConfig{
					{DelaySeconds: 3600, Message: "husk bilvask!", Weekdays: []string{"friday"}},
				},
			},
			"mechplan": {
				PeopleFile: "mech.csv",
				PlacesFile: "benches.csv",
			},
		},
	}
}

func TestFlowsFromConfigSortedAndComplete(t *testing.T) {
	flows, err := FlowsFromConfig(flowConfig())
	require.NoError(t, err)
	require.Len(t, flows, 2)
	assert.Equal(t, "mechplan", flows[0].Name)
	assert.Equal(t, "opsplan", flows[1].Name)
}

func TestBuildFlowExpandsSettingRange(t *testing.T) {
	flows, err := FlowsFromConfig(flowConfig())
	require.NoError(t, err)

	ops := flows[1]
	require.Len(t, ops.Settings, 1)
	opts := ops.Settings[0].Options
	require.Len(t, opts, 5) // 20,25,30,35,40
	assert.Equal(t, "20", opts[0].ID)
	assert.Equal(t, "20%", opts[0].Label)
	assert.Equal(t, "40", opts[4].ID)
	assert.Equal(t, "40%", opts[4].Label)
}

func TestBuildFlowDefaultsAndOverrides(t *testing.T) {
	flows, err := FlowsFromConfig(flowConfig())
	require.NoError(t, err)

	ops := flows[1]
	assert.Equal(t, 45*time.Second, ops.CommentTimeout)
	assert.Equal(t, "Where should %s go?", ops.PlacePrompt)
	assert.Contains(t, ops.CommentPrompt, "45 seconds")
	assert.Equal(t, "Skiftleder", ops.Policy.OwnerHeading)
	assert.Equal(t, "og", ops.Policy.Conjunction)
	assert.Equal(t, []string{"kjører til"}, ops.Policy.Connectors)
	assert.Equal(t, "Godt skift!", ops.Policy.Footer)

	mech := flows[0]
	assert.Equal(t, "Shift Leader", mech.Policy.OwnerHeading)
	assert.Empty(t, mech.Settings)
}

func TestBuildFlowParsesReminderWeekdays(t *testing.T) {
	flows, err := FlowsFromConfig(flowConfig())
	require.NoError(t, err)

	ops := flows[1]
	require.Len(t, ops.Reminders, 1)
	assert.Equal(t, time.Hour, ops.Reminders[0].Delay)
	assert.Equal(t, []time.Weekday{time.Friday}, ops.Reminders[0].Weekdays)
}

func TestBuildFlowRejectsUnknownWeekday(t *testing.T) {
	cfg := flowConfig()
	flow := cfg.Flows["opsplan"]
	flow.Reminders = []configs.ReminderConfig{{DelaySeconds: 60, Message: "x", Weekdays: []string{"fredag"}}}
	cfg.Flows["opsplan"] = flow

	_, err := FlowsFromConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown weekday")
}

func TestFlowTree(t *testing.T) {
	flows, err := FlowsFromConfig(flowConfig())
	require.NoError(t, err)

	tree := flows[1].Tree()
	assert.Contains(t, tree, "opsplan")
	assert.Contains(t, tree, "select people (people.csv)")
	assert.Contains(t, tree, "percentage (5 options)")
	assert.Contains(t, tree, "role: Ops på jobb")
	assert.Contains(t, tree, "husk bilvask!")
}
