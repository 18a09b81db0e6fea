package wizard

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/xlab/treeprint"

	"ShiftBot/app/configs"
	"ShiftBot/app/reminders"
	"ShiftBot/app/report"
	"ShiftBot/app/roster"
)

// SettingSpec is one single-choice settings widget of a flow.
type SettingSpec struct {
	Name    string
	Prompt  string
	Options []roster.Entity
}

// Flow is the declarative description of one wizard: its rosters, prompts,
// settings widgets, report wording and post-publish side effects. The same
// sequencer runs every flow; opsplan and mechplan differ only in their Flow.
type Flow struct {
	Name           string
	PeopleFile     string
	PlacesFile     string
	PeoplePrompt   string
	PlacesPrompt   string
	PlacePrompt    string // per-person placeholder, %s = person label
	SettingsPrompt string
	CommentPrompt  string
	CommentTimeout time.Duration
	RoleName       string
	MaxPlaces      int
	Settings       []SettingSpec
	Reminders      []reminders.Spec
	Policy         report.Policy
}

// FlowsFromConfig expands every configured flow into a runnable Flow,
// sorted by name so startup logging and tests are stable.
func FlowsFromConfig(cfg *configs.Config) ([]Flow, error) {
	names := make([]string, 0, len(cfg.Flows))
	for name := range cfg.Flows {
		names = append(names, name)
	}
	sort.Strings(names)

	flows := make([]Flow, 0, len(names))
	for _, name := range names {
		flow, err := buildFlow(name, cfg.Flows[name], cfg.Defaults)
		if err != nil {
			return nil, fmt.Errorf("flow %s: %w", name, err)
		}
		flows = append(flows, flow)
	}
	return flows, nil
}

func buildFlow(name string, fc configs.FlowConfig, d configs.Defaults) (Flow, error) {
	flow := Flow{
		Name:           name,
		PeopleFile:     fc.PeopleFile,
		PlacesFile:     fc.PlacesFile,
		PeoplePrompt:   fc.PeoplePrompt,
		PlacesPrompt:   fc.PlacesPrompt,
		PlacePrompt:    fc.PlacePrompt,
		SettingsPrompt: fc.SettingsPrompt,
		CommentPrompt:  fc.CommentPrompt,
		CommentTimeout: d.PromptTimeout(),
		RoleName:       fc.RoleName,
		MaxPlaces:      fc.MaxPlaces,
		Policy:         buildPolicy(fc, d),
	}

	if flow.PeoplePrompt == "" {
		flow.PeoplePrompt = "Please select the people on shift:"
	}
	if flow.PlacesPrompt == "" {
		flow.PlacesPrompt = "Assign places for each selected person:"
	}
	if flow.PlacePrompt == "" {
		flow.PlacePrompt = "Where should %s go?"
	}
	if flow.SettingsPrompt == "" {
		flow.SettingsPrompt = "Please configure additional settings:"
	}
	if flow.CommentPrompt == "" {
		flow.CommentPrompt = fmt.Sprintf(
			"If you have additional notes or instructions, type them in the chat below. You have %d seconds:",
			int(flow.CommentTimeout.Seconds()))
	}

	for _, sc := range fc.Settings {
		flow.Settings = append(flow.Settings, SettingSpec{
			Name:    sc.Name,
			Prompt:  settingPrompt(sc),
			Options: expandRange(sc),
		})
	}

	for _, rc := range fc.Reminders {
		days, err := configs.ParseWeekdays(rc.Weekdays)
		if err != nil {
			return Flow{}, err
		}
		flow.Reminders = append(flow.Reminders, reminders.Spec{
			Delay:    time.Duration(rc.DelaySeconds) * time.Second,
			Message:  rc.Message,
			Weekdays: days,
		})
	}

	return flow, nil
}

func buildPolicy(fc configs.FlowConfig, d configs.Defaults) report.Policy {
	policy := report.DefaultPolicy()
	policy.MorningStart = d.ShiftBands.MorningStart
	policy.EveningStart = d.ShiftBands.EveningStart
	policy.NightStart = d.ShiftBands.NightStart
	policy.MorningLabel = d.ShiftLabels.Morning
	policy.EveningLabel = d.ShiftLabels.Evening
	policy.NightLabel = d.ShiftLabels.Night
	policy.WeekdayLabels = d.WeekdayLabels
	policy.Conjunction = d.Conjunction
	policy.Connectors = d.Connectors
	policy.CommentFallback = d.CommentFallback
	policy.Footer = fc.Report.Footer
	policy.IncludeContacts = fc.Report.IncludeContacts
	if fc.Report.OwnerHeading != "" {
		policy.OwnerHeading = fc.Report.OwnerHeading
	}
	return policy
}

func settingPrompt(sc configs.SettingConfig) string {
	if sc.Prompt != "" {
		return sc.Prompt
	}
	return "Select " + sc.Name
}

// expandRange turns min..max/step into the widget option list.
func expandRange(sc configs.SettingConfig) []roster.Entity {
	var options []roster.Entity
	for v := sc.Min; v <= sc.Max; v += sc.Step {
		options = append(options, roster.Entity{
			ID:    strconv.Itoa(v),
			Label: fmt.Sprintf("%d%s", v, sc.Unit),
		})
	}
	return options
}

// Tree renders the flow's step plan for startup diagnostics.
func (f Flow) Tree() string {
	tree := treeprint.New()
	tree.SetValue(f.Name)

	steps := tree.AddBranch("steps")
	steps.AddNode("select people (" + f.PeopleFile + ")")
	steps.AddNode("assign places (" + f.PlacesFile + ")")
	if len(f.Settings) > 0 {
		settings := steps.AddBranch("settings")
		for _, s := range f.Settings {
			settings.AddNode(fmt.Sprintf("%s (%d options)", s.Name, len(s.Options)))
		}
	}
	steps.AddNode(fmt.Sprintf("comment prompt (%s timeout)", f.CommentTimeout))

	if len(f.Reminders) > 0 {
		rems := tree.AddBranch("reminders")
		for _, r := range f.Reminders {
			rems.AddNode(fmt.Sprintf("after %s: %s", r.Delay, r.Message))
		}
	}
	if f.RoleName != "" {
		tree.AddNode("role: " + f.RoleName)
	}
	return tree.String()
}
