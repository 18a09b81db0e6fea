package configs

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full bot configuration: the chat clients to connect, the
// storage location, report defaults and one entry per plan flow.
type Config struct {
	Clients  []ClientConfig        `yaml:"clients" validate:"required,min=1,dive"`
	Storage  StorageConfig         `yaml:"storage"`
	Defaults Defaults              `yaml:"defaults"`
	Flows    map[string]FlowConfig `yaml:"flows" validate:"required,min=1,dive"`
}

// ClientConfig defines the configuration for a chat client connector.
type ClientConfig struct {
	Type    string            `yaml:"type" validate:"required"`
	Enabled bool              `yaml:"enabled"`
	Config  map[string]string `yaml:"config,omitempty"`
}

type StorageConfig struct {
	Path string `yaml:"path"`
}

// Defaults carries the knobs shared by every flow. Each has a fallback so a
// minimal config still produces a sensible report.
type Defaults struct {
	PromptTimeoutSeconds int         `yaml:"prompt_timeout_seconds"`
	Conjunction          string      `yaml:"conjunction"`
	CommentFallback      string      `yaml:"comment_fallback"`
	Connectors           []string    `yaml:"connectors"`
	ShiftBands           ShiftBands  `yaml:"shift_bands"`
	ShiftLabels          ShiftLabels `yaml:"shift_labels"`
	WeekdayLabels        []string    `yaml:"weekday_labels"`
}

// ShiftBands are the local-hour boundaries between shift labels. A run that
// starts at MorningStart..EveningStart-1 is a morning shift, and so on; hours
// outside all bands count as night.
type ShiftBands struct {
	MorningStart int `yaml:"morning_start"`
	EveningStart int `yaml:"evening_start"`
	NightStart   int `yaml:"night_start"`
}

type ShiftLabels struct {
	Morning string `yaml:"morning"`
	Evening string `yaml:"evening"`
	Night   string `yaml:"night"`
}

// FlowConfig declares one wizard flow: where its rosters come from, which
// settings widgets it shows, its prompts, and what happens after publishing.
type FlowConfig struct {
	PeopleFile     string           `yaml:"people_file" validate:"required"`
	PlacesFile     string           `yaml:"places_file" validate:"required"`
	PeoplePrompt   string           `yaml:"people_prompt"`
	PlacesPrompt   string           `yaml:"places_prompt"`
	PlacePrompt    string           `yaml:"place_prompt"` // per-person placeholder, %s = name
	SettingsPrompt string           `yaml:"settings_prompt"`
	CommentPrompt  string           `yaml:"comment_prompt"`
	RoleName       string           `yaml:"role_name"`
	MaxPlaces      int              `yaml:"max_places"`
	Settings       []SettingConfig  `yaml:"settings" validate:"dive"`
	Report         ReportConfig     `yaml:"report"`
	Reminders      []ReminderConfig `yaml:"reminders" validate:"dive"`
}

// SettingConfig declares one single-choice numeric setting widget whose
// options are the inclusive range min..max stepped by step.
type SettingConfig struct {
	Name   string `yaml:"name" validate:"required,oneof=percentage goal_percentage days_inactive"`
	Prompt string `yaml:"prompt"`
	Min    int    `yaml:"min"`
	Max    int    `yaml:"max"`
	Step   int    `yaml:"step" validate:"required,min=1"`
	Unit   string `yaml:"unit"`
}

type ReportConfig struct {
	OwnerHeading    string `yaml:"owner_heading"`
	Footer          string `yaml:"footer"`
	IncludeContacts bool   `yaml:"include_contacts"`
}

// ReminderConfig is one delayed follow-up notification. Weekdays, when set,
// restricts the reminder to runs started on those days.
type ReminderConfig struct {
	DelaySeconds int      `yaml:"delay_seconds" validate:"required,min=1"`
	Message      string   `yaml:"message" validate:"required"`
	Weekdays     []string `yaml:"weekdays" validate:"dive,oneof=monday tuesday wednesday thursday friday saturday sunday"`
}

// LoadConfig reads, env-expands and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read configs file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate configs: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Storage.Path == "" {
		c.Storage.Path = "data/shiftbot.db"
	}
	d := &c.Defaults
	if d.PromptTimeoutSeconds <= 0 {
		d.PromptTimeoutSeconds = 60
	}
	if d.Conjunction == "" {
		d.Conjunction = "and"
	}
	if d.CommentFallback == "" {
		d.CommentFallback = "No additional comment"
	}
	if len(d.Connectors) == 0 {
		d.Connectors = []string{"will go to"}
	}
	if d.ShiftBands == (ShiftBands{}) {
		d.ShiftBands = ShiftBands{MorningStart: 6, EveningStart: 14, NightStart: 22}
	}
	if d.ShiftLabels.Morning == "" {
		d.ShiftLabels.Morning = "🌅 Morning Shift"
	}
	if d.ShiftLabels.Evening == "" {
		d.ShiftLabels.Evening = "🌄 Evening Shift"
	}
	if d.ShiftLabels.Night == "" {
		d.ShiftLabels.Night = "🌠 Night Shift"
	}
}

// Validate covers the rules struct tags cannot express.
func (c *Config) Validate() error {
	b := c.Defaults.ShiftBands
	if !(0 <= b.MorningStart && b.MorningStart < b.EveningStart && b.EveningStart < b.NightStart && b.NightStart <= 24) {
		return fmt.Errorf("shift bands must satisfy 0 <= morning < evening < night <= 24, got %+v", b)
	}
	if n := len(c.Defaults.WeekdayLabels); n != 0 && n != 7 {
		return fmt.Errorf("weekday_labels must list exactly 7 labels, got %d", n)
	}

	for name, flow := range c.Flows {
		if err := flow.Validate(); err != nil {
			return fmt.Errorf("flow %s: %w", name, err)
		}
	}
	return nil
}

func (fc FlowConfig) Validate() error {
	seen := make(map[string]bool)
	for _, s := range fc.Settings {
		if seen[s.Name] {
			return fmt.Errorf("setting %q declared twice", s.Name)
		}
		seen[s.Name] = true
		if s.Min > s.Max {
			return fmt.Errorf("setting %q: min %d exceeds max %d", s.Name, s.Min, s.Max)
		}
	}
	return nil
}

// PromptTimeout returns the chat-reply timeout as a duration.
func (d Defaults) PromptTimeout() time.Duration {
	return time.Duration(d.PromptTimeoutSeconds) * time.Second
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekdays maps config weekday names to time.Weekday values.
func ParseWeekdays(names []string) ([]time.Weekday, error) {
	if len(names) == 0 {
		return nil, nil
	}
	days := make([]time.Weekday, 0, len(names))
	for _, name := range names {
		day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", name)
		}
		days = append(days, day)
	}
	return days, nil
}
