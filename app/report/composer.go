// Package report turns a finished wizard run into the shift-plan text. It is
// deliberately pure: the caller supplies the clock and the wording policy, so
// identical input always renders identical output.
package report

import (
	"fmt"
	"strings"
	"time"

	"ShiftBot/app/roster"
)

// Setting names with dedicated report sections.
const (
	SettingPercentage     = "percentage"
	SettingGoalPercentage = "goal_percentage"
	SettingDaysInactive   = "days_inactive"
)

// Derived operational percentages, relative to the configured base.
const (
	clusterOffset      = 10
	redeploymentOffset = 15
)

// Policy is the wording and shift-band configuration of a report.
type Policy struct {
	MorningStart int
	EveningStart int
	NightStart   int

	MorningLabel string
	EveningLabel string
	NightLabel   string

	// WeekdayLabels, when exactly 7 entries (Monday first), adds a weekday
	// headline under the shift line.
	WeekdayLabels []string

	OwnerHeading    string
	Conjunction     string
	Connectors      []string
	CommentFallback string
	Footer          string
	IncludeContacts bool
}

// DefaultPolicy matches the historical report wording.
func DefaultPolicy() Policy {
	return Policy{
		MorningStart:    6,
		EveningStart:    14,
		NightStart:      22,
		MorningLabel:    "🌅 Morning Shift",
		EveningLabel:    "🌄 Evening Shift",
		NightLabel:      "🌠 Night Shift",
		OwnerHeading:    "Shift Leader",
		Conjunction:     "and",
		Connectors:      []string{"will go to"},
		CommentFallback: "No additional comment",
	}
}

// ShiftLabel maps an hour of day onto the configured shift band.
func (p Policy) ShiftLabel(hour int) string {
	switch {
	case p.MorningStart <= hour && hour < p.EveningStart:
		return p.MorningLabel
	case p.EveningStart <= hour && hour < p.NightStart:
		return p.EveningLabel
	default:
		return p.NightLabel
	}
}

func (p Policy) connector(i int) string {
	if len(p.Connectors) == 0 {
		return ""
	}
	return p.Connectors[i%len(p.Connectors)]
}

// Run is the finished wizard state a report is composed from.
type Run struct {
	Owner    string
	People   []roster.Entity
	Places   map[string][]string // person ID -> ordered place labels
	Order    []string            // person IDs in resolution order
	Settings map[string]int
	Comment  *string
}

func (r Run) entity(id string) roster.Entity {
	for _, e := range r.People {
		if e.ID == id {
			return e
		}
	}
	return roster.Entity{ID: id, Label: id}
}

// JoinPlaces renders a place list as "A, B and C": comma-joined except the
// last pair, which gets the configured conjunction. One place stands alone,
// zero places render as the empty string.
func JoinPlaces(places []string, conjunction string) string {
	switch len(places) {
	case 0:
		return ""
	case 1:
		return places[0]
	default:
		return fmt.Sprintf("%s %s %s",
			strings.Join(places[:len(places)-1], ", "), conjunction, places[len(places)-1])
	}
}

// Compose renders the shift-plan report for the given run at the given time.
// Section order is fixed: headline, owner, goal, team and areas, operational
// notes, comment, contacts, footer. Settings sections render only when the
// run recorded the setting.
func Compose(run Run, now time.Time, p Policy) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", p.ShiftLabel(now.Hour()), now.Format("02.01.2006"))
	if len(p.WeekdayLabels) == 7 {
		fmt.Fprintf(&b, "**%s**\n", p.WeekdayLabels[(int(now.Weekday())+6)%7])
	}

	fmt.Fprintf(&b, "\n**%s: %s**\n", p.OwnerHeading, run.Owner)

	if goal, ok := run.Settings[SettingGoalPercentage]; ok {
		fmt.Fprintf(&b, "\n🎯 **Goal**\n- Availability: %d%%\n", goal)
	}

	b.WriteString("\n🚦 **Team and Areas**:\n")
	for i, id := range run.Order {
		person := run.entity(id)
		joined := JoinPlaces(run.Places[id], p.Conjunction)
		switch {
		case joined == "":
			fmt.Fprintf(&b, "- %s\n", person.Mention())
		case p.connector(i) == "":
			fmt.Fprintf(&b, "- %s %s\n", person.Mention(), joined)
		default:
			fmt.Fprintf(&b, "- %s %s %s\n", person.Mention(), p.connector(i), joined)
		}
	}

	pct, hasPct := run.Settings[SettingPercentage]
	days, hasDays := run.Settings[SettingDaysInactive]
	switch {
	case hasPct:
		b.WriteString("\n📊 **Operational Notes**:\n")
		if hasDays {
			fmt.Fprintf(&b, "- Inactivity: 🔄 %d%% inactive for %d days.\n", pct, days)
		} else {
			fmt.Fprintf(&b, "- Inactivity: 🔄 %d%% inactive.\n", pct)
		}
		fmt.Fprintf(&b, "- Clusters: ➕ %d%% in clusters.\n", pct+clusterOffset)
		fmt.Fprintf(&b, "- Redeployment: 📉 %d%% on inactives.\n", pct+redeploymentOffset)
	case hasDays:
		fmt.Fprintf(&b, "\n📊 **Operational Notes**:\n- Inactivity window: %d days.\n", days)
	}

	comment := p.CommentFallback
	if run.Comment != nil && strings.TrimSpace(*run.Comment) != "" {
		comment = *run.Comment
	}
	fmt.Fprintf(&b, "\n**Comment**:\n%s\n", comment)

	if p.IncludeContacts {
		var contacts []string
		for _, id := range run.Order {
			person := run.entity(id)
			if person.Phone != "" {
				contacts = append(contacts, fmt.Sprintf("• %s: %s", person.Label, person.Phone))
			}
		}
		if len(contacts) > 0 {
			fmt.Fprintf(&b, "\n📞 **Contact**:\n%s\n", strings.Join(contacts, "\n"))
		}
	}

	if p.Footer != "" {
		fmt.Fprintf(&b, "\n%s\n", p.Footer)
	}

	return b.String()
}
