package roster

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// Entity is one selectable row from a roster file: a person on shift, a work
// area, or a task. ID is unique within one file and is what selection widgets
// report back; Label is what users see.
type Entity struct {
	ID     string
	Label  string
	Handle string // platform user ID, used for mentions and role sync
	Phone  string
}

// Mention renders the entity as a platform mention, falling back to the label
// when no handle is known.
func (e Entity) Mention() string {
	if e.Handle != "" {
		return "<@" + e.Handle + ">"
	}
	return e.Label
}

// Load reads an ordered entity list from a CSV file with a header row.
// Required column: label. Optional: value, username, phone. Rows without a
// value get a generated one so every entity stays selectable.
func Load(path string) ([]Entity, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read roster %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	cols := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["label"]; !ok {
		return nil, fmt.Errorf("roster %s: missing label column", path)
	}

	field := func(row []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var entities []Entity
	seen := make(map[string]bool)
	for i, row := range records[1:] {
		label := field(row, "label")
		if label == "" {
			continue
		}
		id := field(row, "value")
		if id == "" {
			id = fmt.Sprintf("generated_value_%d", i)
		}
		if seen[id] {
			return nil, fmt.Errorf("roster %s: duplicate value %q", path, id)
		}
		seen[id] = true
		entities = append(entities, Entity{
			ID:     id,
			Label:  label,
			Handle: field(row, "username"),
			Phone:  field(row, "phone"),
		})
	}
	return entities, nil
}
