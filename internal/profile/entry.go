package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tinytelemetry/rsvexclude/internal/model"
)

// ErrMalformedLine marks a profile line that is not a usable log entry.
// The reducer counts these and moves on.
var ErrMalformedLine = errors.New("profile: malformed line")

// rawEntry mirrors the on-disk shape. Pointers distinguish absent keys from
// empty strings; time and oldValue are loose since nothing reads them.
type rawEntry struct {
	Master   *string         `json:"master"`
	ID       *string         `json:"id"`
	Time     json.RawMessage `json:"time"`
	Field    *string         `json:"field"`
	OldValue json.RawMessage `json:"oldValue"`
	NewValue *string         `json:"newValue"`
}

// ParseEntry decodes one profile log line. Lines that are not JSON objects,
// lack id, master, field or newValue, or name an unknown field return an
// error wrapping ErrMalformedLine.
func ParseEntry(line string) (model.LogEntry, error) {
	var raw rawEntry
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return model.LogEntry{}, fmt.Errorf("%w: %w", ErrMalformedLine, err)
	}

	var missing []string
	if raw.ID == nil || *raw.ID == "" {
		missing = append(missing, "id")
	}
	if raw.Master == nil || *raw.Master == "" {
		missing = append(missing, "master")
	}
	if raw.Field == nil {
		missing = append(missing, "field")
	}
	if raw.NewValue == nil {
		missing = append(missing, "newValue")
	}
	if len(missing) > 0 {
		return model.LogEntry{}, fmt.Errorf("%w: missing %s", ErrMalformedLine, strings.Join(missing, ", "))
	}

	field := model.Field(*raw.Field)
	if !field.Valid() {
		return model.LogEntry{}, fmt.Errorf("%w: unknown field %q", ErrMalformedLine, *raw.Field)
	}

	return model.LogEntry{
		Master:   *raw.Master,
		ID:       *raw.ID,
		Time:     looseString(raw.Time),
		Field:    field,
		OldValue: optionalString(raw.OldValue),
		NewValue: *raw.NewValue,
	}, nil
}

func looseString(raw json.RawMessage) string {
	if s := optionalString(raw); s != nil {
		return *s
	}
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	return string(raw)
}

func optionalString(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}
