package model

// Field names one of the NPC attribute slots that a profile log entry can change.
type Field string

const (
	FieldDefaultPlugin Field = "DefaultPlugin"
	FieldFacePlugin    Field = "FacePlugin"
	FieldFaceMod       Field = "FaceMod"
)

// Fields lists every known attribute tag in declaration order.
var Fields = []Field{FieldDefaultPlugin, FieldFacePlugin, FieldFaceMod}

// Valid reports whether f is one of the known attribute tags.
func (f Field) Valid() bool {
	switch f {
	case FieldDefaultPlugin, FieldFacePlugin, FieldFaceMod:
		return true
	default:
		return false
	}
}

// LogEntry is one line of the EasyNPC profile log.
// Time and OldValue are carried for display only; nothing downstream reads them.
type LogEntry struct {
	Master   string
	ID       string
	Time     string
	Field    Field
	OldValue *string
	NewValue string
}

// Slot holds the latest value written to one attribute. Set is false until
// an entry for that attribute has been seen.
type Slot struct {
	Value string
	Set   bool
}

// NPC is the reduced state of one game character record.
type NPC struct {
	ID            string
	Master        string
	DefaultPlugin Slot
	FacePlugin    Slot
	FaceMod       Slot
}

// Set writes value into the slot named by field. Unknown fields are ignored
// and reported as false.
func (n *NPC) Set(field Field, value string) bool {
	switch field {
	case FieldDefaultPlugin:
		n.DefaultPlugin = Slot{Value: value, Set: true}
	case FieldFacePlugin:
		n.FacePlugin = Slot{Value: value, Set: true}
	case FieldFaceMod:
		n.FaceMod = Slot{Value: value, Set: true}
	default:
		return false
	}
	return true
}

// Get returns the slot named by field.
func (n *NPC) Get(field Field) Slot {
	switch field {
	case FieldDefaultPlugin:
		return n.DefaultPlugin
	case FieldFacePlugin:
		return n.FacePlugin
	case FieldFaceMod:
		return n.FaceMod
	default:
		return Slot{}
	}
}
