package draft

// Record is a structured draft reconstructed from the workflow engine or
// parsed back out of a rendered confirmation message. Flat fields are keyed
// by snake_case names; Tasks and Notes are always sequences, never a bare
// object, even when only one nested item was parsed.
type Record struct {
	Fields map[string]string   `json:"fields"`
	Tasks  []map[string]string `json:"tasks,omitempty"`
	Notes  []map[string]string `json:"notes,omitempty"`
}

// NewRecord returns an empty record with an allocated field map.
func NewRecord() Record {
	return Record{Fields: map[string]string{}}
}

// IsEmpty reports whether nothing was parsed into the record.
func (r Record) IsEmpty() bool {
	return len(r.Fields) == 0 && len(r.Tasks) == 0 && len(r.Notes) == 0
}
