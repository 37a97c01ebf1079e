package models

import "time"

const (
	SourceTemplate = "template"
	SourceModel    = "model"
)

// Persona is a catalog record: the profile combination it represents plus
// the descriptive text used to ground advisory prompts.
type Persona struct {
	Profile     StoreProfile `json:"profile"`
	Key         string       `json:"key"`
	Description string       `json:"description"`
	Tactics     []string     `json:"tactics,omitempty"`
	Source      string       `json:"source"`
	GeneratedAt time.Time    `json:"generated_at"`
}
