package models

import "database/sql/driver"

// ParsedMetadata is the typed view of a version's SKILL.md frontmatter.
// Keys the registry does not know survive in Unrecognized.
type ParsedMetadata struct {
	Name         string           `json:"name,omitempty"`
	Description  string           `json:"description,omitempty"`
	Version      string           `json:"version,omitempty"`
	License      string           `json:"license,omitempty"`
	Homepage     string           `json:"homepage,omitempty"`
	Always       bool             `json:"always,omitempty"`
	Clawdis      *ClawdisMetadata `json:"clawdis,omitempty"`
	Unrecognized map[string]any   `json:"unrecognized,omitempty"`
}

// ClawdisMetadata is the runtime requirements block of a skill.
type ClawdisMetadata struct {
	Always     *bool         `json:"always,omitempty"`
	Emoji      string        `json:"emoji,omitempty"`
	Homepage   string        `json:"homepage,omitempty"`
	SkillKey   string        `json:"skillKey,omitempty"`
	PrimaryEnv string        `json:"primaryEnv,omitempty"`
	OS         []string      `json:"os,omitempty"`
	Requires   *Requirements `json:"requires,omitempty"`
	Install    []InstallSpec `json:"install,omitempty"`
}

type Requirements struct {
	Bins    []string `json:"bins,omitempty"`
	AnyBins []string `json:"anyBins,omitempty"`
	Env     []string `json:"env,omitempty"`
	Config  []string `json:"config,omitempty"`
}

type InstallSpec struct {
	Kind    string   `json:"kind"`
	ID      string   `json:"id,omitempty"`
	Label   string   `json:"label,omitempty"`
	Bins    []string `json:"bins,omitempty"`
	Formula string   `json:"formula,omitempty"`
	Tap     string   `json:"tap,omitempty"`
	Package string   `json:"package,omitempty"`
	Module  string   `json:"module,omitempty"`
}

// AlwaysOn reports whether the skill asks to be loaded unconditionally.
func (m ParsedMetadata) AlwaysOn() bool {
	if m.Always {
		return true
	}
	return m.Clawdis != nil && m.Clawdis.Always != nil && *m.Clawdis.Always
}

func (m ParsedMetadata) Value() (driver.Value, error) { return jsonValue(m) }

func (m *ParsedMetadata) Scan(src any) error { return jsonScan(src, m) }
