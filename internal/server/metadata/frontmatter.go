// Package metadata turns SKILL.md content into typed registry metadata and
// normalises the descriptive fields derived from it.
package metadata

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/skillhub/internal/server/models"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema/clawdis.schema.json
var schemaFS embed.FS

// maxFrontmatterSize limits frontmatter to keep YAML parsing bounded.
const maxFrontmatterSize = 64 * 1024

var (
	// ErrFrontmatterTooLarge is returned for frontmatter over maxFrontmatterSize.
	ErrFrontmatterTooLarge = errors.New("frontmatter too large")
)

var knownKeys = map[string]struct{}{
	"name": {}, "description": {}, "version": {}, "license": {},
	"homepage": {}, "always": {}, "metadata": {}, "clawdis": {},
}

// Parse extracts the YAML frontmatter of a SKILL.md file. Content without a
// frontmatter block yields empty metadata and no error. A clawdis block that
// fails schema validation is dropped.
func Parse(content []byte) (models.ParsedMetadata, error) {
	var out models.ParsedMetadata

	block, ok := frontmatterBlock(content)
	if !ok {
		return out, nil
	}
	if len(block) > maxFrontmatterSize {
		return out, ErrFrontmatterTooLarge
	}

	raw := map[string]any{}
	if err := yaml.Unmarshal(block, &raw); err != nil {
		return out, fmt.Errorf("parsing frontmatter YAML: %w", err)
	}

	out.Name = stringValue(raw["name"])
	out.Description = stringValue(raw["description"])
	out.Version = stringValue(raw["version"])
	out.License = stringValue(raw["license"])
	out.Homepage = stringValue(raw["homepage"])
	if b, ok := raw["always"].(bool); ok {
		out.Always = b
	}

	if c := clawdisBlock(raw); c != nil {
		if err := validateClawdis(c); err == nil {
			out.Clawdis = buildClawdis(c)
		}
	}

	for k, v := range raw {
		if _, known := knownKeys[k]; known {
			continue
		}
		if out.Unrecognized == nil {
			out.Unrecognized = map[string]any{}
		}
		out.Unrecognized[k] = v
	}

	return out, nil
}

func frontmatterBlock(content []byte) ([]byte, bool) {
	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	normalized = bytes.ReplaceAll(normalized, []byte("\r"), []byte("\n"))

	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return nil, false
	}
	rest := normalized[len("---\n"):]
	end := bytes.Index(rest, []byte("\n---"))
	if end == -1 {
		return nil, false
	}
	return rest[:end], true
}

// clawdisBlock finds the requirements block under metadata.clawdis,
// metadata.clawdbot or a top-level clawdis key. metadata may also be a
// JSON encoded string.
func clawdisBlock(raw map[string]any) map[string]any {
	var meta map[string]any
	switch m := raw["metadata"].(type) {
	case map[string]any:
		meta = m
	case string:
		_ = json.Unmarshal([]byte(m), &meta)
	}

	for _, key := range []string{"clawdis", "clawdbot"} {
		if c, ok := meta[key].(map[string]any); ok {
			return c
		}
	}
	if c, ok := raw["clawdis"].(map[string]any); ok {
		return c
	}
	return nil
}

func validateClawdis(block map[string]any) error {
	data, err := json.Marshal(block)
	if err != nil {
		return fmt.Errorf("failed to serialize clawdis metadata: %w", err)
	}

	schemaData, err := schemaFS.ReadFile("schema/clawdis.schema.json")
	if err != nil {
		return fmt.Errorf("failed to read embedded schema: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaData),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("clawdis schema validation failed: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("clawdis schema validation failed: %s", strings.Join(msgs, "; "))
}

func buildClawdis(c map[string]any) *models.ClawdisMetadata {
	out := &models.ClawdisMetadata{
		Emoji:      stringValue(c["emoji"]),
		Homepage:   stringValue(c["homepage"]),
		SkillKey:   stringValue(c["skillKey"]),
		PrimaryEnv: stringValue(c["primaryEnv"]),
		OS:         stringList(c["os"]),
	}
	if b, ok := c["always"].(bool); ok {
		out.Always = &b
	}

	if req, ok := c["requires"].(map[string]any); ok {
		r := models.Requirements{
			Bins:    stringList(req["bins"]),
			AnyBins: stringList(req["anyBins"]),
			Env:     stringList(req["env"]),
			Config:  stringList(req["config"]),
		}
		if len(r.Bins)+len(r.AnyBins)+len(r.Env)+len(r.Config) > 0 {
			out.Requires = &r
		}
	}

	if items, ok := c["install"].([]any); ok {
		for _, item := range items {
			if spec, ok := installSpec(item); ok {
				out.Install = append(out.Install, spec)
			}
		}
	}

	return out
}

func installSpec(v any) (models.InstallSpec, bool) {
	raw, ok := v.(map[string]any)
	if !ok {
		return models.InstallSpec{}, false
	}
	kind := stringValue(raw["kind"])
	if kind == "" {
		kind = stringValue(raw["type"])
	}
	kind = strings.ToLower(strings.TrimSpace(kind))
	switch kind {
	case "brew", "node", "go", "uv":
	default:
		return models.InstallSpec{}, false
	}
	return models.InstallSpec{
		Kind:    kind,
		ID:      stringValue(raw["id"]),
		Label:   stringValue(raw["label"]),
		Bins:    stringList(raw["bins"]),
		Formula: stringValue(raw["formula"]),
		Tap:     stringValue(raw["tap"]),
		Package: stringValue(raw["package"]),
		Module:  stringValue(raw["module"]),
	}, true
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

// stringList accepts a YAML sequence or a comma separated string.
func stringList(v any) []string {
	var parts []string
	switch t := v.(type) {
	case string:
		parts = strings.Split(t, ",")
	case []any:
		for _, item := range t {
			parts = append(parts, fmt.Sprint(item))
		}
	default:
		return nil
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
