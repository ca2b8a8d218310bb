// Package moderation derives moderation flag codes for a submission.
// The registry stores the flags verbatim and does not interpret them.
package moderation

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/dmitrijs2005/skillhub/internal/server/models"
)

const (
	FlagBlockedMalware    = "blocked.malware"
	FlagSuspicious        = "flagged.suspicious"
	FlagSuspiciousWebhook = "flagged.suspicious.webhook"
)

var (
	knownBlockedSignature = regexp.MustCompile(`(?i)(keepcold131/ClawdAuthenticatorTool|ClawdAuthenticatorTool)`)
	suspiciousPatterns    = []*regexp.Regexp{
		regexp.MustCompile(`(?i)https?://(bit\.ly|tinyurl\.com|t\.co|goo\.gl|is\.gd)/`),
		regexp.MustCompile(`(?i)https?://\d{1,3}(?:\.\d{1,3}){3}`),
		regexp.MustCompile(`(?i)curl[^\n]+\|\s*(sh|bash)`),
	}
	webhookPattern = regexp.MustCompile(`(?i)https?://(discord(app)?\.com/api/webhooks|hooks\.slack\.com/services|webhook\.site)/`)
)

// Submission is what the scanner sees of a publish request.
type Submission struct {
	Slug        string
	DisplayName string
	Summary     string
	Parsed      models.ParsedMetadata
	Files       models.Files
}

// Scanner returns the flag codes for a submission.
type Scanner interface {
	Scan(s Submission) ([]string, error)
}

// Rule is an operator supplied CEL expression. When it evaluates to true the
// submission receives Flag.
type Rule struct {
	Flag string `json:"flag"`
	Expr string `json:"expr"`
}

type compiledRule struct {
	flag string
	prg  *program
}

// PatternScanner applies the built-in signature checks and any extra rules.
type PatternScanner struct {
	rules []compiledRule
}

// NewPatternScanner compiles rules. An empty rule list is valid.
func NewPatternScanner(rules []Rule) (*PatternScanner, error) {
	s := &PatternScanner{}
	if len(rules) == 0 {
		return s, nil
	}

	env, err := newEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to build CEL environment: %w", err)
	}
	for _, r := range rules {
		if strings.TrimSpace(r.Flag) == "" {
			return nil, fmt.Errorf("%w: rule %q has no flag", ErrExpressionCheck, r.Expr)
		}
		prg, err := compile(env, r.Expr)
		if err != nil {
			return nil, err
		}
		s.rules = append(s.rules, compiledRule{flag: r.Flag, prg: prg})
	}
	return s, nil
}

// LoadRules reads a JSON array of rules from path. An empty path yields no rules.
func LoadRules(path string) ([]Rule, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read moderation rules: %w", err)
	}
	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse moderation rules: %w", err)
	}
	return rules, nil
}

func (s *PatternScanner) Scan(sub Submission) ([]string, error) {
	text, err := scanText(sub)
	if err != nil {
		return nil, err
	}

	flags := map[string]struct{}{}
	if knownBlockedSignature.MatchString(text) {
		flags[FlagBlockedMalware] = struct{}{}
	}
	for _, re := range suspiciousPatterns {
		if re.MatchString(text) {
			flags[FlagSuspicious] = struct{}{}
			break
		}
	}
	if webhookPattern.MatchString(text) {
		flags[FlagSuspiciousWebhook] = struct{}{}
	}
	if sub.Parsed.AlwaysOn() {
		flags[FlagSuspicious] = struct{}{}
	}

	if len(s.rules) > 0 {
		vars, err := ruleVars(sub, text)
		if err != nil {
			return nil, err
		}
		for _, r := range s.rules {
			hit, err := r.prg.evalBool(vars)
			if err != nil {
				return nil, err
			}
			if hit {
				flags[r.flag] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(flags))
	for f := range flags {
		out = append(out, f)
	}
	sort.Strings(out)
	return out, nil
}

func scanText(sub Submission) (string, error) {
	meta, err := json.Marshal(sub.Parsed)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	parts := []string{sub.Slug, sub.DisplayName, sub.Summary, string(meta)}
	parts = append(parts, sub.Files.Paths()...)

	nonEmpty := parts[:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "\n"), nil
}

func ruleVars(sub Submission, text string) (map[string]any, error) {
	raw, err := json.Marshal(sub.Parsed)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	meta := map[string]any{}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return map[string]any{
		"slug":        sub.Slug,
		"displayName": sub.DisplayName,
		"summary":     sub.Summary,
		"text":        text,
		"paths":       sub.Files.Paths(),
		"metadata":    meta,
	}, nil
}

