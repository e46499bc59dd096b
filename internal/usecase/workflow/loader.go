package workflow

import (
	"errors"
	"fmt"
	"os"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// RulesFile is the optional YAML document that overrides or extends the default rules
// and, when present, replaces the escalation matrix.
type RulesFile struct {
	Rules  []domain.WorkflowRule    `yaml:"rules"`
	Matrix []domain.EscalationEntry `yaml:"matrix"`
}

// LoadRulesFile reads and validates a rules file. An empty path yields an empty file.
func LoadRulesFile(path string) (*RulesFile, error) {
	if path == "" {
		return &RulesFile{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRules(data)
}

func ParseRules(data []byte) (*RulesFile, error) {
	var file RulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}

	var errs []error
	seen := map[string]struct{}{}
	for i := range file.Rules {
		r := &file.Rules[i]
		if err := r.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := seen[r.ID]; dup {
			errs = append(errs, fmt.Errorf("rule %s is defined twice", r.ID))
		}
		seen[r.ID] = struct{}{}
		for _, c := range r.Conditions {
			if _, _, ok := lookupField(c.Field); !ok {
				errs = append(errs, fmt.Errorf("rule %s: unknown field %q", r.ID, c.Field))
			}
		}
	}
	for _, m := range file.Matrix {
		if m.ID == "" {
			errs = append(errs, errors.New("matrix entry without id"))
			continue
		}
		if !m.FromStatus.CanMoveTo(m.ToStatus) {
			errs = append(errs, fmt.Errorf("matrix entry %s: %s -> %s is not a legal dispute transition", m.ID, m.FromStatus, m.ToStatus))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid rules file: %w", err)
	}
	return &file, nil
}
