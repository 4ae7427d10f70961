package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BradenHooton/sentinel/internal/models"
	"gopkg.in/yaml.v3"
)

// Rules holds the attempt rules and alert defaults in effect
type Rules struct {
	Attempts map[models.ActionType]models.AttemptRule
	Alerts   models.AlertDefaults
}

type rulesFile struct {
	Attempts map[string]models.AttemptRule  `yaml:"attempts"`
	Alerts   map[string]models.AlertDefault `yaml:"alerts"`
}

// DefaultRules returns the built-in attempt rules and alert defaults
func DefaultRules() *Rules {
	return &Rules{
		Attempts: models.DefaultAttemptRules(),
		Alerts:   models.BuiltinAlertDefaults(),
	}
}

// LoadRules reads the YAML rules file at path over the built-in rules.
// An empty path returns the built-ins. Entries in the file replace the
// built-in entry of the same action or alert type.
func LoadRules(path string) (*Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	if err := rules.merge(data); err != nil {
		return nil, fmt.Errorf("invalid rules file %s: %w", path, err)
	}

	return rules, nil
}

func (r *Rules) merge(data []byte) error {
	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return err
	}

	for raw, rule := range file.Attempts {
		action, err := models.ParseActionType(raw)
		if err != nil {
			return err
		}
		if err := validateAttemptRule(rule); err != nil {
			return fmt.Errorf("attempts.%s: %w", action, err)
		}
		r.Attempts[action] = rule
	}

	for raw, def := range file.Alerts {
		alertType, err := models.ParseAlertType(raw)
		if err != nil {
			return err
		}
		if def.CooldownMinutes < 0 || def.Threshold < 0 {
			return fmt.Errorf("alerts.%s: threshold and cooldown_minutes must not be negative", alertType)
		}
		r.Alerts[alertType] = def
	}

	return nil
}

func validateAttemptRule(rule models.AttemptRule) error {
	if rule.MaxAttempts < 0 || rule.WindowMinutes < 0 || rule.BlockDurationMinutes < 0 {
		return fmt.Errorf("values must not be negative")
	}
	if rule.MaxAttempts > 0 && (rule.WindowMinutes == 0 || rule.BlockDurationMinutes == 0) {
		return fmt.Errorf("window_minutes and block_duration_minutes are required when max_attempts is set")
	}
	return nil
}

// LongestWindow returns the longest attempt window across all rules
func (r *Rules) LongestWindow() time.Duration {
	var longest time.Duration
	for _, rule := range r.Attempts {
		if w := rule.Window(); w > longest {
			longest = w
		}
	}
	return longest
}
