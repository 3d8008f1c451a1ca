/*
Package factory provides JSON to Go billing-policy conversion.

PURPOSE:
  Converts company settings stored as JSON into billing.Policy and the
  schedule tuning knobs. This enables billing configuration without code
  changes - back office can change rounding behavior in settings, and the
  factory creates the proper Go structs.

JSON SCHEMA:
  {
    "rounding_mode": "ceil",
    "rounding_granularity": "unit",
    "monthly_proration": "hours",
    "time_zone": "America/New_York",
    "ending_soon_days": 2,
    "reschedule_step_minutes": 30
  }

KEY FEATURES:
  - Unknown enum values degrade to safe defaults, never errors
  - Unknown time zones degrade to UTC
  - Round-trips settings back to JSON for the settings API

SEE ALSO:
  - billing/policy.go: Policy type definition
  - schedule/layout.go: EndingSoonDays consumer
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/rentsoft/rental-engine/billing"
	"github.com/rentsoft/rental-engine/schedule"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// SettingsJSON is the JSON representation of company billing and
// scheduling settings.
type SettingsJSON struct {
	RoundingMode        string `json:"rounding_mode,omitempty"`
	RoundingGranularity string `json:"rounding_granularity,omitempty"`
	MonthlyProration    string `json:"monthly_proration,omitempty"`
	TimeZone            string `json:"time_zone,omitempty"`
	// EndingSoonDays widens the "ending soon" timeline highlight.
	// Zero or negative falls back to the standard horizon.
	EndingSoonDays int `json:"ending_soon_days,omitempty"`
	// RescheduleStepMinutes is the drag snap for return-time edits.
	RescheduleStepMinutes int `json:"reschedule_step_minutes,omitempty"`
}

// Settings is the parsed, validated form used across the engine.
type Settings struct {
	Policy                billing.Policy
	EndingSoonDays        int
	RescheduleStepMinutes int
}

// =============================================================================
// SETTINGS FACTORY
// =============================================================================

// SettingsFactory converts JSON settings to engine configuration.
type SettingsFactory struct{}

// NewSettingsFactory creates a new settings factory.
func NewSettingsFactory() *SettingsFactory {
	return &SettingsFactory{}
}

// ParseSettings parses a JSON document into Settings.
func (f *SettingsFactory) ParseSettings(jsonStr string) (Settings, error) {
	var sj SettingsJSON
	if err := json.Unmarshal([]byte(jsonStr), &sj); err != nil {
		return Settings{}, fmt.Errorf("failed to parse settings JSON: %w", err)
	}
	return f.FromJSON(sj), nil
}

// FromJSON converts SettingsJSON to Settings. Every field degrades to its
// default when absent or unrecognized; stored settings from older versions
// must keep loading.
func (f *SettingsFactory) FromJSON(sj SettingsJSON) Settings {
	s := Settings{
		Policy:                billing.NewPolicy(sj.RoundingMode, sj.RoundingGranularity, sj.MonthlyProration, sj.TimeZone),
		EndingSoonDays:        sj.EndingSoonDays,
		RescheduleStepMinutes: sj.RescheduleStepMinutes,
	}
	if s.EndingSoonDays < 1 {
		s.EndingSoonDays = schedule.DefaultEndingSoonDays
	}
	if s.RescheduleStepMinutes < 1 {
		s.RescheduleStepMinutes = 30
	}
	return s
}

// ToJSON converts Settings back to their JSON representation.
func (f *SettingsFactory) ToJSON(s Settings) SettingsJSON {
	return SettingsJSON{
		RoundingMode:          string(s.Policy.RoundingMode),
		RoundingGranularity:   string(s.Policy.RoundingGranularity),
		MonthlyProration:      string(s.Policy.MonthlyProration),
		TimeZone:              s.Policy.Zone.String(),
		EndingSoonDays:        s.EndingSoonDays,
		RescheduleStepMinutes: s.RescheduleStepMinutes,
	}
}

// DefaultSettings returns the configuration a fresh install runs with.
func DefaultSettings() Settings {
	return Settings{
		Policy:                billing.DefaultPolicy(),
		EndingSoonDays:        schedule.DefaultEndingSoonDays,
		RescheduleStepMinutes: 30,
	}
}
