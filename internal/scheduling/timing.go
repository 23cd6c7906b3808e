package scheduling

import (
	"encoding/json"
	"fmt"
	"time"
)

// Timing rule discriminators as stored in template activity JSON.
const (
	RuleTypeOneTime   = "one_time"
	RuleTypeRecurring = "recurring"
	RuleTypeDependent = "dependent"

	FrequencyDailyRange   = "daily_range"
	FrequencySpecificDays = "specific_days"
	FrequencyEveryNDays   = "every_n_days"
)

// TimingRule determines on which phase-relative days an activity occurs.
// Day numbers are 1-indexed from the phase start date.
type TimingRule interface {
	Validate() error
	ruleType() string
}

// OneTime schedules a single occurrence on a fixed phase day.
type OneTime struct {
	PhaseDay int `json:"phase_day"`
}

// DailyRange schedules one occurrence per day from StartDay to EndDay inclusive.
type DailyRange struct {
	StartDay int `json:"start_day"`
	EndDay   int `json:"end_day"`
}

// SpecificDays restricts a daily range to dates falling on the given weekdays.
type SpecificDays struct {
	StartDay int            `json:"start_day"`
	EndDay   int            `json:"end_day"`
	Weekdays []time.Weekday `json:"weekdays"`
}

// EveryNDays schedules occurrences at StartDay, StartDay+N, ... up to EndDay.
type EveryNDays struct {
	StartDay int `json:"start_day"`
	EndDay   int `json:"end_day"`
	Interval int `json:"interval"`
}

// Dependent schedules a single occurrence DaysAfter days after phase start.
// This is a deliberate simplification: the offset is anchored to the phase
// start, not to the completion of the prerequisite activity.
type Dependent struct {
	DaysAfter int `json:"days_after"`
}

func (OneTime) ruleType() string      { return RuleTypeOneTime }
func (DailyRange) ruleType() string   { return RuleTypeRecurring }
func (SpecificDays) ruleType() string { return RuleTypeRecurring }
func (EveryNDays) ruleType() string   { return RuleTypeRecurring }
func (Dependent) ruleType() string    { return RuleTypeDependent }

func (r OneTime) Validate() error {
	if r.PhaseDay < 1 {
		return fmt.Errorf("one_time rule: phase_day must be >= 1, got %d", r.PhaseDay)
	}
	return nil
}

func (r DailyRange) Validate() error {
	if r.StartDay < 1 {
		return fmt.Errorf("daily_range rule: start_day must be >= 1, got %d", r.StartDay)
	}
	if r.EndDay < r.StartDay {
		return fmt.Errorf("daily_range rule: end_day %d before start_day %d", r.EndDay, r.StartDay)
	}
	return nil
}

func (r SpecificDays) Validate() error {
	if r.StartDay < 1 {
		return fmt.Errorf("specific_days rule: start_day must be >= 1, got %d", r.StartDay)
	}
	if r.EndDay < r.StartDay {
		return fmt.Errorf("specific_days rule: end_day %d before start_day %d", r.EndDay, r.StartDay)
	}
	if len(r.Weekdays) == 0 {
		return fmt.Errorf("specific_days rule: weekday set is empty")
	}
	for _, wd := range r.Weekdays {
		if wd < time.Sunday || wd > time.Saturday {
			return fmt.Errorf("specific_days rule: invalid weekday %d", wd)
		}
	}
	return nil
}

func (r EveryNDays) Validate() error {
	if r.StartDay < 1 {
		return fmt.Errorf("every_n_days rule: start_day must be >= 1, got %d", r.StartDay)
	}
	if r.EndDay < r.StartDay {
		return fmt.Errorf("every_n_days rule: end_day %d before start_day %d", r.EndDay, r.StartDay)
	}
	if r.Interval < 1 {
		return fmt.Errorf("every_n_days rule: interval must be >= 1, got %d", r.Interval)
	}
	return nil
}

func (r Dependent) Validate() error {
	if r.DaysAfter < 0 {
		return fmt.Errorf("dependent rule: days_after must be >= 0, got %d", r.DaysAfter)
	}
	return nil
}

// ruleEnvelope is the wire shape of a timing rule. Type discriminates the
// top-level variant; Frequency discriminates the recurring sub-variants.
type ruleEnvelope struct {
	Type      string          `json:"type"`
	Frequency string          `json:"frequency,omitempty"`
	PhaseDay  int             `json:"phase_day,omitempty"`
	StartDay  int             `json:"start_day,omitempty"`
	EndDay    int             `json:"end_day,omitempty"`
	Interval  int             `json:"interval,omitempty"`
	Weekdays  []time.Weekday  `json:"weekdays,omitempty"`
	DaysAfter int             `json:"days_after,omitempty"`
	Extra     json.RawMessage `json:"-"`
}

// ParseRule decodes a timing rule from its JSON representation. Decoding is
// exhaustive: an unknown type or frequency is an error, never an empty
// schedule.
func ParseRule(raw []byte) (TimingRule, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var env ruleEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode timing rule: %w", err)
	}

	var rule TimingRule
	switch env.Type {
	case RuleTypeOneTime:
		rule = OneTime{PhaseDay: env.PhaseDay}
	case RuleTypeDependent:
		rule = Dependent{DaysAfter: env.DaysAfter}
	case RuleTypeRecurring:
		switch env.Frequency {
		case FrequencyDailyRange:
			rule = DailyRange{StartDay: env.StartDay, EndDay: env.EndDay}
		case FrequencySpecificDays:
			rule = SpecificDays{StartDay: env.StartDay, EndDay: env.EndDay, Weekdays: env.Weekdays}
		case FrequencyEveryNDays:
			rule = EveryNDays{StartDay: env.StartDay, EndDay: env.EndDay, Interval: env.Interval}
		default:
			return nil, fmt.Errorf("unrecognized recurring frequency %q", env.Frequency)
		}
	case "":
		return nil, fmt.Errorf("timing rule missing type")
	default:
		return nil, fmt.Errorf("unrecognized timing rule type %q", env.Type)
	}

	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return rule, nil
}

// EncodeRule serializes a timing rule back into its wire shape.
func EncodeRule(rule TimingRule) ([]byte, error) {
	if rule == nil {
		return nil, nil
	}

	env := ruleEnvelope{Type: rule.ruleType()}
	switch r := rule.(type) {
	case OneTime:
		env.PhaseDay = r.PhaseDay
	case DailyRange:
		env.Frequency = FrequencyDailyRange
		env.StartDay = r.StartDay
		env.EndDay = r.EndDay
	case SpecificDays:
		env.Frequency = FrequencySpecificDays
		env.StartDay = r.StartDay
		env.EndDay = r.EndDay
		env.Weekdays = r.Weekdays
	case EveryNDays:
		env.Frequency = FrequencyEveryNDays
		env.StartDay = r.StartDay
		env.EndDay = r.EndDay
		env.Interval = r.Interval
	case Dependent:
		env.DaysAfter = r.DaysAfter
	default:
		return nil, fmt.Errorf("unknown timing rule variant %T", rule)
	}
	return json.Marshal(env)
}
