package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// CurrentVersion is the fixture format version.
const CurrentVersion = "1"

// Fixture is one decoded fixture document, or several merged ones.
type Fixture struct {
	Version  string         `json:"version"`
	Settings Settings       `json:"settings,omitempty"`
	Globals  map[string]any `json:"globals,omitempty"`
	Rules    []RuleConfig   `json:"rules"`

	// Sources lists the files the fixture was loaded from.
	Sources []string `json:"-"`
}

// Settings are engine-wide options.
type Settings struct {
	DefaultLatency        Duration        `json:"defaultLatency,omitempty"`
	CaseSensitivePatterns *bool           `json:"caseSensitivePatterns,omitempty"`
	OnSequenceMismatch    string          `json:"onSequenceMismatch,omitempty"`
	UnmatchedError        *UnmatchedError `json:"unmatchedError,omitempty"`
}

// UnmatchedError overrides the error answered when no rule matches.
type UnmatchedError struct {
	Code     uint16 `json:"code,omitempty"`
	SQLState string `json:"sqlState,omitempty"`
}

// RuleConfig is one rule. Exactly one of Exact, Pattern and Sequence is set.
type RuleConfig struct {
	Name     string          `json:"name,omitempty"`
	Exact    *string         `json:"exact,omitempty"`
	Pattern  string          `json:"pattern,omitempty"`
	Sequence *SequenceConfig `json:"sequence,omitempty"`
	When     string          `json:"when,omitempty"`
	Latency  Duration        `json:"latency,omitempty"`

	ResponderConfig
}

// SequenceConfig describes an ordered expectation of statements.
type SequenceConfig struct {
	Scope      string       `json:"scope,omitempty"`
	Cyclic     bool         `json:"cyclic,omitempty"`
	OnMismatch string       `json:"onMismatch,omitempty"`
	Steps      []StepConfig `json:"steps"`
}

// StepConfig is one sequence step. A step without a response uses the
// rule's response.
type StepConfig struct {
	Exact   *string `json:"exact,omitempty"`
	Pattern string  `json:"pattern,omitempty"`

	ResponderConfig
}

// ResponderConfig is the scripted part of a rule or step: either a single
// response (Result, Error or OK) or a list of call-count variants.
type ResponderConfig struct {
	Requires   []string         `json:"requires,omitempty"`
	Actions    []ActionConfig   `json:"actions,omitempty"`
	CountScope string           `json:"countScope,omitempty"`
	Responses  []ResponseConfig `json:"responses,omitempty"`

	ResponseConfig
}

// HasResponse reports whether any response is configured.
func (r *ResponderConfig) HasResponse() bool {
	return len(r.Responses) > 0 || !r.ResponseConfig.IsZero()
}

// ActionConfig mutates state before a response is rendered.
type ActionConfig struct {
	Op    string `json:"op"`
	Key   string `json:"key"`
	Scope string `json:"scope,omitempty"`
	// Value is an expression, evaluated for "set".
	Value string `json:"value,omitempty"`
	// By is the increment for "incr"; zero means 1.
	By int64 `json:"by,omitempty"`
}

// ResponseConfig is one response variant.
type ResponseConfig struct {
	Result  *ResultConfig `json:"result,omitempty"`
	Error   *ErrorConfig  `json:"error,omitempty"`
	OK      *OKConfig     `json:"ok,omitempty"`
	Latency Duration      `json:"latency,omitempty"`
}

// IsZero reports whether no response kind is set.
func (r *ResponseConfig) IsZero() bool {
	return r.Result == nil && r.Error == nil && r.OK == nil
}

// ResultConfig is a result set. Cells may hold {{ }} expressions.
type ResultConfig struct {
	Columns []ColumnConfig `json:"columns"`
	Rows    [][]any        `json:"rows,omitempty"`
}

// ColumnConfig is one result column.
type ColumnConfig struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ErrorConfig is a protocol error. Message may hold {{ }} expressions.
type ErrorConfig struct {
	Code     uint16 `json:"code"`
	SQLState string `json:"sqlState,omitempty"`
	Message  string `json:"message"`
}

// OKConfig is an acknowledgement.
type OKConfig struct {
	AffectedRows uint64 `json:"affectedRows,omitempty"`
	LastInsertID uint64 `json:"lastInsertId,omitempty"`
	Warnings     uint16 `json:"warnings,omitempty"`
	Info         string `json:"info,omitempty"`
}

// Duration is a time.Duration written as "250ms" or as a number of
// milliseconds.
type Duration struct {
	time.Duration
	Set bool
}

// Ptr returns nil when the duration was not given.
func (d Duration) Ptr() *time.Duration {
	if !d.Set {
		return nil
	}
	v := d.Duration
	return &v
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case float64:
		d.Duration = time.Duration(x * float64(time.Millisecond))
	case string:
		parsed, err := time.ParseDuration(x)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", x, err)
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("invalid duration %s", b)
	}
	if d.Duration < 0 {
		return fmt.Errorf("negative duration %s", b)
	}
	d.Set = true
	return nil
}
