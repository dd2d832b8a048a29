// Package config defines the validated Options a check run is configured
// with (spec §7), decodable from either JSON or YAML.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dbhist/histcheck/internal/consistency"
)

// Options is the full set of knobs a single check run accepts. Every
// field is validated by its `validate` struct tag, so a caller gets a single typed
// error listing every violation rather than discovering them one at a
// time deep inside the search.
type Options struct {
	// Models are the consistency models the history is expected to
	// satisfy (spec §6's `consistency-models`, a collection rather than
	// a single level — the default per spec is {strict-serializable}, but
	// callers must supply at least one explicitly).
	Models []string `json:"models" yaml:"models" validate:"required,min=1,dive,required"`

	// Anomalies are extra anomaly kinds to prohibit regardless of
	// whether Models would otherwise prohibit them (spec §6's
	// `anomalies`). Each bare kind named here also prohibits its
	// -process and -realtime variants; see consistency.Implying.
	Anomalies []string `json:"anomalies" yaml:"anomalies"`

	// HistoryFile is the path to the input history (JSON or YAML array
	// of transactions).
	HistoryFile string `json:"history_file" yaml:"history_file" validate:"required"`

	// SCCTimeoutMS bounds each strongly connected component's table
	// search, in milliseconds. Zero disables the timeout.
	SCCTimeoutMS int `json:"scc_timeout_ms" yaml:"scc_timeout_ms" validate:"gte=0"`

	// Concurrency is the maximum number of SCCs searched in parallel.
	Concurrency int `json:"concurrency" yaml:"concurrency" validate:"gte=0"`

	// CheckLostUpdate additionally runs the linear lost-update scan
	// (spec §4.7) alongside the graph search.
	CheckLostUpdate bool `json:"check_lost_update" yaml:"check_lost_update"`

	// OutputDir, if set, receives rendered <type>.txt and DOT output
	// (spec §4's render component). Empty disables file rendering.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Watch re-runs the check whenever HistoryFile changes on disk.
	Watch bool `json:"watch" yaml:"watch"`
}

var validate = validator.New()

// ErrValidation wraps every field-level violation validator.v10 found.
type ErrValidation struct {
	Err error
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("config: invalid options: %s", e.Err)
}

func (e *ErrValidation) Unwrap() error { return e.Err }

// Validate checks every struct tag and the cross-field invariant that
// every entry in Models names a consistency level this module understands.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return &ErrValidation{Err: err}
	}
	for _, m := range o.Models {
		if !consistency.Valid(consistency.Model(m)) {
			return &ErrValidation{Err: fmt.Errorf("model %q is not a recognized consistency model", m)}
		}
	}
	return nil
}

// DecodeYAML parses and validates Options from YAML bytes. Unknown
// fields are rejected rather than silently ignored, so a typo in a
// config file surfaces immediately instead of silently keeping a
// default.
func DecodeYAML(data []byte) (Options, error) {
	var o Options
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&o); err != nil {
		return Options{}, fmt.Errorf("config: decoding yaml: %w", err)
	}
	if err := o.Validate(); err != nil {
		return Options{}, err
	}
	return o, nil
}

// DecodeJSON parses and validates Options from JSON bytes. Unknown
// fields are rejected for the same reason as DecodeYAML.
func DecodeJSON(data []byte) (Options, error) {
	var o Options
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&o); err != nil {
		return Options{}, fmt.Errorf("config: decoding json: %w", err)
	}
	if err := o.Validate(); err != nil {
		return Options{}, err
	}
	return o, nil
}
