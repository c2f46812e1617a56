// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ingest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrInvalidMapping is returned when a mapping lacks required columns.
var ErrInvalidMapping = errors.New("invalid column mapping")

// Mapping describes where ballot fields live in an export file.
type Mapping struct {
	IDColumn        string   `mapstructure:"id_column" validate:"required"`
	SchoolColumn    string   `mapstructure:"school_column"`
	YearColumn      string   `mapstructure:"year_column"`
	SubmittedColumn string   `mapstructure:"submitted_column"`
	ChoiceColumns   []string `mapstructure:"choice_columns" validate:"min=1,dive,required"`
	// Replacements rewrites choice text, matched case-insensitively, to a
	// canonical candidate name.
	Replacements map[string]string `mapstructure:"replacements"`
	TimeLayouts  []string          `mapstructure:"time_layouts"`
}

// Validate checks that the mapping names the voter ID and choice columns.
func (m Mapping) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMapping, err)
	}
	return nil
}

// Columns lists every column the mapping reads.
func (m Mapping) Columns() []string {
	cols := []string{m.IDColumn}
	for _, c := range []string{m.SchoolColumn, m.YearColumn, m.SubmittedColumn} {
		if c != "" {
			cols = append(cols, c)
		}
	}
	return append(cols, m.ChoiceColumns...)
}

const choicePrompt = "Please select your %s choice for president/vice president ticket"

// DefaultTimeLayouts are tried in order when parsing submission times.
var DefaultTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"2006-01-02",
}

// DefaultMapping matches the Cats on Campus ballot export. No Confidence is
// one of the five ranked options.
func DefaultMapping() Mapping {
	return Mapping{
		IDColumn:        "User Id",
		SchoolColumn:    "Please select your primary college of enrollment",
		YearColumn:      "Please select your expected graduation year",
		SubmittedColumn: "Submitted On",
		ChoiceColumns: []string{
			fmt.Sprintf(choicePrompt, "TOP"),
			fmt.Sprintf(choicePrompt, "SECOND"),
			fmt.Sprintf(choicePrompt, "THIRD"),
			fmt.Sprintf(choicePrompt, "FOURTH"),
			fmt.Sprintf(choicePrompt, "FIFTH"),
		},
		Replacements: map[string]string{},
		TimeLayouts:  append([]string(nil), DefaultTimeLayouts...),
	}
}

// LoadMapping reads a mapping file (YAML, JSON or TOML) over the default
// mapping. RCV_-prefixed environment variables override file values, e.g.
// RCV_ID_COLUMN.
func LoadMapping(path string) (Mapping, error) {
	def := DefaultMapping()

	v := viper.New()
	v.SetDefault("id_column", def.IDColumn)
	v.SetDefault("school_column", def.SchoolColumn)
	v.SetDefault("year_column", def.YearColumn)
	v.SetDefault("submitted_column", def.SubmittedColumn)
	v.SetDefault("choice_columns", def.ChoiceColumns)
	v.SetDefault("time_layouts", def.TimeLayouts)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Mapping{}, fmt.Errorf("failed to read mapping file: %w", err)
		}
	}

	v.SetEnvPrefix("RCV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var m Mapping
	if err := v.Unmarshal(&m); err != nil {
		return Mapping{}, fmt.Errorf("failed to parse mapping: %w", err)
	}

	m.Replacements = lowerKeys(m.Replacements)
	if err := m.Validate(); err != nil {
		return Mapping{}, err
	}
	return m, nil
}

func lowerKeys(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}
