package models

import (
	"fmt"
	"strconv"
)

// Valid soil ranges. Lower bound is zero for every field.
const (
	NitrogenMax    = 140.0
	PhosphorousMax = 145.0
	PotassiumMax   = 205.0
	PHMax          = 14.0
)

// ValidationError represents a rejected input field
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// SoilSample is a fully populated soil descriptor. Only a validated
// SoilSample is handed to the predictor.
type SoilSample struct {
	Nitrogen    float64 `json:"nitrogen" yaml:"nitrogen"`
	Phosphorous float64 `json:"phosphorous" yaml:"phosphorous"`
	Potassium   float64 `json:"potassium" yaml:"potassium"`
	PH          float64 `json:"ph" yaml:"ph"`
}

// SoilValidation holds per-field range checks
type SoilValidation struct {
	NitrogenValid    bool `json:"nitrogen_valid"`
	PhosphorousValid bool `json:"phosphorous_valid"`
	PotassiumValid   bool `json:"potassium_valid"`
	PHValid          bool `json:"ph_valid"`
}

// AllValid reports whether every field is in range
func (v SoilValidation) AllValid() bool {
	return v.NitrogenValid && v.PhosphorousValid && v.PotassiumValid && v.PHValid
}

// Check validates each field independently against its range.
func (s SoilSample) Check() SoilValidation {
	return SoilValidation{
		NitrogenValid:    inRange(s.Nitrogen, NitrogenMax),
		PhosphorousValid: inRange(s.Phosphorous, PhosphorousMax),
		PotassiumValid:   inRange(s.Potassium, PotassiumMax),
		PHValid:          inRange(s.PH, PHMax),
	}
}

// Validate returns a *ValidationError naming the first out-of-range field.
func (s SoilSample) Validate() error {
	v := s.Check()
	switch {
	case !v.NitrogenValid:
		return rangeError("nitrogen", s.Nitrogen, NitrogenMax)
	case !v.PhosphorousValid:
		return rangeError("phosphorous", s.Phosphorous, PhosphorousMax)
	case !v.PotassiumValid:
		return rangeError("potassium", s.Potassium, PotassiumMax)
	case !v.PHValid:
		return rangeError("ph", s.PH, PHMax)
	}
	return nil
}

func inRange(v, max float64) bool {
	return v >= 0 && v <= max
}

func rangeError(field string, value, max float64) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   strconv.FormatFloat(value, 'f', -1, 64),
		Message: fmt.Sprintf("%s must be between 0 and %g, got %g", field, max, value),
	}
}

// PartialSoil is soil input where any field may be absent
type PartialSoil struct {
	Nitrogen    *float64 `json:"nitrogen,omitempty"`
	Phosphorous *float64 `json:"phosphorous,omitempty"`
	Potassium   *float64 `json:"potassium,omitempty"`
	PH          *float64 `json:"ph,omitempty"`
}

// Missing reports whether at least one field is absent
func (p PartialSoil) Missing() bool {
	return p.Nitrogen == nil || p.Phosphorous == nil || p.Potassium == nil || p.PH == nil
}

// FillFrom returns a copy where each absent field is taken from defaults.
// Provided fields are never overwritten.
func (p PartialSoil) FillFrom(defaults SoilSample) PartialSoil {
	out := p
	if out.Nitrogen == nil {
		out.Nitrogen = Float(defaults.Nitrogen)
	}
	if out.Phosphorous == nil {
		out.Phosphorous = Float(defaults.Phosphorous)
	}
	if out.Potassium == nil {
		out.Potassium = Float(defaults.Potassium)
	}
	if out.PH == nil {
		out.PH = Float(defaults.PH)
	}
	return out
}

// Complete converts to a SoilSample, failing if any field is still absent.
func (p PartialSoil) Complete() (SoilSample, error) {
	missing := ""
	switch {
	case p.Nitrogen == nil:
		missing = "nitrogen"
	case p.Phosphorous == nil:
		missing = "phosphorous"
	case p.Potassium == nil:
		missing = "potassium"
	case p.PH == nil:
		missing = "ph"
	}
	if missing != "" {
		return SoilSample{}, &ValidationError{
			Field:   missing,
			Message: fmt.Sprintf("%s is required when automatic soil values are disabled", missing),
		}
	}
	return SoilSample{
		Nitrogen:    *p.Nitrogen,
		Phosphorous: *p.Phosphorous,
		Potassium:   *p.Potassium,
		PH:          *p.PH,
	}, nil
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}
