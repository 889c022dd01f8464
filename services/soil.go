package services

import (
	"fmt"
	"log"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"cropadvisor/models"
)

// GlobalSoilDefault is used for districts without their own entry
var GlobalSoilDefault = models.SoilSample{Nitrogen: 90, Phosphorous: 40, Potassium: 40, PH: 6.5}

var builtinSoilDefaults = map[string]models.SoilSample{
	"PUNE":        {Nitrogen: 90, Phosphorous: 40, Potassium: 40, PH: 6.5},
	"MUMBAI CITY": {Nitrogen: 85, Phosphorous: 35, Potassium: 38, PH: 6.8},
	"NAGPUR":      {Nitrogen: 95, Phosphorous: 45, Potassium: 42, PH: 6.2},
	"AURANGABAD":  {Nitrogen: 88, Phosphorous: 42, Potassium: 39, PH: 6.4},
	"NASHIK":      {Nitrogen: 92, Phosphorous: 43, Potassium: 41, PH: 6.3},
	"JALGAON":     {Nitrogen: 90, Phosphorous: 40, Potassium: 40, PH: 6.5},
}

// soilFile is the YAML layout for district overrides:
//
//	districts:
//	  KOLHAPUR: {nitrogen: 91, phosphorous: 41, potassium: 40, ph: 6.6}
type soilFile struct {
	Districts map[string]models.SoilSample `yaml:"districts"`
}

// SoilService provides per-district soil defaults
type SoilService struct {
	defaults map[string]models.SoilSample
	path     string
}

// NewSoilService creates a soil service from the built-in table, merged with
// overrides from a YAML file when path is set. Override entries must pass
// range validation.
func NewSoilService(path string) (*SoilService, error) {
	s := &SoilService{
		defaults: make(map[string]models.SoilSample, len(builtinSoilDefaults)),
		path:     path,
	}
	for district, sample := range builtinSoilDefaults {
		s.defaults[district] = sample
	}

	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read soil defaults: %w", err)
	}
	var file soilFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse soil defaults: %w", err)
	}
	for district, sample := range file.Districts {
		if err := sample.Validate(); err != nil {
			return nil, fmt.Errorf("invalid soil defaults for %s: %w", district, err)
		}
		s.defaults[district] = sample
	}

	log.Printf("Soil: loaded %d district overrides from %s", len(file.Districts), path)
	return s, nil
}

// DefaultSoil returns the soil defaults for an exact district name, or the
// global default marked as degraded.
func (s *SoilService) DefaultSoil(district string) models.Resolved[models.SoilSample] {
	if sample, ok := s.defaults[district]; ok {
		return models.Resolved[models.SoilSample]{Value: sample}
	}

	log.Printf("Soil: no specific soil data for %s, using default values", district)
	return models.Resolved[models.SoilSample]{
		Value:    GlobalSoilDefault,
		Degraded: true,
		Reason:   fmt.Sprintf("no soil data for %s", district),
	}
}

// Districts lists districts with their own soil entry
func (s *SoilService) Districts() []string {
	districts := make([]string, 0, len(s.defaults))
	for d := range s.defaults {
		districts = append(districts, d)
	}
	sort.Strings(districts)
	return districts
}

// GetStatus returns the status of the soil service
func (s *SoilService) GetStatus() map[string]interface{} {
	status := map[string]interface{}{
		"status":    "loaded",
		"districts": len(s.defaults),
	}
	if s.path != "" {
		status["overrides"] = s.path
	}
	return status
}
