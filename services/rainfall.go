package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"cropadvisor/models"
)

// DefaultRainfall is returned whenever the dataset cannot answer a lookup
const DefaultRainfall = 100.0

// Dataset column names
const (
	rainfallStateColumn    = "STATE_UT_NAME"
	rainfallDistrictColumn = "DISTRICT"
)

type rainfallKey struct {
	state    string
	district string
}

// RainfallService looks up district normal rainfall by month
type RainfallService struct {
	path    string
	rows    map[rainfallKey]map[string]string
	loadErr error
}

// NewRainfallService reads the rainfall CSV. A missing or unreadable file is
// not an error: every lookup then returns DefaultRainfall.
func NewRainfallService(path string) *RainfallService {
	s := &RainfallService{path: path}
	rows, err := readRainfallCSV(path)
	if err != nil {
		log.Printf("Rainfall: %v, all lookups will use %.1fmm", err, DefaultRainfall)
		s.loadErr = err
		return s
	}
	s.rows = rows
	log.Printf("Rainfall: loaded %d districts from %s", len(rows), path)
	return s
}

func readRainfallCSV(path string) (map[rainfallKey]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rainfall file not found at %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read rainfall header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	stateCol, districtCol := -1, -1
	for i, name := range header {
		switch name {
		case rainfallStateColumn:
			stateCol = i
		case rainfallDistrictColumn:
			districtCol = i
		}
	}
	if stateCol < 0 || districtCol < 0 {
		return nil, errors.New("rainfall file is missing STATE_UT_NAME or DISTRICT column")
	}

	rows := make(map[rainfallKey]map[string]string)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read rainfall row: %w", err)
		}
		if len(record) <= stateCol || len(record) <= districtCol {
			continue
		}
		key := rainfallKey{state: record[stateCol], district: record[districtCol]}
		if _, seen := rows[key]; seen {
			continue
		}
		values := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				values[name] = record[i]
			}
		}
		rows[key] = values
	}
	return rows, nil
}

// Rainfall returns normal rainfall in mm for an exact (state, district) row
// and month column. Any miss yields DefaultRainfall marked as degraded.
func (s *RainfallService) Rainfall(state, district, month string) models.Resolved[float64] {
	degraded := func(reason string) models.Resolved[float64] {
		log.Printf("Rainfall: %s, using %.1fmm", reason, DefaultRainfall)
		return models.Resolved[float64]{Value: DefaultRainfall, Degraded: true, Reason: reason}
	}

	if s.loadErr != nil {
		return degraded("rainfall dataset unavailable")
	}
	row, ok := s.rows[rainfallKey{state: state, district: district}]
	if !ok {
		return degraded(fmt.Sprintf("no rainfall data for %s, %s", state, district))
	}
	raw, ok := row[month]
	if !ok {
		return degraded(fmt.Sprintf("no rainfall column %q", month))
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return degraded(fmt.Sprintf("invalid rainfall value %q for %s, %s", raw, state, district))
	}
	return models.Resolved[float64]{Value: value}
}

// Districts lists the districts of a state, sorted
func (s *RainfallService) Districts(state string) []string {
	var districts []string
	for key := range s.rows {
		if key.state == state {
			districts = append(districts, key.district)
		}
	}
	sort.Strings(districts)
	return districts
}

// GetStatus returns the status of the rainfall dataset
func (s *RainfallService) GetStatus() map[string]interface{} {
	status := map[string]interface{}{
		"path": s.path,
	}
	if s.loadErr != nil {
		status["status"] = "fallback"
		status["error"] = s.loadErr.Error()
		status["fallback_mm"] = DefaultRainfall
		return status
	}
	status["status"] = "loaded"
	status["districts"] = len(s.rows)
	return status
}
