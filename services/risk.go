package services

import (
	"fmt"
	"strconv"

	"cropadvisor/models"
)

// Weather thresholds used by AssessRisk
const (
	LowRainfallThreshold  = 50.0  // mm
	HighRainfallThreshold = 200.0 // mm
	MinTemperature        = 15.0  // °C
	MaxTemperature        = 35.0  // °C
	MinHumidity           = 40.0  // %
	MaxHumidity           = 80.0  // %
)

// AssessRisk scores weather conditions for planting. It never rejects
// input; range validation belongs to the caller.
func AssessRisk(rainfall, temperature, humidity float64) models.RiskAssessment {
	score, factors := riskScore(rainfall, temperature, humidity)
	return models.RiskAssessment{Level: riskLevelFor(score), Factors: factors}
}

func riskScore(rainfall, temperature, humidity float64) (int, []string) {
	score := 0
	factors := make([]string, 0, 3)

	switch {
	case rainfall < LowRainfallThreshold:
		score += 3
		factors = append(factors, fmt.Sprintf("Low rainfall (%smm)", num(rainfall)))
	case rainfall > HighRainfallThreshold:
		score++
		factors = append(factors, fmt.Sprintf("High rainfall (%smm)", num(rainfall)))
	default:
		factors = append(factors, fmt.Sprintf("Moderate rainfall (%smm)", num(rainfall)))
	}

	if temperature < MinTemperature || temperature > MaxTemperature {
		score += 2
		factors = append(factors, fmt.Sprintf("Temperature out of range (%s°C)", num(temperature)))
	} else {
		factors = append(factors, fmt.Sprintf("Optimal temperature (%s°C)", num(temperature)))
	}

	if humidity < MinHumidity || humidity > MaxHumidity {
		score++
		factors = append(factors, fmt.Sprintf("Humidity out of range (%s%%)", num(humidity)))
	} else {
		factors = append(factors, fmt.Sprintf("Adequate humidity (%s%%)", num(humidity)))
	}

	return score, factors
}

func riskLevelFor(score int) models.RiskLevel {
	switch {
	case score >= 5:
		return models.RiskHigh
	case score >= 3:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
