package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"cropadvisor/models"
)

// Typical conditions per crop, ordered like models.FeatureVector
var sampleCentroids = []struct {
	crop     string
	features models.FeatureVector
}{
	{"rice", models.FeatureVector{80, 48, 40, 23.7, 82.3, 6.4, 236}},
	{"maize", models.FeatureVector{78, 48, 20, 22.4, 65.1, 6.2, 84.8}},
	{"chickpea", models.FeatureVector{40, 68, 80, 18.9, 16.9, 7.3, 80}},
	{"kidneybeans", models.FeatureVector{21, 67, 20, 20.1, 21.6, 5.7, 105.9}},
	{"pigeonpeas", models.FeatureVector{21, 68, 20, 27.7, 48.1, 5.8, 149.5}},
	{"mothbeans", models.FeatureVector{21, 48, 20, 28.2, 53.2, 6.8, 51.2}},
	{"mungbean", models.FeatureVector{21, 47, 20, 28.5, 85.5, 6.7, 48.4}},
	{"blackgram", models.FeatureVector{40, 67, 19, 30, 65.1, 7.1, 67.9}},
	{"lentil", models.FeatureVector{19, 68, 19, 24.5, 64.8, 6.9, 45.7}},
	{"pomegranate", models.FeatureVector{18, 19, 40, 21.8, 90.1, 6.4, 107.5}},
	{"banana", models.FeatureVector{100, 82, 50, 27.4, 80.4, 6, 104.6}},
	{"mango", models.FeatureVector{20, 27, 30, 31.2, 50.2, 5.8, 94.7}},
	{"grapes", models.FeatureVector{23, 132, 200, 23.8, 81.9, 6, 69.6}},
	{"watermelon", models.FeatureVector{99, 17, 50, 25.6, 85.2, 6.5, 50.8}},
	{"muskmelon", models.FeatureVector{100, 18, 50, 28.7, 92.3, 6.4, 24.7}},
	{"apple", models.FeatureVector{21, 134, 200, 22.6, 92.3, 5.9, 112.7}},
	{"orange", models.FeatureVector{20, 17, 10, 22.8, 92.2, 7, 110.5}},
	{"papaya", models.FeatureVector{50, 59, 50, 33.7, 92.4, 6.7, 142.6}},
	{"coconut", models.FeatureVector{22, 17, 31, 27.4, 94.8, 6, 175.7}},
	{"cotton", models.FeatureVector{118, 46, 20, 24, 79.8, 6.9, 80.4}},
	{"jute", models.FeatureVector{78, 47, 40, 25, 79.6, 6.7, 174.8}},
	{"coffee", models.FeatureVector{101, 29, 30, 25.5, 58.9, 6.8, 158.1}},
}

var sampleNormalization = Normalization{
	Mean: []float64{50.55, 53.36, 48.15, 25.62, 71.48, 6.47, 103.46},
	Std:  []float64{36.9, 32.98, 50.65, 5.06, 22.26, 0.77, 54.96},
}

// SampleArtifacts builds a nearest-centroid classifier over the sample crops.
// In normalized space the logit for crop k is 2·c_k·z − |c_k|², so the
// softmax ranks crops by squared distance to their centroid.
func SampleArtifacts() (ClassifierArtifact, Normalization, []string) {
	layer := DenseLayer{
		Weights:    make([][]float64, len(sampleCentroids)),
		Bias:       make([]float64, len(sampleCentroids)),
		Activation: ActivationLinear,
	}
	labels := make([]string, len(sampleCentroids))

	for k, c := range sampleCentroids {
		row := make([]float64, models.FeatureCount)
		var norm2 float64
		for j, v := range c.features {
			z := (v - sampleNormalization.Mean[j]) / sampleNormalization.Std[j]
			row[j] = 2 * z
			norm2 += z * z
		}
		layer.Weights[k] = row
		layer.Bias[k] = -norm2
		labels[k] = c.crop
	}

	artifact := ClassifierArtifact{
		InputSize: models.FeatureCount,
		Layers:    []DenseLayer{layer},
	}
	return artifact, sampleNormalization, labels
}

// WriteSampleArtifacts writes the sample classifier, normalization and labels into dir
func WriteSampleArtifacts(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	artifact, norm, labels := SampleArtifacts()
	files := map[string]interface{}{
		ClassifierFile:    artifact,
		NormalizationFile: norm,
		LabelsFile:        labels,
	}
	for name, v := range files {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}
