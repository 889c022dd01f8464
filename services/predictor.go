package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"

	"cropadvisor/models"
)

// Artifact file names inside the model directory
const (
	ClassifierFile    = "classifier.json"
	NormalizationFile = "normalization.json"
	LabelsFile        = "labels.json"
)

// Layer activations
const (
	ActivationReLU   = "relu"
	ActivationLinear = "linear"
)

// DenseLayer is one fully connected layer. Weights are indexed [output][input].
type DenseLayer struct {
	Weights    [][]float64 `json:"weights"`
	Bias       []float64   `json:"bias"`
	Activation string      `json:"activation"`
}

// ClassifierArtifact is the serialized feed-forward network
type ClassifierArtifact struct {
	InputSize int          `json:"input_size"`
	Layers    []DenseLayer `json:"layers"`
}

// Normalization holds per-feature z-score statistics
type Normalization struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// PredictorService ranks crops with a pretrained classifier. It is loaded
// once and never mutated, so Predict is safe for concurrent use.
type PredictorService struct {
	modelDir string
	network  ClassifierArtifact
	norm     *Normalization
	labels   []string
	classes  int
}

// NewPredictorService loads the classifier artifacts from dir. A missing
// classifier or any malformed file is an error. A missing normalization or
// labels file is tolerated and logged.
func NewPredictorService(dir string) (*PredictorService, error) {
	p := &PredictorService{modelDir: dir}

	if err := readJSON(filepath.Join(dir, ClassifierFile), &p.network); err != nil {
		return nil, fmt.Errorf("failed to load classifier: %w", err)
	}
	classes, err := p.network.validate()
	if err != nil {
		return nil, fmt.Errorf("invalid classifier %s: %w", ClassifierFile, err)
	}
	p.classes = classes

	var norm Normalization
	switch err := readJSON(filepath.Join(dir, NormalizationFile), &norm); {
	case errors.Is(err, os.ErrNotExist):
		log.Printf("Predictor: %s not found, using raw features", NormalizationFile)
	case err != nil:
		return nil, fmt.Errorf("failed to load normalization: %w", err)
	default:
		if err := norm.validate(p.network.InputSize); err != nil {
			return nil, fmt.Errorf("invalid normalization %s: %w", NormalizationFile, err)
		}
		p.norm = &norm
	}

	switch err := readJSON(filepath.Join(dir, LabelsFile), &p.labels); {
	case errors.Is(err, os.ErrNotExist):
		log.Printf("Predictor: %s not found, using placeholder crop names", LabelsFile)
		p.labels = nil
	case err != nil:
		return nil, fmt.Errorf("failed to load labels: %w", err)
	case len(p.labels) != classes:
		return nil, fmt.Errorf("invalid labels %s: %d labels for %d classes", LabelsFile, len(p.labels), classes)
	}

	log.Printf("Predictor: loaded %d-layer classifier with %d classes from %s", len(p.network.Layers), classes, dir)
	return p, nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// validate checks layer shapes and returns the number of output classes
func (a ClassifierArtifact) validate() (int, error) {
	if a.InputSize != models.FeatureCount {
		return 0, fmt.Errorf("input_size is %d, expected %d", a.InputSize, models.FeatureCount)
	}
	if len(a.Layers) == 0 {
		return 0, errors.New("no layers")
	}
	width := a.InputSize
	for i, layer := range a.Layers {
		if len(layer.Weights) == 0 {
			return 0, fmt.Errorf("layer %d has no outputs", i)
		}
		if len(layer.Bias) != len(layer.Weights) {
			return 0, fmt.Errorf("layer %d has %d biases for %d outputs", i, len(layer.Bias), len(layer.Weights))
		}
		for j, row := range layer.Weights {
			if len(row) != width {
				return 0, fmt.Errorf("layer %d row %d has %d weights, expected %d", i, j, len(row), width)
			}
		}
		switch layer.Activation {
		case ActivationReLU, ActivationLinear, "":
		default:
			return 0, fmt.Errorf("layer %d has unknown activation %q", i, layer.Activation)
		}
		width = len(layer.Weights)
	}
	return width, nil
}

func (n Normalization) validate(size int) error {
	if len(n.Mean) != size || len(n.Std) != size {
		return fmt.Errorf("expected %d means and stds, got %d and %d", size, len(n.Mean), len(n.Std))
	}
	for i, s := range n.Std {
		if s == 0 {
			return fmt.Errorf("std for feature %d is zero", i)
		}
	}
	return nil
}

// Classes returns the number of crops the classifier distinguishes
func (p *PredictorService) Classes() int {
	return p.classes
}

// Predict returns the topN crops for the given conditions, sorted by
// descending confidence.
func (p *PredictorService) Predict(soil models.SoilSample, weather models.WeatherReading, rainfall float64, topN int) (models.PredictionResult, error) {
	probs, err := p.Classify(models.NewFeatureVector(soil, weather, rainfall))
	if err != nil {
		return nil, err
	}

	if topN > len(probs) {
		topN = len(probs)
	}
	if topN < 0 {
		topN = 0
	}

	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return probs[order[a]] > probs[order[b]]
	})

	result := make(models.PredictionResult, 0, topN)
	for _, idx := range order[:topN] {
		result = append(result, models.CropPrediction{
			Crop:       p.label(idx),
			Confidence: probs[idx] * 100,
		})
	}
	return result, nil
}

// Classify returns the full probability distribution over classes
func (p *PredictorService) Classify(features models.FeatureVector) ([]float64, error) {
	x := make([]float64, len(features))
	for i, v := range features {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("feature %d is not finite", i)
		}
		x[i] = v
		if p.norm != nil {
			x[i] = (v - p.norm.Mean[i]) / p.norm.Std[i]
		}
	}

	for _, layer := range p.network.Layers {
		x = layer.forward(x)
	}
	return softmax(x)
}

func (l DenseLayer) forward(in []float64) []float64 {
	out := make([]float64, len(l.Weights))
	for i, row := range l.Weights {
		sum := l.Bias[i]
		for j, w := range row {
			sum += w * in[j]
		}
		if l.Activation == ActivationReLU && sum < 0 {
			sum = 0
		}
		out[i] = sum
	}
	return out
}

func softmax(logits []float64) ([]float64, error) {
	peak := math.Inf(-1)
	for _, v := range logits {
		if math.IsNaN(v) {
			return nil, errors.New("classifier produced NaN")
		}
		if v > peak {
			peak = v
		}
	}

	probs := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		probs[i] = math.Exp(v - peak)
		sum += probs[i]
	}
	if sum == 0 || math.IsInf(sum, 0) || math.IsNaN(sum) {
		return nil, errors.New("classifier produced a degenerate distribution")
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs, nil
}

func (p *PredictorService) label(idx int) string {
	if p.labels == nil {
		return fmt.Sprintf("Crop_%d", idx)
	}
	return p.labels[idx]
}

// GetStatus returns the status of the predictor
func (p *PredictorService) GetStatus() map[string]interface{} {
	return map[string]interface{}{
		"status":        "loaded",
		"model_dir":     p.modelDir,
		"layers":        len(p.network.Layers),
		"classes":       p.classes,
		"normalized":    p.norm != nil,
		"labels_loaded": p.labels != nil,
	}
}
