// Package emotion defines the pluggable inference collaborator. The ledger
// only depends on the Classifier interface, so it can be tested (and shipped)
// without a real model behind it.
package emotion

import "context"

// Result is an emotion distribution with its dominant label and an overall
// confidence. Scores are probabilities per emotion label.
type Result struct {
	Dominant   string             `json:"dominant_emotion"`
	Scores     map[string]float64 `json:"emotions"`
	Confidence float64            `json:"confidence"`
}

// Classifier turns stored media into an emotion distribution.
type Classifier interface {
	// Classify analyzes the media at mediaPath. mediaType is image or video.
	Classify(ctx context.Context, mediaPath, mediaType string) (Result, error)
}

// StubClassifier returns a fixed placeholder distribution. It stands in for
// the external inference service until one is wired.
type StubClassifier struct{}

// NewStubClassifier creates the placeholder classifier.
func NewStubClassifier() *StubClassifier { return &StubClassifier{} }

// Classify returns the fixed placeholder result.
func (*StubClassifier) Classify(_ context.Context, _ string, _ string) (Result, error) {
	return Result{
		Dominant: "happy",
		Scores: map[string]float64{
			"happy":   0.8,
			"sad":     0.1,
			"neutral": 0.1,
		},
		Confidence: 0.9,
	}, nil
}
