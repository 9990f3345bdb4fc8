package scoring

import "fmt"

// Normalization ceilings. Trees larger than these simply floor the
// affected component at zero; command utterances sit well under them.
const (
	priorityCeiling  = 20.0
	safetySizeLimit  = 40.0
	safetyDepthLimit = 10.0
	parsimonyLimit   = 30.0
)

// Weights holds the six component weights. They need not sum to one;
// the final score divides by the weight total.
type Weights struct {
	Priority     float64 `json:"priority"`
	Explicitness float64 `json:"explicitness"`
	Safety       float64 `json:"safety"`
	Specificity  float64 `json:"specificity"`
	Parsimony    float64 `json:"parsimony"`
	Coherence    float64 `json:"coherence"`
}

// Config tunes ranking, confidence classification and the clarification
// decision. All fields are static configuration; nothing here changes
// at runtime, which keeps scoring deterministic.
type Config struct {
	Weights Weights `json:"weights"`

	// ClarityThreshold is the minimum score gap between the top two
	// parses for the winner to count as clearly ahead.
	ClarityThreshold float64 `json:"clarity_threshold"`

	// ClarificationThreshold is the score below which a parse cannot be
	// acted on without asking the user.
	ClarificationThreshold float64 `json:"clarification_threshold"`

	// MaxResults caps the ranked list; zero means no cap.
	MaxResults int `json:"max_results"`

	SafetyBias       float64 `json:"safety_bias"`
	ExplicitnessBias float64 `json:"explicitness_bias"`
}

// DefaultConfig returns the tuned production defaults.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Priority:     0.25,
			Explicitness: 0.20,
			Safety:       0.20,
			Specificity:  0.15,
			Parsimony:    0.10,
			Coherence:    0.10,
		},
		ClarityThreshold:       0.15,
		ClarificationThreshold: 0.5,
		MaxResults:             5,
	}
}

// Sum returns the weight total.
func (w Weights) Sum() float64 {
	return w.Priority + w.Explicitness + w.Safety + w.Specificity + w.Parsimony + w.Coherence
}

// Validate rejects configurations that cannot rank anything sensibly.
// Weight mistakes are authoring defects, caught before any parse runs.
func (c Config) Validate() error {
	weights := []struct {
		name  string
		value float64
	}{
		{"priority", c.Weights.Priority},
		{"explicitness", c.Weights.Explicitness},
		{"safety", c.Weights.Safety},
		{"specificity", c.Weights.Specificity},
		{"parsimony", c.Weights.Parsimony},
		{"coherence", c.Weights.Coherence},
	}
	for _, w := range weights {
		if w.value < 0 {
			return fmt.Errorf("scoring: weight %s is negative (%f)", w.name, w.value)
		}
	}
	if c.Weights.Sum() <= 0 {
		return fmt.Errorf("scoring: weights sum to zero")
	}
	if c.ClarityThreshold < 0 || c.ClarityThreshold > 1 {
		return fmt.Errorf("scoring: clarity threshold %f outside [0,1]", c.ClarityThreshold)
	}
	if c.ClarificationThreshold < 0 || c.ClarificationThreshold > 1 {
		return fmt.Errorf("scoring: clarification threshold %f outside [0,1]", c.ClarificationThreshold)
	}
	if c.MaxResults < 0 {
		return fmt.Errorf("scoring: max results is negative (%d)", c.MaxResults)
	}
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
