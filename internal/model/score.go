package model

// Label is the categorical confidence bucket of a score.
type Label string

// Labels. LabelNone is returned below the "Likely" threshold.
const (
	LabelStrong Label = "Strong"
	LabelLikely Label = "Likely"
	LabelNone   Label = ""
)

// Contribution is one signal's share of a score before date decay.
type Contribution struct {
	Signal string  `json:"signal"`
	Weight float64 `json:"weight"`
}

// ScoreResult is the output of scoring one anchor/candidate pair.
type ScoreResult struct {
	Reasons       []string       `json:"reasons"`
	Contributions []Contribution `json:"contributions,omitempty"`
	Label         Label          `json:"label,omitempty"`
	Score         float64        `json:"score"`
	Multiplier    float64        `json:"multiplier"`
}

// Percent returns the score on the 0-100 scale.
func (r ScoreResult) Percent() int {
	return int(r.Score*100 + 0.5)
}
