package match

import (
	"math"
	"sort"
	"time"

	"github.com/Veraticus/paper-trail/internal/model"
)

// Ranked pairs a candidate with its score.
type Ranked struct {
	Candidate model.Candidate   `json:"candidate"`
	Result    model.ScoreResult `json:"result"`
}

// Rank scores every candidate and orders them by score descending. Ties are
// broken by the receipt prior, then by closeness to the anchor date (or by
// newest first when the anchor has no date). The sort is stable so equal
// candidates keep their input order.
func (s *Scorer) Rank(anchor model.Anchor, candidates []model.Candidate, opts Options) []Ranked {
	ranked := make([]Ranked, len(candidates))
	for i, c := range candidates {
		ranked[i] = Ranked{Candidate: c, Result: s.Score(anchor, c, opts)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return less(anchor, ranked[i], ranked[j])
	})

	return ranked
}

func less(anchor model.Anchor, a, b Ranked) bool {
	if a.Result.Score != b.Result.Score {
		return a.Result.Score > b.Result.Score
	}

	if pa, pb := a.Candidate.LikelyReceipt(), b.Candidate.LikelyReceipt(); pa != pb {
		return pa
	}

	da, db := a.Candidate.Date(), b.Candidate.Date()
	if anchor.HasDate() {
		return distance(anchor, da) < distance(anchor, db)
	}
	if da.Equal(db) {
		return false
	}
	return da.After(db)
}

// distance treats undated candidates as infinitely far away.
func distance(anchor model.Anchor, date time.Time) float64 {
	if date.IsZero() {
		return math.Inf(1)
	}
	return DaysApart(anchor.Date, date)
}

// Candidates extracts the ordered candidates from a ranking.
func Candidates(ranked []Ranked) []model.Candidate {
	out := make([]model.Candidate, len(ranked))
	for i, r := range ranked {
		out[i] = r.Candidate
	}
	return out
}

// Rank ranks candidates using DefaultConfig.
func Rank(anchor model.Anchor, candidates []model.Candidate, opts Options) []Ranked {
	return defaultScorer.Rank(anchor, candidates, opts)
}
