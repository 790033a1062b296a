package match

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/Veraticus/paper-trail/internal/model"
	"github.com/Veraticus/paper-trail/internal/normalize"
)

// Signal names recorded in ScoreResult.Contributions.
const (
	NameTypePrior       = "type_prior"
	NameFilenameKeyword = "filename_keyword"
	NameSubjectKeyword  = "subject_keyword"
	NameTextKeyword     = "text_keyword"
	NameAmount          = "amount"
	NamePartner         = "partner"
	NameReference       = "reference"
	NameSenderDomain    = "sender_domain"
	NameLearned         = "learned"
)

var senderDomain = regexp.MustCompile(`(?i)@([a-z0-9.-]+\.[a-z]{2,})`)

// Options carries per-call inputs to the scorer. A zero Signals value
// selects the preset for the candidate's kind.
type Options struct {
	Partner         *model.Partner
	LearnedPatterns []model.LearnedPattern
	Signals         SignalSet
}

// Scorer computes confidence scores. It holds no mutable state and is safe
// for concurrent use.
type Scorer struct {
	config Config
}

// NewScorer creates a scorer with the given configuration.
func NewScorer(config Config) *Scorer {
	return &Scorer{config: config}
}

// Config returns the scorer's configuration.
func (s *Scorer) Config() Config {
	return s.config
}

// SignalsFor returns the default signal preset for a candidate kind.
func SignalsFor(kind model.CandidateKind) SignalSet {
	switch kind {
	case model.CandidateLocal:
		return TransactionToFile
	case model.CandidateAttachment:
		return EmailToAttachment
	case model.CandidateEmail:
		return TransactionToEmail
	}
	return AllSignals
}

type accumulator struct {
	result model.ScoreResult
	raw    float64
}

func (a *accumulator) add(signal string, weight float64, reason string) {
	if weight <= 0 {
		return
	}
	a.raw += weight
	a.result.Contributions = append(a.result.Contributions, model.Contribution{Signal: signal, Weight: weight})
	a.result.Reasons = append(a.result.Reasons, reason)
}

// Score scores one candidate against one anchor. It never fails: empty
// anchors or candidates yield a zero score with no reasons.
func (s *Scorer) Score(anchor model.Anchor, candidate model.Candidate, opts Options) model.ScoreResult {
	if anchor.IsEmpty() || candidate.IsEmpty() {
		return model.ScoreResult{Reasons: []string{}}
	}

	signals := opts.Signals
	if signals == 0 {
		signals = SignalsFor(candidate.Kind)
	}

	w := s.config.Weights
	acc := &accumulator{result: model.ScoreResult{Reasons: []string{}, Multiplier: 1}}

	if signals.Has(SignalTypePrior) && candidate.LikelyReceipt() {
		acc.add(NameTypePrior, w.TypePrior, "Flagged as likely receipt")
	}

	s.scoreKeywords(acc, candidate, signals)

	if signals.Has(SignalAmount) {
		if variant, ok := s.matchAmount(anchor, candidate); ok {
			acc.add(NameAmount, w.Amount, fmt.Sprintf("Amount %s found", variant))
		}
	}

	searchText := candidate.SearchText()

	if signals.Has(SignalPartner) {
		if token, ok := normalize.FindAny(searchText, partnerTokens(anchor, opts.Partner)); ok {
			acc.add(NamePartner, w.Partner, fmt.Sprintf("Partner match: %s", token))
		}
	}

	if signals.Has(SignalReference) {
		refs := normalize.Tokenize(anchor.Description + " " + anchor.Reference)
		if token, ok := normalize.FindAny(searchText, refs); ok {
			acc.add(NameReference, w.Reference, fmt.Sprintf("Reference match: %s", token))
		}
	}

	if signals.Has(SignalSenderDomain) {
		if domain := SenderDomain(candidate.SenderAddress()); domain != "" && opts.Partner.HasDomain(domain) {
			acc.add(NameSenderDomain, w.SenderDomain, fmt.Sprintf("Sender domain %s belongs to partner", domain))
		}
	}

	if signals.Has(SignalLearned) && hasLearnedSource(anchor, candidate, opts) {
		acc.add(NameLearned, w.Learned, "Learned search pattern for this source")
	}

	score := acc.raw
	if signals.Has(SignalDateDecay) && anchor.HasDate() && !candidate.Date().IsZero() && score > 0 {
		days := DaysApart(anchor.Date, candidate.Date())
		mult := s.config.DecayMultiplier(days)
		score *= mult
		acc.result.Multiplier = mult
		acc.result.Reasons = append(acc.result.Reasons,
			fmt.Sprintf("Date proximity x%.2f (%.0f days apart)", mult, math.Floor(days)))
	}

	score = math.Min(score, s.config.ScoreCap)
	score = math.Max(0, math.Round(score*10000)/10000)

	acc.result.Score = score
	acc.result.Label = s.Label(score)
	return acc.result
}

// Label maps a 0-1 score to its categorical label.
func (s *Scorer) Label(score float64) model.Label {
	switch {
	case score >= s.config.StrongThreshold:
		return model.LabelStrong
	case score >= s.config.LikelyThreshold:
		return model.LabelLikely
	}
	return model.LabelNone
}

func (s *Scorer) scoreKeywords(acc *accumulator, candidate model.Candidate, signals SignalSet) {
	w := s.config.Weights
	fields := []struct {
		text   string
		signal SignalSet
		name   string
		label  string
		weight float64
	}{
		{candidate.Filename(), SignalFilenameKeyword, NameFilenameKeyword, "Filename", w.FilenameKeyword},
		{candidate.Subject(), SignalSubjectKeyword, NameSubjectKeyword, "Subject", w.SubjectKeyword},
		{candidate.FullText(), SignalTextKeyword, NameTextKeyword, "Text", w.TextKeyword},
	}

	for _, f := range fields {
		if !signals.Has(f.signal) {
			continue
		}
		if kw, ok := normalize.FindAny(normalize.CollapseWhitespace(f.text), s.config.Keywords); ok {
			acc.add(f.name, f.weight, fmt.Sprintf("%s contains %q", f.label, kw))
		}
	}
}

func (s *Scorer) matchAmount(anchor model.Anchor, candidate model.Candidate) (string, bool) {
	if anchor.Amount == nil {
		return "", false
	}
	if ac, cc := anchor.Currency, candidate.Currency(); ac != "" && cc != "" && !strings.EqualFold(ac, cc) {
		return "", false
	}
	return normalize.FindAny(candidate.SearchText(), normalize.AmountVariants(anchor.Amount))
}

func partnerTokens(anchor model.Anchor, partner *model.Partner) []string {
	parts := []string{anchor.PartnerName, anchor.Description}
	if partner != nil {
		parts = append(parts, partner.Name)
		parts = append(parts, partner.Aliases...)
	}
	return normalize.Tokenize(strings.Join(parts, " "))
}

func hasLearnedSource(anchor model.Anchor, candidate model.Candidate, opts Options) bool {
	partnerID := anchor.PartnerID
	if partnerID == "" && opts.Partner != nil {
		partnerID = opts.Partner.ID
	}
	if partnerID == "" {
		return false
	}
	for _, p := range opts.LearnedPatterns {
		if p.PartnerID != partnerID || p.SourceType != candidate.SourceType() {
			continue
		}
		if p.IntegrationID == candidate.IntegrationID() {
			return true
		}
	}
	return false
}

// SenderDomain extracts the lowercased domain from an email address.
func SenderDomain(address string) string {
	m := senderDomain.FindStringSubmatch(address)
	if m == nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(m[1]), "www.")
}

// DaysApart returns the absolute distance between two instants in days.
func DaysApart(a, b time.Time) float64 {
	return math.Abs(a.Sub(b).Hours()) / 24
}

var defaultScorer = NewScorer(DefaultConfig())

// Score scores a candidate using DefaultConfig.
func Score(anchor model.Anchor, candidate model.Candidate, opts Options) model.ScoreResult {
	return defaultScorer.Score(anchor, candidate, opts)
}
