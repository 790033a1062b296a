package match

import (
	"fmt"
	"strings"
)

// SignalSet selects which signals apply to a scoring call.
type SignalSet uint16

// Individual signals.
const (
	SignalTypePrior SignalSet = 1 << iota
	SignalFilenameKeyword
	SignalSubjectKeyword
	SignalTextKeyword
	SignalAmount
	SignalPartner
	SignalReference
	SignalSenderDomain
	SignalLearned
	SignalDateDecay
)

// Signal presets for the pairings the application scores.
const (
	AllSignals = SignalTypePrior | SignalFilenameKeyword | SignalSubjectKeyword | SignalTextKeyword |
		SignalAmount | SignalPartner | SignalReference | SignalSenderDomain | SignalLearned | SignalDateDecay

	// TransactionToFile scores local documents for a bank transaction.
	TransactionToFile = SignalFilenameKeyword | SignalTextKeyword | SignalAmount |
		SignalPartner | SignalReference | SignalLearned | SignalDateDecay

	// TransactionToEmail scores mail messages for a bank transaction.
	TransactionToEmail = SignalTypePrior | SignalSubjectKeyword | SignalTextKeyword | SignalAmount |
		SignalPartner | SignalReference | SignalSenderDomain | SignalLearned | SignalDateDecay

	// EmailToAttachment scores the attachments of a message.
	EmailToAttachment = SignalTypePrior | SignalFilenameKeyword | SignalSubjectKeyword | SignalAmount |
		SignalPartner | SignalReference | SignalSenderDomain | SignalLearned | SignalDateDecay
)

// Has reports whether s contains every signal in other.
func (s SignalSet) Has(other SignalSet) bool {
	return s&other == other
}

// NameDateDecay names the date proximity multiplier in signal lists.
const NameDateDecay = "date_decay"

var signalNames = map[string]SignalSet{
	NameTypePrior:       SignalTypePrior,
	NameFilenameKeyword: SignalFilenameKeyword,
	NameSubjectKeyword:  SignalSubjectKeyword,
	NameTextKeyword:     SignalTextKeyword,
	NameAmount:          SignalAmount,
	NamePartner:         SignalPartner,
	NameReference:       SignalReference,
	NameSenderDomain:    SignalSenderDomain,
	NameLearned:         SignalLearned,
	NameDateDecay:       SignalDateDecay,

	"all":                  AllSignals,
	"transaction_to_file":  TransactionToFile,
	"transaction_to_email": TransactionToEmail,
	"email_to_attachment":  EmailToAttachment,
}

// ParseSignals combines signal or preset names into one set. An empty list
// yields the zero set, which makes the scorer pick the preset for each
// candidate's kind.
func ParseSignals(names []string) (SignalSet, error) {
	var set SignalSet
	for _, name := range names {
		s, ok := signalNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, fmt.Errorf("unknown signal %q", name)
		}
		set |= s
	}
	return set, nil
}
