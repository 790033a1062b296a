package model

// QuerySource records how a default search query was derived.
type QuerySource string

// Query sources.
const (
	QueryLearned QuerySource = "learned"
	QueryAI      QuerySource = "ai"
	QuerySimple  QuerySource = "simple"
	QueryManual  QuerySource = "manual"
	QueryNone    QuerySource = "none"
)

// SearchQuery is a derived or user-typed search string.
type SearchQuery struct {
	Query  string      `json:"query"`
	Source QuerySource `json:"source"`
}
