package domain

import "time"

// SearchType selects how candidates are ranked during retrieval.
type SearchType string

// Available search types.
const (
	// SearchSimilarity ranks by cosine similarity only.
	SearchSimilarity SearchType = "similarity"

	// SearchMMR re-ranks candidates by maximal marginal relevance.
	SearchMMR SearchType = "mmr"
)

// IsValid returns true if the search type is recognised.
func (s SearchType) IsValid() bool {
	return s == SearchSimilarity || s == SearchMMR
}

// String returns the string representation.
func (s SearchType) String() string {
	return string(s)
}

// Retrieval defaults.
const (
	DefaultRetrievalK      = 10
	DefaultRetrievalFetchK = 30
	DefaultMMRLambda       = 0.5
)

// RetrievalOptions controls a similarity search.
type RetrievalOptions struct {
	// K is the number of chunks returned.
	K int

	// FetchK is the size of the candidate pool considered before
	// de-duplication and re-ranking.
	FetchK int

	// Type is the ranking strategy.
	Type SearchType

	// Lambda weighs relevance against diversity for MMR (1 = relevance only).
	Lambda float64
}

// Normalised fills defaults and keeps FetchK >= K.
func (o RetrievalOptions) Normalised() RetrievalOptions {
	if o.K <= 0 {
		o.K = DefaultRetrievalK
	}
	if o.FetchK <= 0 {
		o.FetchK = DefaultRetrievalFetchK
	}
	if o.FetchK < o.K {
		o.FetchK = o.K
	}
	if !o.Type.IsValid() {
		o.Type = SearchSimilarity
	}
	if o.Lambda <= 0 || o.Lambda > 1 {
		o.Lambda = DefaultMMRLambda
	}
	return o
}

// IndexStats describes an on-disk vector index.
type IndexStats struct {
	Path       string
	Entries    int
	Dimensions int
	Model      string
	UpdatedAt  time.Time
}
