package domain

import "time"

type ClauseKind string

const (
	ClauseActor    ClauseKind = "actor"
	ClauseDirector ClauseKind = "director"
	ClauseCompany  ClauseKind = "company"
	ClauseGenre    ClauseKind = "genre"
	ClauseYear     ClauseKind = "year"
	ClauseSemantic ClauseKind = "semantic"
)

// Structured reports whether the clause is resolved against an inverted index.
func (k ClauseKind) Structured() bool {
	return k != ClauseSemantic && k != ""
}

type YearRelation string

const (
	YearAfter  YearRelation = "after"
	YearBefore YearRelation = "before"
	YearIn     YearRelation = "in"
)

// Matches reports whether year satisfies the relation against target.
func (r YearRelation) Matches(year, target int) bool {
	switch r {
	case YearAfter:
		return year > target
	case YearBefore:
		return year < target
	case YearIn:
		return year == target
	default:
		return false
	}
}

// Clause is one AND-separated fragment of a query after classification.
// Value holds the normalized captured value for structured kinds and the raw
// text for semantic clauses.
type Clause struct {
	Text     string       `json:"text"`
	Kind     ClauseKind   `json:"kind"`
	Value    string       `json:"value,omitempty"`
	Relation YearRelation `json:"relation,omitempty"`
	Year     int          `json:"year,omitempty"`
}

// ClauseTrace records how a clause resolved, for diagnostics in responses.
type ClauseTrace struct {
	Clause  Clause `json:"clause"`
	Matches int    `json:"matches"`
}

// MergeMode names which clause group produced the final intersection.
type MergeMode string

const (
	MergeSemantic   MergeMode = "semantic"
	MergeStructured MergeMode = "structured"
)

// SearchResult is the output of one query planner run.
type SearchResult struct {
	Query      string        `json:"query"`
	Movies     []Movie       `json:"movies"`
	Clauses    []ClauseTrace `json:"clauses"`
	AbortedBy  *Clause       `json:"aborted_by,omitempty"`
	Merge      MergeMode     `json:"merge,omitempty"`
	TookMillis float64       `json:"took_ms"`
}

func (r *SearchResult) SetDuration(d time.Duration) {
	r.TookMillis = float64(d.Microseconds()) / 1000.0
}
