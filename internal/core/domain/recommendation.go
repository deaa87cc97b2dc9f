package domain

// Candidate is a (title, reason) pair emitted by the re-ranker. It is not
// guaranteed to correspond to any known movie.
type Candidate struct {
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// Recommendation is a candidate joined with the metadata of the movie it was
// reconciled to. Details is the zero Movie when nothing matched.
type Recommendation struct {
	Title   string  `json:"title"`
	Reason  string  `json:"reason"`
	Matched bool    `json:"matched"`
	Details Movie   `json:"details"`
	Offers  []Offer `json:"offers,omitempty"`
}

type RecommendationResult struct {
	Query           string           `json:"query"`
	Candidates      []Movie          `json:"candidates"`
	Recommendations []Recommendation `json:"recommendations"`
}
