package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
)

var andSeparator = regexp.MustCompile(`(?i) and `)

// clauseRule is one row of the classification table. Rules are evaluated in
// declaration order and the first match wins.
type clauseRule struct {
	kind    domain.ClauseKind
	pattern *regexp.Regexp
	extract func(match []string, clause *domain.Clause) bool
}

// Keywords are anchored on word boundaries on purpose: "superstarring x" is
// not an actor clause and "in 20255" is not a year clause. Both fall through
// to semantic search.
var clauseRules = []clauseRule{
	{
		kind:    domain.ClauseActor,
		pattern: regexp.MustCompile(`(?i)\b(?:acted\s+by|starring|featuring)\s+(.+)`),
		extract: captureValue,
	},
	{
		kind:    domain.ClauseDirector,
		pattern: regexp.MustCompile(`(?i)\b(?:directed\s+by|by\s+director)\s+(.+)`),
		extract: captureValue,
	},
	{
		kind:    domain.ClauseCompany,
		pattern: regexp.MustCompile(`(?i)\b(?:produced\s+by|production|distributed\s+by)\s+(.+)`),
		extract: captureValue,
	},
	{
		kind:    domain.ClauseGenre,
		pattern: regexp.MustCompile(`(?i)\b(?:genre\s+is|genre\s+in|type\s+is)\s+(.+)`),
		extract: captureValue,
	},
	{
		kind:    domain.ClauseYear,
		pattern: regexp.MustCompile(`(?i)\b(after|before|in)\s+(\d{4})\b`),
		extract: captureYear,
	},
}

func captureValue(match []string, clause *domain.Clause) bool {
	value := domain.NormalizeKey(match[1])
	if value == "" {
		return false
	}
	clause.Value = value
	return true
}

func captureYear(match []string, clause *domain.Clause) bool {
	year, err := strconv.Atoi(match[2])
	if err != nil {
		return false
	}
	clause.Relation = domain.YearRelation(strings.ToLower(match[1]))
	clause.Year = year
	clause.Value = match[2]
	return true
}

// SplitClauses breaks a raw query on the AND separator, dropping empty pieces.
func SplitClauses(query string) []string {
	parts := andSeparator.Split(query, -1)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ClassifyClause maps one clause to exactly one kind. Clauses that match no
// structured rule are semantic and keep their raw text.
func ClassifyClause(text string) domain.Clause {
	text = strings.TrimSpace(text)
	for _, rule := range clauseRules {
		match := rule.pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		clause := domain.Clause{Text: text, Kind: rule.kind}
		if rule.extract(match, &clause) {
			return clause
		}
	}
	return domain.Clause{Text: text, Kind: domain.ClauseSemantic, Value: text}
}

// PlanClauses splits and classifies a query without resolving it.
func PlanClauses(query string) []domain.Clause {
	texts := SplitClauses(query)
	clauses := make([]domain.Clause, 0, len(texts))
	for _, text := range texts {
		clauses = append(clauses, ClassifyClause(text))
	}
	return clauses
}
