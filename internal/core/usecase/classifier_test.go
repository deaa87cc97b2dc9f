package usecase

import (
	"reflect"
	"testing"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
)

func TestSplitClauses(t *testing.T) {
	got := SplitClauses("  starring Tom Hanks AND after 2015 and  and story about hope ")
	want := []string{"starring Tom Hanks", "after 2015", "story about hope"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitClauses() = %#v, want %#v", got, want)
	}
	if got := SplitClauses("   "); len(got) != 0 {
		t.Fatalf("expected no clauses, got %#v", got)
	}
}

func TestSplitClausesKeepsWordsContainingAnd(t *testing.T) {
	got := SplitClauses("featuring Sandra Bullock and genre is drama")
	want := []string{"featuring Sandra Bullock", "genre is drama"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitClauses() = %#v, want %#v", got, want)
	}
}

func TestClassifyClause(t *testing.T) {
	tests := []struct {
		text     string
		kind     domain.ClauseKind
		value    string
		relation domain.YearRelation
		year     int
	}{
		{text: "starring  Tom   Hanks", kind: domain.ClauseActor, value: "tom hanks"},
		{text: "Acted by Leonardo DiCaprio", kind: domain.ClauseActor, value: "leonardo dicaprio"},
		{text: "movies featuring Emily Blunt", kind: domain.ClauseActor, value: "emily blunt"},
		{text: "directed by Christopher Nolan", kind: domain.ClauseDirector, value: "christopher nolan"},
		{text: "by director James Cameron", kind: domain.ClauseDirector, value: "james cameron"},
		{text: "produced by Paramount Pictures", kind: domain.ClauseCompany, value: "paramount pictures"},
		{text: "distributed by Warner Bros.", kind: domain.ClauseCompany, value: "warner bros."},
		{text: "production Legendary Pictures", kind: domain.ClauseCompany, value: "legendary pictures"},
		{text: "genre is Science Fiction", kind: domain.ClauseGenre, value: "science fiction"},
		{text: "type is drama", kind: domain.ClauseGenre, value: "drama"},
		{text: "after 2015", kind: domain.ClauseYear, value: "2015", relation: domain.YearAfter, year: 2015},
		{text: "released Before 1990", kind: domain.ClauseYear, value: "1990", relation: domain.YearBefore, year: 1990},
		{text: "in 2010", kind: domain.ClauseYear, value: "2010", relation: domain.YearIn, year: 2010},
		{text: "story about hope", kind: domain.ClauseSemantic, value: "story about hope"},
		{text: "set in 20255", kind: domain.ClauseSemantic, value: "set in 20255"},
		{text: "superstarring nobody", kind: domain.ClauseSemantic, value: "superstarring nobody"},
	}

	for _, tt := range tests {
		got := ClassifyClause(tt.text)
		if got.Kind != tt.kind || got.Value != tt.value || got.Relation != tt.relation || got.Year != tt.year {
			t.Errorf("ClassifyClause(%q) = %+v, want kind=%s value=%q relation=%q year=%d",
				tt.text, got, tt.kind, tt.value, tt.relation, tt.year)
		}
	}
}

func TestClassifyClauseFirstMatchWins(t *testing.T) {
	// Actor rules are evaluated before year rules.
	got := ClassifyClause("starring someone in 2010")
	if got.Kind != domain.ClauseActor {
		t.Fatalf("expected actor clause, got %s", got.Kind)
	}
	if got.Value != "someone in 2010" {
		t.Fatalf("unexpected value %q", got.Value)
	}
}
