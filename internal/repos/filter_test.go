package repos

import (
	"strings"
	"testing"
)

func TestTextSearchClause(t *testing.T) {
	clause, args := textSearchClause("postgres", datasetSearchColumns, "cord blood")
	if !strings.Contains(clause, "search_tsv") {
		t.Fatalf("postgres clause should use the tsvector column, got %q", clause)
	}
	if len(args) != 1 || args[0] != "cord blood" {
		t.Fatalf("postgres args: want=[cord blood] got=%v", args)
	}

	clause, args = textSearchClause("sqlite", datasetSearchColumns, "CD34")
	if strings.Contains(clause, "search_tsv") {
		t.Fatalf("sqlite clause should not reference the tsvector column, got %q", clause)
	}
	if got := strings.Count(clause, "LIKE ?"); got != len(datasetSearchColumns) {
		t.Fatalf("sqlite clause: want=%d LIKE terms got=%d", len(datasetSearchColumns), got)
	}
	if len(args) != len(datasetSearchColumns) {
		t.Fatalf("sqlite args: want=%d got=%d", len(datasetSearchColumns), len(args))
	}
	for _, arg := range args {
		if arg != "%cd34%" {
			t.Fatalf("sqlite arg: want=%%cd34%% got=%v", arg)
		}
	}
}

func TestProjectsClause(t *testing.T) {
	if clause := projectsClause("postgres"); !strings.Contains(clause, "jsonb_array_elements_text") {
		t.Fatalf("postgres projects clause: got %q", clause)
	}
	if clause := projectsClause("sqlite"); !strings.Contains(clause, "json_each") {
		t.Fatalf("sqlite projects clause: got %q", clause)
	}
}

func TestDatasetFilterCopies(t *testing.T) {
	base := NewDatasetFilter()
	if !base.publicOnly {
		t.Fatalf("base filter should default to public only")
	}

	ids := []int{1, 2}
	derived := base.WithIDs(ids).WithQuery("blood")

	if base.ids != nil || base.query != "" {
		t.Fatalf("base filter mutated: %+v", base)
	}
	ids[0] = 99
	if derived.ids[0] != 1 {
		t.Fatalf("filter shares caller slice: %v", derived.ids)
	}
}
