package portal

import (
	"testing"

	"github.com/wellslab/s4m-api/internal/logger"
)

func TestCurrentLoadsEmbeddedSpec(t *testing.T) {
	spec := Current(logger.NewNop())

	if len(spec.AtlasTypes) != 3 {
		t.Fatalf("atlas types: want=3 got=%v", spec.AtlasTypes)
	}
	if !spec.IsAtlasType("blood") || !spec.IsAtlasType("myeloid") || !spec.IsAtlasType("dc") {
		t.Fatalf("atlas types incomplete: %v", spec.AtlasTypes)
	}
	if spec.IsAtlasType("retina") {
		t.Fatalf("retina should not be an atlas type")
	}
	if spec.MissingValueToken != "unknown" {
		t.Fatalf("missing value token: want=unknown got=%q", spec.MissingValueToken)
	}
	if len(spec.GroupingColumnPreference) == 0 || spec.GroupingColumnPreference[0] != "cell_type" {
		t.Fatalf("grouping preference: got %v", spec.GroupingColumnPreference)
	}
}

func TestExcludedDatasets(t *testing.T) {
	spec := Current(logger.NewNop())

	if !spec.IsExcludedDataset(5002) {
		t.Fatalf("5002 should be excluded")
	}
	if spec.IsExcludedDataset(6003) {
		t.Fatalf("6003 should not be excluded")
	}
}

func TestFieldLists(t *testing.T) {
	spec := Current(logger.NewNop())

	for _, field := range []string{"dataset_id", "name", "platform_type", "projects"} {
		if !spec.IsDatasetField(field) {
			t.Fatalf("%s should be a dataset field", field)
		}
	}
	if spec.IsDatasetField("cell_type") {
		t.Fatalf("cell_type is a sample field, not a dataset field")
	}
	for _, field := range []string{"sample_id", "cell_type", "organism", "treatment"} {
		if !spec.IsSampleField(field) {
			t.Fatalf("%s should be a sample field", field)
		}
	}
}

func TestAtlasProjectTags(t *testing.T) {
	spec := Current(logger.NewNop())

	tags := spec.AtlasProjectTags()
	if len(tags) != len(spec.AtlasTypes) {
		t.Fatalf("tags: want=%d got=%d", len(spec.AtlasTypes), len(tags))
	}
	found := false
	for _, tag := range tags {
		if tag == "blood_atlas" {
			found = true
		}
	}
	if !found {
		t.Fatalf("blood_atlas tag missing: %v", tags)
	}
}
