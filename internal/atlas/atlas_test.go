package atlas

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func fixtureRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, dir := range []string{"blood_1.0", "blood_1.1", "dc_2.0"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	writeFixture(t, filepath.Join(root, "blood_1.1"), "Readme.txt", "Version 1.1 adds samples.")
	writeFixture(t, filepath.Join(root, "blood_1.1"), "coordinates.tsv",
		"\tx\ty\n6387_1\t0.1\t0.2\n6387_2\t0.3\t0.4\n7012_1\t0.5\t0.6\n")
	writeFixture(t, filepath.Join(root, "blood_1.1"), "samples.tsv",
		"\tcell_type\n6387_1\tmonocyte\n6387_2\tmonocyte\n7012_1\tt cell\n")
	writeFixture(t, filepath.Join(root, "blood_1.1"), "genes.tsv",
		"\tsymbol\tinclusion\nENSG00000000101\tCD34\tTrue\nENSG00000000102\tSPI1\tFalse\nENSG00000000103\tIRF8\ttrue\n")
	writeFixture(t, filepath.Join(root, "blood_1.1"), "expression.tsv",
		"\t6387_1\t6387_2\t7012_1\nENSG00000000101\t1\t2\t3\nENSG00000000102\t4\t5\t6\n")
	writeFixture(t, filepath.Join(root, "blood_1.1"), "colours.json",
		`{"cell_type_colours": {"monocyte": "#ff0000"}}`)
	return root
}

func TestVersions(t *testing.T) {
	root := fixtureRoot(t)

	versions, err := Versions(root, "blood")
	if err != nil {
		t.Fatalf("Versions: %v", err)
	}
	// Reverse sorted so the newest comes first.
	if len(versions) != 2 || versions[0] != "1.1" || versions[1] != "1.0" {
		t.Fatalf("Versions: want=[1.1 1.0] got=%v", versions)
	}

	versions, err = Versions(root, "myeloid")
	if err != nil {
		t.Fatalf("Versions myeloid: %v", err)
	}
	if len(versions) != 0 {
		t.Fatalf("Versions myeloid: want=[] got=%v", versions)
	}
}

func TestCurrentVersionFromSymlink(t *testing.T) {
	root := fixtureRoot(t)
	if err := os.Symlink(filepath.Join(root, "blood_1.0"), filepath.Join(root, "blood")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	version, err := CurrentVersion(root, "blood")
	if err != nil {
		t.Fatalf("CurrentVersion: %v", err)
	}
	// The symlink pins 1.0 even though 1.1 exists.
	if version != "1.0" {
		t.Fatalf("CurrentVersion: want=1.0 got=%s", version)
	}
}

func TestCurrentVersionFallsBackToNewest(t *testing.T) {
	root := fixtureRoot(t)

	version, err := CurrentVersion(root, "blood")
	if err != nil {
		t.Fatalf("CurrentVersion: %v", err)
	}
	if version != "1.1" {
		t.Fatalf("CurrentVersion: want=1.1 got=%s", version)
	}

	if _, err := CurrentVersion(root, "myeloid"); err == nil {
		t.Fatalf("CurrentVersion: expected error for type with no directories")
	}
}

func TestOpen(t *testing.T) {
	root := fixtureRoot(t)

	atl, err := Open(root, "blood", "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if atl.Type != "blood" || atl.Version != "1.1" {
		t.Fatalf("Open: got %s %s", atl.Type, atl.Version)
	}

	if _, err := Open(root, "blood", "9.9"); err == nil {
		t.Fatalf("Open: expected error for missing version")
	}
}

func TestTypes(t *testing.T) {
	root := fixtureRoot(t)

	infos, err := Types(root, []string{"myeloid", "blood", "dc"})
	if err != nil {
		t.Fatalf("Types: %v", err)
	}
	// myeloid has no directories and is skipped.
	if _, ok := infos["myeloid"]; ok {
		t.Fatalf("Types: myeloid should be skipped")
	}
	blood, ok := infos["blood"]
	if !ok {
		t.Fatalf("Types: blood missing")
	}
	if blood.CurrentVersion != "1.1" || len(blood.Versions) != 2 {
		t.Fatalf("Types blood: %+v", blood)
	}
	if blood.ReleaseNotes[0] != "Version 1.1 adds samples." || blood.ReleaseNotes[1] != "" {
		t.Fatalf("Types release notes: %v", blood.ReleaseNotes)
	}
	if _, ok := infos["dc"]; !ok {
		t.Fatalf("Types: dc missing")
	}
}

func TestCoordinates(t *testing.T) {
	root := fixtureRoot(t)
	atl, err := Open(root, "blood", "1.1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	coords, err := atl.Coordinates()
	if err != nil {
		t.Fatalf("Coordinates: %v", err)
	}
	// Axis names are normalised to 0, 1, ... whatever the file called them.
	if coords.Columns[0] != "0" || coords.Columns[1] != "1" {
		t.Fatalf("Coordinates columns: got %v", coords.Columns)
	}
	if coords.NRows() != 3 {
		t.Fatalf("Coordinates rows: want=3 got=%d", coords.NRows())
	}
}

func TestDatasetIDs(t *testing.T) {
	root := fixtureRoot(t)
	atl, err := Open(root, "blood", "1.1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	ids, err := atl.DatasetIDs()
	if err != nil {
		t.Fatalf("DatasetIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != 6387 || ids[1] != 7012 {
		t.Fatalf("DatasetIDs: want=[6387 7012] got=%v", ids)
	}
}

func TestInclusionGeneCount(t *testing.T) {
	root := fixtureRoot(t)
	atl, err := Open(root, "blood", "1.1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	count, err := atl.InclusionGeneCount()
	if err != nil {
		t.Fatalf("InclusionGeneCount: %v", err)
	}
	// Case-insensitive: True and true both count.
	if count != 2 {
		t.Fatalf("InclusionGeneCount: want=2 got=%d", count)
	}
}

func TestExpressionValues(t *testing.T) {
	root := fixtureRoot(t)
	atl, err := Open(root, "blood", "1.1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	m, err := atl.ExpressionValues([]string{"ENSG00000000102", "ENSG00000000999"})
	if err != nil {
		t.Fatalf("ExpressionValues: %v", err)
	}
	// Unknown ids are dropped silently.
	if m.NRows() != 1 || m.Index[0] != "ENSG00000000102" {
		t.Fatalf("ExpressionValues: got %v", m.Index)
	}
	if m.Values[0][0] != 4 {
		t.Fatalf("ExpressionValues cell: want=4 got=%v", m.Values[0][0])
	}
}

func TestColoursAndOrdering(t *testing.T) {
	root := fixtureRoot(t)
	atl, err := Open(root, "blood", "1.1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	colours, err := atl.ColoursAndOrdering()
	if err != nil {
		t.Fatalf("ColoursAndOrdering: %v", err)
	}
	if _, ok := colours["cell_type_colours"]; !ok {
		t.Fatalf("ColoursAndOrdering: got %v", colours)
	}

	// A version without the file serves an empty object.
	older, err := Open(root, "blood", "1.0")
	if err != nil {
		t.Fatalf("Open 1.0: %v", err)
	}
	colours, err = older.ColoursAndOrdering()
	if err != nil {
		t.Fatalf("ColoursAndOrdering 1.0: %v", err)
	}
	if len(colours) != 0 {
		t.Fatalf("ColoursAndOrdering 1.0: want empty got %v", colours)
	}
}
