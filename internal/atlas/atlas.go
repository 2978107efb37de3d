// Package atlas reads integrated atlas data from disk. Each atlas lives in a
// directory {ATLAS_FILEPATH}/{type}_{version} holding an expression matrix,
// a rank-filtered expression matrix, sample annotations, gene info, PCA
// coordinates, display colours and release notes. A symlink named after the
// atlas type points at the current version.
package atlas

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wellslab/s4m-api/internal/frame"
)

type Atlas struct {
	Type    string
	Version string
	dir     string
}

// Open resolves one atlas under root. An empty version selects the current
// version, read from the {type} symlink when present, otherwise the highest
// version directory found.
func Open(root, atlasType, version string) (*Atlas, error) {
	if version == "" {
		resolved, err := CurrentVersion(root, atlasType)
		if err != nil {
			return nil, err
		}
		version = resolved
	}
	dir := filepath.Join(root, fmt.Sprintf("%s_%s", atlasType, version))
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("atlas %s version %s: %w", atlasType, version, err)
	}
	return &Atlas{Type: atlasType, Version: version, dir: dir}, nil
}

// CurrentVersion reads the {type} symlink and extracts the version suffix of
// its target. Without a symlink it falls back to the highest version on disk.
func CurrentVersion(root, atlasType string) (string, error) {
	target, err := os.Readlink(filepath.Join(root, atlasType))
	if err == nil {
		if v := versionOf(filepath.Base(target), atlasType); v != "" {
			return v, nil
		}
	}
	versions, err := Versions(root, atlasType)
	if err != nil {
		return "", err
	}
	if len(versions) == 0 {
		return "", fmt.Errorf("no atlas directories found for type %s", atlasType)
	}
	return versions[0], nil
}

// Versions lists the versions available for one atlas type, reverse sorted
// so the current version comes first.
func Versions(root, atlasType string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var versions []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if v := versionOf(entry.Name(), atlasType); v != "" {
			versions = append(versions, v)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(versions)))
	return versions, nil
}

func versionOf(name, atlasType string) string {
	prefix := atlasType + "_"
	if !strings.HasPrefix(name, prefix) {
		return ""
	}
	return strings.TrimPrefix(name, prefix)
}

// TypeInfo describes one atlas type for the listing endpoint.
type TypeInfo struct {
	CurrentVersion string   `json:"current_version"`
	Versions       []string `json:"versions"`
	ReleaseNotes   []string `json:"release_notes"`
}

// Types returns version and release-note info for each known atlas type.
// Types with no directories on disk are skipped.
func Types(root string, atlasTypes []string) (map[string]TypeInfo, error) {
	result := map[string]TypeInfo{}
	for _, atlasType := range atlasTypes {
		versions, err := Versions(root, atlasType)
		if err != nil {
			return nil, err
		}
		if len(versions) == 0 {
			continue
		}
		current, err := CurrentVersion(root, atlasType)
		if err != nil {
			current = versions[0]
		}
		notes := make([]string, 0, len(versions))
		for _, v := range versions {
			raw, err := os.ReadFile(filepath.Join(root, fmt.Sprintf("%s_%s", atlasType, v), "Readme.txt"))
			if err != nil {
				notes = append(notes, "")
				continue
			}
			notes = append(notes, string(raw))
		}
		result[atlasType] = TypeInfo{CurrentVersion: current, Versions: versions, ReleaseNotes: notes}
	}
	return result, nil
}

// Coordinates returns the precomputed PCA coordinates, sample ids as index
// and axes renamed "0", "1", ... regardless of the names in the file.
func (a *Atlas) Coordinates() (*frame.Matrix, error) {
	m, err := frame.ReadMatrixFile(filepath.Join(a.dir, "coordinates.tsv"))
	if err != nil {
		return nil, err
	}
	for i := range m.Columns {
		m.Columns[i] = fmt.Sprintf("%d", i)
	}
	return m, nil
}

// ExpressionFilePath returns the on-disk path of the expression matrix. The
// filtered variant holds rank-normalised values for the inclusion genes only.
func (a *Atlas) ExpressionFilePath(filtered bool) string {
	filename := "expression.tsv"
	if filtered {
		filename = "expression.filtered.tsv"
	}
	return filepath.Join(a.dir, filename)
}

func (a *Atlas) Expression(filtered bool) (*frame.Matrix, error) {
	return frame.ReadMatrixFile(a.ExpressionFilePath(filtered))
}

// ExpressionValues returns the expression rows for the requested genes, in
// atlas order, silently dropping ids the atlas does not carry.
func (a *Atlas) ExpressionValues(geneIDs []string) (*frame.Matrix, error) {
	m, err := a.Expression(false)
	if err != nil {
		return nil, err
	}
	keep := make(map[string]struct{}, len(geneIDs))
	for _, id := range geneIDs {
		keep[id] = struct{}{}
	}
	return m.SelectRows(keep), nil
}

func (a *Atlas) Samples() (*frame.Table, error) {
	return frame.ReadTableFile(filepath.Join(a.dir, "samples.tsv"))
}

// DatasetIDs extracts the dataset id prefix of every atlas sample id.
func (a *Atlas) DatasetIDs() ([]int, error) {
	samples, err := a.Samples()
	if err != nil {
		return nil, err
	}
	seen := map[int]struct{}{}
	var ids []int
	for _, sampleID := range samples.Index {
		var id int
		if _, err := fmt.Sscanf(sampleID, "%d_", &id); err != nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

// Genes returns the gene annotation table, Ensembl ids as index.
func (a *Atlas) Genes() (*frame.Table, error) {
	return frame.ReadTableFile(filepath.Join(a.dir, "genes.tsv"))
}

// InclusionGeneCount counts the genes marked for inclusion in the filtered
// expression matrix.
func (a *Atlas) InclusionGeneCount() (int, error) {
	genes, err := a.Genes()
	if err != nil {
		return 0, err
	}
	values, ok := genes.Column("inclusion")
	if !ok {
		return 0, fmt.Errorf("atlas %s genes.tsv has no inclusion column", a.Type)
	}
	count := 0
	for _, v := range values {
		if strings.EqualFold(v, "true") {
			count++
		}
	}
	return count, nil
}

// ColoursAndOrdering parses colours.json, which maps sample columns to value
// colours and display ordering. Returns an empty object when the file does
// not exist.
func (a *Atlas) ColoursAndOrdering() (map[string]interface{}, error) {
	raw, err := os.ReadFile(filepath.Join(a.dir, "colours.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]interface{}{}, nil
		}
		return nil, err
	}
	var parsed map[string]interface{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parsing colours.json for atlas %s: %w", a.Type, err)
	}
	return parsed, nil
}
