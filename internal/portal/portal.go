// Package portal holds the domain constants of the data portal: atlas types,
// the dataset deny-list, canonical field lists and the grouping-column
// preference order. Values come from an embedded YAML spec so deployments can
// override them via PORTAL_SPEC_YAML without a rebuild; a compiled-in
// fallback keeps the server working when the YAML is missing or invalid.
package portal

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/wellslab/s4m-api/internal/logger"
)

const portalSpecEnv = "PORTAL_SPEC_YAML"

//go:embed portal.yaml
var portalSpecFS embed.FS

var fallbackAtlasTypes = []string{"myeloid", "blood", "dc"}

var fallbackExcludedDatasetIDs = []int{
	5002, 6056, 6127, 6130, 6131, 6149, 6150, 6151, 6155, 6187,
	6197, 6198, 6368, 6655, 6701, 6754, 6776, 6948, 7012, 7115,
	7209, 7217, 7218, 7250, 7311, 7401,
}

var fallbackPlatformTypes = []string{"Microarray", "RNASeq", "scRNASeq", "other"}

var fallbackDatasetFields = []string{
	"dataset_id", "name", "title", "authors", "description", "platform_type",
	"platform", "private", "pubmed_id", "accession", "version", "status",
	"projects",
}

var fallbackSampleFields = []string{
	"sample_id", "dataset_id", "cell_type", "parental_cell_type", "final_cell_type",
	"disease_state", "organism", "sample_type", "tissue_of_origin", "sample_name_long",
	"media", "cell_line", "facs_profile", "sample_description", "experiment_time",
	"sex", "reprogramming_method", "genetic_modification", "sample_source",
	"developmental_stage", "treatment", "external_source_id",
}

var fallbackGroupingColumns = []string{"cell_type", "sample_type", "final_cell_type"}

const fallbackMissingValueToken = "unknown"

type yamlPortalSpec struct {
	Portal                   string   `yaml:"portal"`
	Version                  int      `yaml:"version"`
	AtlasTypes               []string `yaml:"atlas_types"`
	ExcludedDatasetIDs       []int    `yaml:"excluded_dataset_ids"`
	PlatformTypes            []string `yaml:"platform_types"`
	DatasetFields            []string `yaml:"dataset_fields"`
	SampleFields             []string `yaml:"sample_fields"`
	GroupingColumnPreference []string `yaml:"grouping_column_preference"`
	MissingValueToken        string   `yaml:"missing_value_token"`
}

// Spec is the resolved portal configuration.
type Spec struct {
	AtlasTypes               []string
	ExcludedDatasetIDs       []int
	PlatformTypes            []string
	DatasetFields            []string
	SampleFields             []string
	GroupingColumnPreference []string
	MissingValueToken        string
}

var specOnce sync.Once
var specCache *Spec
var specErr error

// Current returns the portal spec, loading it once per process. A load
// failure is logged and the compiled-in fallback returned.
func Current(log *logger.Logger) *Spec {
	specOnce.Do(func() {
		specCache, specErr = loadSpec()
	})
	if specErr != nil {
		if log != nil {
			log.Warn("portal spec load failed; using fallback", "error", specErr)
		}
		return fallbackSpec()
	}
	return specCache
}

func fallbackSpec() *Spec {
	return &Spec{
		AtlasTypes:               fallbackAtlasTypes,
		ExcludedDatasetIDs:       fallbackExcludedDatasetIDs,
		PlatformTypes:            fallbackPlatformTypes,
		DatasetFields:            fallbackDatasetFields,
		SampleFields:             fallbackSampleFields,
		GroupingColumnPreference: fallbackGroupingColumns,
		MissingValueToken:        fallbackMissingValueToken,
	}
}

func loadSpec() (*Spec, error) {
	data, err := readSpecBytes()
	if err != nil {
		return nil, err
	}
	var raw yamlPortalSpec
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if err := validateSpec(&raw); err != nil {
		return nil, err
	}
	spec := &Spec{
		AtlasTypes:               raw.AtlasTypes,
		ExcludedDatasetIDs:       raw.ExcludedDatasetIDs,
		PlatformTypes:            raw.PlatformTypes,
		DatasetFields:            raw.DatasetFields,
		SampleFields:             raw.SampleFields,
		GroupingColumnPreference: raw.GroupingColumnPreference,
		MissingValueToken:        raw.MissingValueToken,
	}
	if spec.MissingValueToken == "" {
		spec.MissingValueToken = fallbackMissingValueToken
	}
	if len(spec.GroupingColumnPreference) == 0 {
		spec.GroupingColumnPreference = fallbackGroupingColumns
	}
	return spec, nil
}

func readSpecBytes() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(portalSpecEnv)); path != "" {
		return os.ReadFile(path)
	}
	return portalSpecFS.ReadFile("portal.yaml")
}

func validateSpec(raw *yamlPortalSpec) error {
	if raw == nil {
		return errors.New("missing spec")
	}
	if strings.TrimSpace(raw.Portal) != "stemformatics" {
		return fmt.Errorf("unexpected portal: %s", raw.Portal)
	}
	if len(raw.AtlasTypes) == 0 {
		return errors.New("no atlas types defined")
	}
	if len(raw.DatasetFields) == 0 || len(raw.SampleFields) == 0 {
		return errors.New("dataset and sample field lists are required")
	}
	return nil
}

// AtlasProjectTags returns the projects tag carried by datasets that belong
// to an atlas, one per atlas type (eg. "blood_atlas").
func (s *Spec) AtlasProjectTags() []string {
	tags := make([]string, 0, len(s.AtlasTypes))
	for _, atlasType := range s.AtlasTypes {
		tags = append(tags, fmt.Sprintf("%s_atlas", atlasType))
	}
	return tags
}

// IsAtlasType reports whether atlasType is one of the configured types.
func (s *Spec) IsAtlasType(atlasType string) bool {
	for _, t := range s.AtlasTypes {
		if t == atlasType {
			return true
		}
	}
	return false
}

// IsExcludedDataset reports whether datasetID is on the deny-list.
func (s *Spec) IsExcludedDataset(datasetID int) bool {
	for _, id := range s.ExcludedDatasetIDs {
		if id == datasetID {
			return true
		}
	}
	return false
}

// IsDatasetField reports whether key is a recognised dataset metadata field.
func (s *Spec) IsDatasetField(key string) bool {
	return containsString(s.DatasetFields, key)
}

// IsSampleField reports whether key is a recognised sample annotation field.
func (s *Spec) IsSampleField(key string) bool {
	return containsString(s.SampleFields, key)
}

func containsString(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
