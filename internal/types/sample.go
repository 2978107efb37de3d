package types

// Sample is one sample annotation record. Sample ids carry their dataset id
// as a prefix ("{datasetId}_{id}"). Like Dataset, read-only for this API.
type Sample struct {
	SampleID            string `gorm:"column:sample_id;primaryKey" json:"sample_id"`
	DatasetID           int    `gorm:"column:dataset_id;index;not null" json:"dataset_id"`
	CellType            string `gorm:"column:cell_type" json:"cell_type"`
	ParentalCellType    string `gorm:"column:parental_cell_type" json:"parental_cell_type"`
	FinalCellType       string `gorm:"column:final_cell_type" json:"final_cell_type"`
	DiseaseState        string `gorm:"column:disease_state" json:"disease_state"`
	Organism            string `gorm:"column:organism;index" json:"organism"`
	SampleType          string `gorm:"column:sample_type" json:"sample_type"`
	TissueOfOrigin      string `gorm:"column:tissue_of_origin" json:"tissue_of_origin"`
	SampleNameLong      string `gorm:"column:sample_name_long" json:"sample_name_long"`
	Media               string `gorm:"column:media" json:"media"`
	CellLine            string `gorm:"column:cell_line" json:"cell_line"`
	FacsProfile         string `gorm:"column:facs_profile" json:"facs_profile"`
	SampleDescription   string `gorm:"column:sample_description" json:"sample_description"`
	ExperimentTime      string `gorm:"column:experiment_time" json:"experiment_time"`
	Sex                 string `gorm:"column:sex" json:"sex"`
	ReprogrammingMethod string `gorm:"column:reprogramming_method" json:"reprogramming_method"`
	GeneticModification string `gorm:"column:genetic_modification" json:"genetic_modification"`
	SampleSource        string `gorm:"column:sample_source" json:"sample_source"`
	DevelopmentalStage  string `gorm:"column:developmental_stage" json:"developmental_stage"`
	Treatment           string `gorm:"column:treatment" json:"treatment"`
	ExternalSourceID    string `gorm:"column:external_source_id" json:"external_source_id"`
}

func (Sample) TableName() string {
	return "sample"
}

// FieldValue returns the value of one annotation field by column name.
// dataset_id is not addressable here; it is numeric and carried by the
// sample id prefix.
func (s *Sample) FieldValue(field string) (string, bool) {
	switch field {
	case "sample_id":
		return s.SampleID, true
	case "cell_type":
		return s.CellType, true
	case "parental_cell_type":
		return s.ParentalCellType, true
	case "final_cell_type":
		return s.FinalCellType, true
	case "disease_state":
		return s.DiseaseState, true
	case "organism":
		return s.Organism, true
	case "sample_type":
		return s.SampleType, true
	case "tissue_of_origin":
		return s.TissueOfOrigin, true
	case "sample_name_long":
		return s.SampleNameLong, true
	case "media":
		return s.Media, true
	case "cell_line":
		return s.CellLine, true
	case "facs_profile":
		return s.FacsProfile, true
	case "sample_description":
		return s.SampleDescription, true
	case "experiment_time":
		return s.ExperimentTime, true
	case "sex":
		return s.Sex, true
	case "reprogramming_method":
		return s.ReprogrammingMethod, true
	case "genetic_modification":
		return s.GeneticModification, true
	case "sample_source":
		return s.SampleSource, true
	case "developmental_stage":
		return s.DevelopmentalStage, true
	case "treatment":
		return s.Treatment, true
	case "external_source_id":
		return s.ExternalSourceID, true
	}
	return "", false
}
