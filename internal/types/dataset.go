package types

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// Dataset is one catalogued dataset's metadata record. Records are written
// by the ingestion pipeline and read-only for this API.
type Dataset struct {
	DatasetID    int            `gorm:"column:dataset_id;primaryKey" json:"dataset_id"`
	Name         string         `gorm:"column:name;uniqueIndex" json:"name"`
	Title        string         `gorm:"column:title" json:"title"`
	Authors      string         `gorm:"column:authors" json:"authors"`
	Description  string         `gorm:"column:description" json:"description"`
	PlatformType string         `gorm:"column:platform_type;index" json:"platform_type"`
	Platform     string         `gorm:"column:platform" json:"platform"`
	Private      bool           `gorm:"column:private;not null;default:false" json:"private"`
	PubmedID     string         `gorm:"column:pubmed_id" json:"pubmed_id"`
	Accession    string         `gorm:"column:accession" json:"accession"`
	Version      string         `gorm:"column:version" json:"version"`
	Status       string         `gorm:"column:status;index" json:"status"`
	Projects     datatypes.JSON `gorm:"column:projects;type:jsonb" json:"projects"`
}

func (Dataset) TableName() string {
	return "dataset"
}

// ProjectTags decodes the projects column into a string slice. A missing or
// malformed column decodes to nil.
func (d *Dataset) ProjectTags() []string {
	if len(d.Projects) == 0 {
		return nil
	}
	var tags []string
	if err := json.Unmarshal(d.Projects, &tags); err != nil {
		return nil
	}
	return tags
}

// Record serializes the requested metadata fields, unknown field names
// skipped.
func (d *Dataset) Record(fields []string) map[string]interface{} {
	rec := make(map[string]interface{}, len(fields))
	for _, field := range fields {
		switch field {
		case "dataset_id":
			rec[field] = d.DatasetID
		case "name":
			rec[field] = d.Name
		case "title":
			rec[field] = d.Title
		case "authors":
			rec[field] = d.Authors
		case "description":
			rec[field] = d.Description
		case "platform_type":
			rec[field] = d.PlatformType
		case "platform":
			rec[field] = d.Platform
		case "private":
			rec[field] = d.Private
		case "pubmed_id":
			rec[field] = d.PubmedID
		case "accession":
			rec[field] = d.Accession
		case "version":
			rec[field] = d.Version
		case "status":
			rec[field] = d.Status
		case "projects":
			tags := d.ProjectTags()
			if tags == nil {
				tags = []string{}
			}
			rec[field] = tags
		}
	}
	return rec
}
