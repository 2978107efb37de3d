package repos

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"github.com/wellslab/s4m-api/internal/logger"
	"github.com/wellslab/s4m-api/internal/types"
)

type SampleRepo interface {
	Find(ctx context.Context, tx *gorm.DB, filter SampleFilter) ([]types.Sample, error)
	SearchDatasetIDs(ctx context.Context, tx *gorm.DB, query string) ([]int, error)
	DatasetIDsByOrganism(ctx context.Context, tx *gorm.DB, organism string) ([]int, error)
	ListByDatasetID(ctx context.Context, tx *gorm.DB, datasetID int) ([]types.Sample, error)
	ColumnValues(ctx context.Context, tx *gorm.DB, column string, datasetIDs []int) ([]string, error)
}

type sampleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSampleRepo(db *gorm.DB, baseLog *logger.Logger) SampleRepo {
	repoLog := baseLog.With("repo", "SampleRepo")
	return &sampleRepo{db: db, log: repoLog}
}

func (sr *sampleRepo) apply(q *gorm.DB, filter SampleFilter) *gorm.DB {
	driver := sr.db.Dialector.Name()

	if filter.query != "" {
		clause, args := textSearchClause(driver, sampleSearchColumns, filter.query)
		q = q.Where(clause, args...)
	}
	if filter.organism != "" {
		q = q.Where("organism = ?", filter.organism)
	}
	if len(filter.datasetIDs) > 0 {
		q = q.Where("dataset_id IN ?", filter.datasetIDs)
	}
	if filter.publicOnly {
		q = q.Where("dataset_id IN (SELECT dataset_id FROM dataset WHERE private = ?)", false)
	}
	if len(filter.excludeIDs) > 0 {
		q = q.Where("dataset_id NOT IN ?", filter.excludeIDs)
	}
	if filter.limit > 0 {
		q = q.Limit(filter.limit)
	}
	return q
}

func (sr *sampleRepo) Find(ctx context.Context, tx *gorm.DB, filter SampleFilter) ([]types.Sample, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var results []types.Sample
	q := sr.apply(transaction.WithContext(ctx).Model(&types.Sample{}), filter)
	if err := q.Order("sample_id").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// SearchDatasetIDs runs a text search over the sample collection and
// projects the distinct dataset ids of the matching samples.
func (sr *sampleRepo) SearchDatasetIDs(ctx context.Context, tx *gorm.DB, query string) ([]int, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	clause, args := textSearchClause(sr.db.Dialector.Name(), sampleSearchColumns, query)

	var ids []int
	if err := transaction.WithContext(ctx).
		Model(&types.Sample{}).
		Where(clause, args...).
		Distinct().
		Order("dataset_id").
		Pluck("dataset_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (sr *sampleRepo) DatasetIDsByOrganism(ctx context.Context, tx *gorm.DB, organism string) ([]int, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var ids []int
	if err := transaction.WithContext(ctx).
		Model(&types.Sample{}).
		Where("organism = ?", organism).
		Distinct().
		Order("dataset_id").
		Pluck("dataset_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (sr *sampleRepo) ListByDatasetID(ctx context.Context, tx *gorm.DB, datasetID int) ([]types.Sample, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var results []types.Sample
	if err := transaction.WithContext(ctx).
		Where("dataset_id = ?", datasetID).
		Order("sample_id").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ColumnValues returns one sample column across all samples of the given
// datasets (every sample when datasetIDs is empty), nulls mapped to "".
func (sr *sampleRepo) ColumnValues(ctx context.Context, tx *gorm.DB, column string, datasetIDs []int) ([]string, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	q := transaction.WithContext(ctx).Model(&types.Sample{})
	if len(datasetIDs) > 0 {
		q = q.Where("dataset_id IN ?", datasetIDs)
	}

	var raw []sql.NullString
	if err := q.Order("sample_id").Pluck(column, &raw).Error; err != nil {
		return nil, err
	}
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		if v.Valid {
			values = append(values, v.String)
		} else {
			values = append(values, "")
		}
	}
	return values, nil
}
