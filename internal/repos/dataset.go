package repos

import (
	"context"
	"database/sql"
	"strings"

	"gorm.io/gorm"

	"github.com/wellslab/s4m-api/internal/logger"
	"github.com/wellslab/s4m-api/internal/types"
)

type DatasetRepo interface {
	Find(ctx context.Context, tx *gorm.DB, filter DatasetFilter) ([]types.Dataset, error)
	FindIDs(ctx context.Context, tx *gorm.DB, filter DatasetFilter) ([]int, error)
	SearchIDs(ctx context.Context, tx *gorm.DB, query string) ([]int, error)
	Get(ctx context.Context, tx *gorm.DB, datasetID int) (*types.Dataset, error)
	GetByName(ctx context.Context, tx *gorm.DB, name string, publicOnly bool) (*types.Dataset, error)
	ColumnValues(ctx context.Context, tx *gorm.DB, column string, filter DatasetFilter) ([]string, error)
}

type datasetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDatasetRepo(db *gorm.DB, baseLog *logger.Logger) DatasetRepo {
	repoLog := baseLog.With("repo", "DatasetRepo")
	return &datasetRepo{db: db, log: repoLog}
}

func (dr *datasetRepo) apply(q *gorm.DB, filter DatasetFilter) *gorm.DB {
	driver := dr.db.Dialector.Name()

	if filter.publicOnly {
		q = q.Where("private = ?", false)
	}
	if len(filter.excludeIDs) > 0 {
		q = q.Where("dataset_id NOT IN ?", filter.excludeIDs)
	}
	if len(filter.ids) > 0 {
		q = q.Where("dataset_id IN ?", filter.ids)
	}
	if filter.name != "" {
		q = q.Where("name = ?", filter.name)
	}
	if len(filter.platformTypes) > 0 {
		q = q.Where("platform_type IN ?", filter.platformTypes)
	}
	if len(filter.projects) > 0 {
		q = q.Where(projectsClause(driver), filter.projects)
	}
	if filter.status != "" {
		q = q.Where("status = ?", filter.status)
	}
	if filter.query != "" {
		clause, args := textSearchClause(driver, datasetSearchColumns, filter.query)
		q = q.Where(clause, args...)
	}
	if filter.limit > 0 {
		q = q.Limit(filter.limit)
	}
	return q
}

func (dr *datasetRepo) Find(ctx context.Context, tx *gorm.DB, filter DatasetFilter) ([]types.Dataset, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}

	var results []types.Dataset
	q := dr.apply(transaction.WithContext(ctx).Model(&types.Dataset{}), filter)
	if len(filter.fields) > 0 {
		q = q.Select(filter.fields)
	}
	if err := q.Order("dataset_id").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (dr *datasetRepo) FindIDs(ctx context.Context, tx *gorm.DB, filter DatasetFilter) ([]int, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}

	var ids []int
	q := dr.apply(transaction.WithContext(ctx).Model(&types.Dataset{}), filter)
	if err := q.Order("dataset_id").Pluck("dataset_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// SearchIDs runs a text search over the dataset collection alone and returns
// the matching dataset ids, with no visibility filtering. Callers combine
// the result with sample-collection matches before applying a base filter.
func (dr *datasetRepo) SearchIDs(ctx context.Context, tx *gorm.DB, query string) ([]int, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}

	clause, args := textSearchClause(dr.db.Dialector.Name(), datasetSearchColumns, query)

	var ids []int
	if err := transaction.WithContext(ctx).
		Model(&types.Dataset{}).
		Where(clause, args...).
		Order("dataset_id").
		Pluck("dataset_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (dr *datasetRepo) Get(ctx context.Context, tx *gorm.DB, datasetID int) (*types.Dataset, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}

	var result types.Dataset
	if err := transaction.WithContext(ctx).
		Where("dataset_id = ?", datasetID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (dr *datasetRepo) GetByName(ctx context.Context, tx *gorm.DB, name string, publicOnly bool) (*types.Dataset, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}

	q := transaction.WithContext(ctx).Where("name = ?", name)
	if publicOnly {
		q = q.Where("private = ?", false)
	}

	var result types.Dataset
	if err := q.First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

// ColumnValues returns the raw value of one dataset column for every dataset
// matching the filter, in dataset id order. List-valued columns (projects)
// are flattened to comma-joined strings and nulls come back as "".
func (dr *datasetRepo) ColumnValues(ctx context.Context, tx *gorm.DB, column string, filter DatasetFilter) ([]string, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}

	if column == "projects" {
		var rows []types.Dataset
		q := dr.apply(transaction.WithContext(ctx).Model(&types.Dataset{}), filter)
		if err := q.Select([]string{"dataset_id", "projects"}).Order("dataset_id").Find(&rows).Error; err != nil {
			return nil, err
		}
		values := make([]string, 0, len(rows))
		for _, row := range rows {
			values = append(values, strings.Join(row.ProjectTags(), ","))
		}
		return values, nil
	}

	var raw []sql.NullString
	q := dr.apply(transaction.WithContext(ctx).Model(&types.Dataset{}), filter)
	if err := q.Order("dataset_id").Pluck(column, &raw).Error; err != nil {
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
