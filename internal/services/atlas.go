package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wellslab/s4m-api/internal/atlas"
	"github.com/wellslab/s4m-api/internal/frame"
	"github.com/wellslab/s4m-api/internal/logger"
	"github.com/wellslab/s4m-api/internal/portal"
)

var ErrAtlasNotFound = errors.New("atlas not found")

type AtlasService interface {
	Types(ctx context.Context) (map[string]atlas.TypeInfo, error)
	Coordinates(ctx context.Context, atlasType string) (*frame.Matrix, error)
	SampleTable(ctx context.Context, atlasType string) (*frame.Table, error)
	ColoursAndOrdering(ctx context.Context, atlasType string) (map[string]interface{}, error)
	PossibleGenes(ctx context.Context, atlasType, queryString string) ([]map[string]string, error)
	ExpressionValues(ctx context.Context, atlasType string, geneIDs []string) (*frame.Matrix, error)
	ExpressionFile(ctx context.Context, atlasType string, filtered bool) (string, string, error)
}

type atlasService struct {
	root string
	log  *logger.Logger
}

func NewAtlasService(root string, log *logger.Logger) AtlasService {
	return &atlasService{root: root, log: log.With("service", "AtlasService")}
}

func (as *atlasService) open(atlasType string) (*atlas.Atlas, error) {
	spec := portal.Current(as.log)
	if !spec.IsAtlasType(atlasType) {
		return nil, fmt.Errorf("%w: %s", ErrAtlasNotFound, atlasType)
	}
	atl, err := atlas.Open(as.root, atlasType, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAtlasNotFound, atlasType)
	}
	return atl, nil
}

func (as *atlasService) Types(ctx context.Context) (map[string]atlas.TypeInfo, error) {
	spec := portal.Current(as.log)
	return atlas.Types(as.root, spec.AtlasTypes)
}

func (as *atlasService) Coordinates(ctx context.Context, atlasType string) (*frame.Matrix, error) {
	atl, err := as.open(atlasType)
	if err != nil {
		return nil, err
	}
	return atl.Coordinates()
}

func (as *atlasService) SampleTable(ctx context.Context, atlasType string) (*frame.Table, error) {
	atl, err := as.open(atlasType)
	if err != nil {
		return nil, err
	}
	return atl.Samples()
}

func (as *atlasService) ColoursAndOrdering(ctx context.Context, atlasType string) (map[string]interface{}, error) {
	atl, err := as.open(atlasType)
	if err != nil {
		return nil, err
	}
	return atl.ColoursAndOrdering()
}

// PossibleGenes lists the atlas genes whose symbol starts with queryString,
// inclusion genes first then by symbol, one record per gene with the Ensembl
// id under "ensembl".
func (as *atlasService) PossibleGenes(ctx context.Context, atlasType, queryString string) ([]map[string]string, error) {
	atl, err := as.open(atlasType)
	if err != nil {
		return nil, err
	}
	genes, err := atl.Genes()
	if err != nil {
		return nil, err
	}
	symbols, ok := genes.Column("symbol")
	if !ok {
		return nil, fmt.Errorf("atlas %s genes.tsv has no symbol column", atlasType)
	}
	inclusion, _ := genes.Column("inclusion")

	prefix := strings.ToLower(queryString)
	var rows []int
	for i := range genes.Index {
		if strings.HasPrefix(strings.ToLower(symbols[i]), prefix) {
			rows = append(rows, i)
		}
	}
	sort.SliceStable(rows, func(a, b int) bool {
		ia, ib := "", ""
		if inclusion != nil {
			ia, ib = inclusion[rows[a]], inclusion[rows[b]]
		}
		if ia != ib {
			return ia > ib
		}
		return symbols[rows[a]] < symbols[rows[b]]
	})

	records := make([]map[string]string, 0, len(rows))
	for _, i := range rows {
		rec := make(map[string]string, len(genes.Columns)+1)
		rec["ensembl"] = genes.Index[i]
		for j, col := range genes.Columns {
			rec[col] = genes.Cells[i][j]
		}
		records = append(records, rec)
	}
	return records, nil
}

func (as *atlasService) ExpressionValues(ctx context.Context, atlasType string, geneIDs []string) (*frame.Matrix, error) {
	atl, err := as.open(atlasType)
	if err != nil {
		return nil, err
	}
	return atl.ExpressionValues(geneIDs)
}

// ExpressionFile returns the on-disk path of an atlas expression matrix and
// the file name it should download as.
func (as *atlasService) ExpressionFile(ctx context.Context, atlasType string, filtered bool) (string, string, error) {
	atl, err := as.open(atlasType)
	if err != nil {
		return "", "", err
	}
	path := atl.ExpressionFilePath(filtered)
	name := fmt.Sprintf("stemformatics_atlas_%s.%s.%s", atl.Type, atl.Version, filepath.Base(path))
	return path, name, nil
}
