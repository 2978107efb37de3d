package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"

	"github.com/wellslab/s4m-api/internal/frame"
	"github.com/wellslab/s4m-api/internal/logger"
	"github.com/wellslab/s4m-api/internal/storage"
	"github.com/wellslab/s4m-api/internal/utils"
)

// The ledger is tab-delimited, like every other file the portal writes.
func init() {
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.Comma = '\t'
		r.LazyQuotes = true
		return r
	})
	gocsv.SetCSVWriter(func(out io.Writer) *gocsv.SafeCSVWriter {
		w := csv.NewWriter(out)
		w.Comma = '\t'
		return gocsv.NewSafeCSVWriter(w)
	})
}

// UploadRecord is one provenance row in the upload ledger. Status and Notes
// are written blank and belong to the curation workflow that processes
// uploads later.
type UploadRecord struct {
	UploadID  string `csv:"upload_id"`
	Email     string `csv:"email"`
	AtlasType string `csv:"atlas_type"`
	CreatedAt string `csv:"created_at"`
	Status    string `csv:"status"`
	Notes     string `csv:"notes"`
}

type UploadService interface {
	Register(ctx context.Context, matrix *frame.Matrix, email, atlasType string) string
}

type uploadService struct {
	provider   storage.Provider
	ledgerPath string
	log        *logger.Logger
	mu         sync.Mutex
}

func NewUploadService(provider storage.Provider, log *logger.Logger) UploadService {
	root := utils.GetEnv("UPLOAD_FILEPATH", "uploads", log)
	return &uploadService{
		provider:   provider,
		ledgerPath: filepath.Join(root, "registry.tsv"),
		log:        log.With("service", "UploadService"),
	}
}

// Register stores the uploaded expression matrix under a freshly issued
// identifier and appends a provenance row to the ledger. The identifier is
// re-rolled if the ledger already holds it. This path is fire-and-forget:
// persistence problems are logged, never returned, and callers get no
// confirmation beyond the issued identifier.
func (us *uploadService) Register(ctx context.Context, matrix *frame.Matrix, email, atlasType string) string {
	us.mu.Lock()
	defer us.mu.Unlock()

	used, err := us.ledgerIDs()
	if err != nil {
		us.log.Error("Failed to read upload ledger", "path", us.ledgerPath, "error", err)
		used = map[string]struct{}{}
	}

	id := uuid.NewString()
	for {
		if _, taken := used[id]; !taken {
			break
		}
		id = uuid.NewString()
	}

	var buf bytes.Buffer
	if err := frame.WriteMatrix(&buf, matrix); err != nil {
		us.log.Error("Failed to serialize uploaded matrix", "upload_id", id, "error", err)
		return id
	}
	if err := us.provider.Save(ctx, fmt.Sprintf("%s/expression.tsv", id), &buf); err != nil {
		us.log.Error("Failed to store uploaded matrix", "upload_id", id, "error", err)
		return id
	}

	record := &UploadRecord{
		UploadID:  id,
		Email:     email,
		AtlasType: atlasType,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := us.appendRecord(record); err != nil {
		us.log.Error("Failed to append to upload ledger", "path", us.ledgerPath, "upload_id", id, "error", err)
	}
	return id
}

func (us *uploadService) ledgerIDs() (map[string]struct{}, error) {
	records, err := us.readLedger()
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(records))
	for _, r := range records {
		ids[r.UploadID] = struct{}{}
	}
	return ids, nil
}

func (us *uploadService) readLedger() ([]*UploadRecord, error) {
	f, err := os.Open(us.ledgerPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var records []*UploadRecord
	if err := gocsv.UnmarshalWithoutHeaders(f, &records); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, nil
		}
		return nil, err
	}
	return records, nil
}

func (us *uploadService) appendRecord(record *UploadRecord) error {
	if err := os.MkdirAll(filepath.Dir(us.ledgerPath), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(us.ledgerPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return gocsv.MarshalWithoutHeaders([]*UploadRecord{record}, f)
}
