package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/brandscope/internal/models"
)

// ErrKeyNotFound is returned when a key does not exist in the KV store
var ErrKeyNotFound = errors.New("key not found")

// ErrAnalysisNotFound is returned when an analysis job does not exist
var ErrAnalysisNotFound = errors.New("analysis not found")

// AnalysisListOptions controls analysis listing
type AnalysisListOptions struct {
	Status string // Filter by status, empty for all
	Limit  int
	Offset int
}

// AnalysisStorage defines CRUD operations for analysis jobs.
// Save is an upsert; callers are expected to serialize writes to the
// same job id (the progress tracker owns that discipline).
type AnalysisStorage interface {
	SaveAnalysis(ctx context.Context, analysis *models.Analysis) error
	GetAnalysis(ctx context.Context, id string) (*models.Analysis, error)
	ListAnalyses(ctx context.Context, opts *AnalysisListOptions) ([]*models.Analysis, error)
	DeleteAnalysis(ctx context.Context, id string) error
	CountAnalyses(ctx context.Context) (int, error)
}

// KeyValuePair is a stored key/value entry (API keys, settings)
type KeyValuePair struct {
	Key         string `badgerhold:"key"`
	Value       string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// KeyValueStorage defines key/value storage operations
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value, description string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]*KeyValuePair, error)
}

// StorageManager bundles the storage services behind one lifecycle
type StorageManager interface {
	AnalysisStorage() AnalysisStorage
	KeyValueStorage() KeyValueStorage
	Close() error
}
