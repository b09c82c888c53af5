package ports

import (
	"context"
	"time"

	"github.com/fixora/servicebay/internal/domain"
)

// ServiceRecordStore is the remote record store. The store owns durability and
// performs the state check, the mutation and the history append atomically.
type ServiceRecordStore interface {
	// Create inserts a record with its service-type tags and product lines.
	// The store writes the initial INSERT history row.
	Create(ctx context.Context, record *domain.ServiceRecord) error

	// FindByID retrieves a record in any state
	FindByID(ctx context.Context, id string) (*domain.ServiceRecord, error)

	// UpdateActive overwrites fields of a record only while it is active.
	// Returns nil and no error when no active row matched.
	UpdateActive(ctx context.Context, id string, update domain.ServiceRecordUpdate, actor string, reason *string, updatedAt time.Time) (*domain.ServiceRecord, error)

	// SoftDelete marks an active record deleted. Returns false when no active record matched.
	SoftDelete(ctx context.Context, id, actor string, reason *string) (bool, error)

	// Restore clears the deletion markers. Returns false when no deleted record matched.
	Restore(ctx context.Context, id, actor string, reason *string) (bool, error)

	// History returns the history log of a record, newest first
	History(ctx context.Context, id string) ([]domain.HistoryEntry, error)

	// ListActive retrieves active records, newest service date first
	ListActive(ctx context.Context, filter domain.ServiceRecordFilter) ([]*domain.ServiceRecord, error)

	// ListDeleted retrieves deleted records, most recently deleted first
	ListDeleted(ctx context.Context, limit int) ([]*domain.ServiceRecord, error)

	// ListServiceTypes returns the service-type catalog ordered by name
	ListServiceTypes(ctx context.Context) ([]domain.ServiceTypeRef, error)

	// ListProducts returns the product catalog ordered by name
	ListProducts(ctx context.Context) ([]domain.Product, error)
}

// OperationRecorder observes lifecycle operation outcomes
type OperationRecorder interface {
	ObserveOperation(operation string, kind domain.ResultKind, duration time.Duration)
}
