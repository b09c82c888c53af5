// Package memory provides an in-process record store that applies the same
// transactional rules as the PostgreSQL procedures. Every operation runs under
// a single lock, so the state check, the mutation and the history append are atomic.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fixora/servicebay/internal/domain"
	"github.com/fixora/servicebay/internal/ports"
)

const defaultDeletedLimit = 50

// Option configures a ServiceRecordStore
type Option func(*ServiceRecordStore)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *ServiceRecordStore) {
		s.now = now
	}
}

// ServiceRecordStore implements ports.ServiceRecordStore in memory
type ServiceRecordStore struct {
	mu           sync.RWMutex
	records      map[string]*domain.ServiceRecord
	history      map[string][]domain.HistoryEntry
	serviceTypes map[string]string
	products     map[string]string
	now          func() time.Time
	lastTick     time.Time
}

var _ ports.ServiceRecordStore = (*ServiceRecordStore)(nil)

// NewServiceRecordStore creates an empty store
func NewServiceRecordStore(opts ...Option) *ServiceRecordStore {
	s := &ServiceRecordStore{
		records:      make(map[string]*domain.ServiceRecord),
		history:      make(map[string][]domain.HistoryEntry),
		serviceTypes: make(map[string]string),
		products:     make(map[string]string),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterServiceType adds a service type that records may be tagged with
func (s *ServiceRecordStore) RegisterServiceType(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serviceTypes[id] = name
}

// RegisterProduct adds a product that records may reference
func (s *ServiceRecordStore) RegisterProduct(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[id] = name
}

// SeedCatalog registers service types and products by name under fresh ids.
// Names already present are skipped.
func (s *ServiceRecordStore) SeedCatalog(serviceTypes, products []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seed(s.serviceTypes, serviceTypes)
	seed(s.products, products)
}

func seed(catalog map[string]string, names []string) {
	existing := make(map[string]bool, len(catalog))
	for _, name := range catalog {
		existing[name] = true
	}
	for _, name := range names {
		if existing[name] {
			continue
		}
		catalog[uuid.New().String()] = name
		existing[name] = true
	}
}

// ListServiceTypes returns the registered service types ordered by name
func (s *ServiceRecordStore) ListServiceTypes(ctx context.Context) ([]domain.ServiceTypeRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]domain.ServiceTypeRef, 0, len(s.serviceTypes))
	for id, name := range s.serviceTypes {
		types = append(types, domain.ServiceTypeRef{ID: id, Name: name})
	}
	sort.Slice(types, func(i, j int) bool {
		if types[i].Name == types[j].Name {
			return types[i].ID < types[j].ID
		}
		return types[i].Name < types[j].Name
	})
	return types, nil
}

// ListProducts returns the registered products ordered by name
func (s *ServiceRecordStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for id, name := range s.products {
		products = append(products, domain.Product{ID: id, Name: name})
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Name == products[j].Name {
			return products[i].ID < products[j].ID
		}
		return products[i].Name < products[j].Name
	})
	return products, nil
}

// Create saves a new record and appends its INSERT history row
func (s *ServiceRecordStore) Create(ctx context.Context, record *domain.ServiceRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.ID]; exists {
		return fmt.Errorf("service record %s already exists", record.ID)
	}

	stored := record.Clone()
	for i, tag := range stored.Services {
		name, ok := s.serviceTypes[tag.ID]
		if !ok {
			return domain.ErrInvalidReference
		}
		stored.Services[i].Name = name
	}
	for i, line := range stored.Products {
		name, ok := s.products[line.ProductID]
		if !ok {
			return domain.ErrInvalidReference
		}
		stored.Products[i].ProductName = name
	}

	now := s.tick()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	stored.DeletedAt = nil
	stored.DeletedBy = nil

	actor := domain.DefaultActor
	if stored.UpdatedBy != nil && *stored.UpdatedBy != "" {
		actor = *stored.UpdatedBy
	}

	s.records[stored.ID] = stored
	s.appendHistory(stored.ID, domain.AuditActionInsert, nil, stored.Snapshot(), []string{domain.AllFields}, actor, now, stored.ChangeReason)

	record.CreatedAt = now
	record.UpdatedAt = now
	record.Services = append([]domain.ServiceTypeRef(nil), stored.Services...)
	record.Products = append([]domain.ProductLine(nil), stored.Products...)
	return nil
}

// FindByID retrieves a record in any state
func (s *ServiceRecordStore) FindByID(ctx context.Context, id string) (*domain.ServiceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return record.Clone(), nil
}

// UpdateActive applies update only while the record is active
func (s *ServiceRecordStore) UpdateActive(ctx context.Context, id string, update domain.ServiceRecordUpdate, actor string, reason *string, updatedAt time.Time) (*domain.ServiceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok || record.IsDeleted() {
		return nil, nil
	}

	oldData := record.Snapshot()
	changed := update.ChangedFields(record)
	if changed == nil {
		changed = []string{}
	}

	update.Apply(record)
	record.UpdatedAt = updatedAt
	record.UpdatedBy = &actor
	// a blank reason keeps the previous one on the row; history gets only this update's
	if reason != nil {
		record.ChangeReason = copyString(reason)
	}

	s.appendHistory(id, domain.AuditActionUpdate, oldData, record.Snapshot(), changed, actor, s.tick(), reason)
	return record.Clone(), nil
}

// SoftDelete marks an active record deleted
func (s *ServiceRecordStore) SoftDelete(ctx context.Context, id, actor string, reason *string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok || record.IsDeleted() {
		return false, nil
	}

	oldData := record.Snapshot()
	now := s.tick()
	record.DeletedAt = &now
	record.DeletedBy = &actor
	record.UpdatedAt = now
	record.UpdatedBy = &actor
	record.ChangeReason = copyString(reason)

	s.appendHistory(id, domain.AuditActionDelete, oldData, nil, []string{domain.FieldDeletedAt}, actor, now, reason)
	return true, nil
}

// Restore clears the deletion markers of a deleted record
func (s *ServiceRecordStore) Restore(ctx context.Context, id, actor string, reason *string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok || !record.IsDeleted() {
		return false, nil
	}

	oldData := record.Snapshot()
	now := s.tick()
	record.DeletedAt = nil
	record.DeletedBy = nil
	record.UpdatedAt = now
	record.UpdatedBy = &actor
	record.ChangeReason = copyString(reason)

	s.appendHistory(id, domain.AuditActionRestore, oldData, record.Snapshot(), []string{domain.FieldDeletedAt}, actor, now, reason)
	return true, nil
}

// History returns the record's history log, newest first
func (s *ServiceRecordStore) History(ctx context.Context, id string) ([]domain.HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.history[id]
	out := make([]domain.HistoryEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

// ListActive retrieves active records matching filter, newest service date first
func (s *ServiceRecordStore) ListActive(ctx context.Context, filter domain.ServiceRecordFilter) ([]*domain.ServiceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*domain.ServiceRecord, 0)
	for _, r := range s.records {
		if r.IsDeleted() || !filter.Matches(r) {
			continue
		}
		records = append(records, r.Clone())
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ServiceDate.After(records[j].ServiceDate)
	})
	return records, nil
}

// ListDeleted retrieves deleted records, most recently deleted first
func (s *ServiceRecordStore) ListDeleted(ctx context.Context, limit int) ([]*domain.ServiceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultDeletedLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*domain.ServiceRecord, 0)
	for _, r := range s.records {
		if r.IsDeleted() {
			records = append(records, r.Clone())
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].DeletedAt.After(*records[j].DeletedAt)
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// appendHistory must be called with the write lock held
func (s *ServiceRecordStore) appendHistory(recordID string, action domain.AuditAction, oldData, newData map[string]interface{}, changed []string, actor string, at time.Time, reason *string) {
	s.history[recordID] = append(s.history[recordID], domain.HistoryEntry{
		ID:              uuid.New().String(),
		ServiceRecordID: recordID,
		Action:          action,
		OldData:         oldData,
		NewData:         newData,
		ChangedFields:   changed,
		ChangedBy:       actor,
		ChangedAt:       at,
		ChangeReason:    copyString(reason),
	})
}

// tick returns a strictly increasing timestamp so history has a total order.
// Must be called with the write lock held.
func (s *ServiceRecordStore) tick() time.Time {
	now := s.now().UTC()
	if !now.After(s.lastTick) {
		now = s.lastTick.Add(time.Microsecond)
	}
	s.lastTick = now
	return now
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
