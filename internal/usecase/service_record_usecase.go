package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fixora/servicebay/internal/domain"
	"github.com/fixora/servicebay/internal/infra/logger"
	"github.com/fixora/servicebay/internal/ports"
)

// Operation names used for logging and metrics
const (
	OpCreate      = "create"
	OpUpdate      = "update"
	OpSoftDelete  = "soft_delete"
	OpRestore     = "restore"
	OpHistory     = "history"
	OpGet         = "get"
	OpListActive  = "list_active"
	OpListDeleted = "list_deleted"

	OpListServiceTypes = "list_service_types"
	OpListProducts     = "list_products"
)

// ProductLineRequest is a product line supplied at creation
type ProductLineRequest struct {
	ProductID   string  `json:"product_id"`
	Quantity    int     `json:"quantity"`
	PriceAtTime float64 `json:"price_at_time"`
}

// CreateServiceRecordRequest represents the request to create a service record
type CreateServiceRecordRequest struct {
	LicensePlate   string               `json:"license_plate"`
	ServiceDate    time.Time            `json:"service_date"`
	Notes          *string              `json:"notes,omitempty"`
	ServiceTypeIDs []string             `json:"service_type_ids,omitempty"`
	Products       []ProductLineRequest `json:"products,omitempty"`
}

// Options configures the lifecycle manager
type Options struct {
	// DefaultActor is recorded when the caller supplies no actor
	DefaultActor string
	Locale       domain.Locale
}

// ServiceRecordUseCase is the lifecycle manager for service records. It shapes
// requests to the store and translates store signals into Results; the store
// enforces the active/deleted rules.
type ServiceRecordUseCase struct {
	store          ports.ServiceRecordStore
	eventPublisher ports.EventPublisher
	recorder       ports.OperationRecorder
	logger         logger.Logger
	messages       domain.Messages
	defaultActor   string
	now            func() time.Time
}

// NewServiceRecordUseCase creates a new service record use case.
// eventPublisher and recorder may be nil.
func NewServiceRecordUseCase(
	store ports.ServiceRecordStore,
	eventPublisher ports.EventPublisher,
	recorder ports.OperationRecorder,
	log logger.Logger,
	opts Options,
) *ServiceRecordUseCase {
	if log == nil {
		log = logger.NewNopLogger()
	}
	actor := strings.TrimSpace(opts.DefaultActor)
	if actor == "" {
		actor = domain.DefaultActor
	}
	return &ServiceRecordUseCase{
		store:          store,
		eventPublisher: eventPublisher,
		recorder:       recorder,
		logger:         log,
		messages:       domain.MessagesFor(opts.Locale),
		defaultActor:   actor,
		now:            time.Now,
	}
}

// Create inserts a new record. The store writes the initial history entry.
func (uc *ServiceRecordUseCase) Create(ctx context.Context, req CreateServiceRecordRequest, actor string) domain.Result {
	start := uc.now()
	actor = uc.resolveActor(actor)

	record := domain.NewServiceRecord(req.LicensePlate, req.ServiceDate, req.Notes)
	record.UpdatedBy = &actor
	for _, id := range req.ServiceTypeIDs {
		record.Services = append(record.Services, domain.ServiceTypeRef{ID: id})
	}
	for _, p := range req.Products {
		record.Products = append(record.Products, domain.ProductLine{
			ProductID:   p.ProductID,
			Quantity:    p.Quantity,
			PriceAtTime: p.PriceAtTime,
		})
	}

	if err := record.Validate(); err != nil {
		return uc.finish(ctx, OpCreate, record.ID, actor, start, uc.invalid(err))
	}

	if err := uc.store.Create(ctx, record); err != nil {
		if errors.Is(err, domain.ErrInvalidReference) {
			return uc.finish(ctx, OpCreate, record.ID, actor, start, uc.invalid(err))
		}
		return uc.finish(ctx, OpCreate, record.ID, actor, start, uc.transportFailure(domain.MsgCreateFailed, err))
	}

	uc.publish(ctx, ports.EventTypeServiceRecordCreated, record.ID, actor, map[string]interface{}{
		"license_plate": record.LicensePlate,
		"service_date":  record.ServiceDate,
	})

	return uc.finish(ctx, OpCreate, record.ID, actor, start, domain.Result{
		Success: true,
		Kind:    domain.ResultOK,
		Message: uc.messages.Get(domain.MsgCreateSuccess),
		Record:  record,
	})
}

// Update overwrites fields of an active record. The reason is forwarded as
// given; requiring one is the caller's policy.
func (uc *ServiceRecordUseCase) Update(ctx context.Context, id string, update domain.ServiceRecordUpdate, actor, reason string) domain.Result {
	start := uc.now()
	actor = uc.resolveActor(actor)

	if err := update.Validate(); err != nil {
		return uc.finish(ctx, OpUpdate, id, actor, start, uc.invalid(err))
	}

	record, err := uc.store.UpdateActive(ctx, id, update, actor, optionalReason(reason), uc.now().UTC())
	if err != nil {
		return uc.finish(ctx, OpUpdate, id, actor, start, uc.transportFailure(domain.MsgUpdateFailed, err))
	}
	if record == nil {
		return uc.finish(ctx, OpUpdate, id, actor, start, uc.rejected(domain.ResultNotFoundOrDeleted, domain.MsgUpdateRejected, domain.ErrNotFoundOrDeleted))
	}

	uc.publish(ctx, ports.EventTypeServiceRecordUpdated, id, actor, map[string]interface{}{
		"reason": reason,
	})

	return uc.finish(ctx, OpUpdate, id, actor, start, domain.Result{
		Success: true,
		Kind:    domain.ResultOK,
		Message: uc.messages.Get(domain.MsgUpdateSuccess),
		Record:  record,
	})
}

// SoftDelete marks an active record deleted. Deleting twice is rejected.
func (uc *ServiceRecordUseCase) SoftDelete(ctx context.Context, id, actor, reason string) domain.Result {
	start := uc.now()
	actor = uc.resolveActor(actor)

	applied, err := uc.store.SoftDelete(ctx, id, actor, optionalReason(reason))
	if err != nil {
		return uc.finish(ctx, OpSoftDelete, id, actor, start, uc.transportFailure(domain.MsgDeleteFailed, err))
	}
	if !applied {
		return uc.finish(ctx, OpSoftDelete, id, actor, start, uc.rejected(domain.ResultAlreadyDeleted, domain.MsgDeleteRejected, domain.ErrAlreadyDeleted))
	}

	uc.publish(ctx, ports.EventTypeServiceRecordDeleted, id, actor, map[string]interface{}{
		"reason": reason,
	})

	return uc.finish(ctx, OpSoftDelete, id, actor, start, domain.Result{
		Success: true,
		Kind:    domain.ResultOK,
		Message: uc.messages.Get(domain.MsgDeleteSuccess),
	})
}

// Restore clears the deletion markers of a deleted record
func (uc *ServiceRecordUseCase) Restore(ctx context.Context, id, actor, reason string) domain.Result {
	start := uc.now()
	actor = uc.resolveActor(actor)

	applied, err := uc.store.Restore(ctx, id, actor, optionalReason(reason))
	if err != nil {
		return uc.finish(ctx, OpRestore, id, actor, start, uc.transportFailure(domain.MsgRestoreFailed, err))
	}
	if !applied {
		return uc.finish(ctx, OpRestore, id, actor, start, uc.rejected(domain.ResultNotDeleted, domain.MsgRestoreRejected, domain.ErrNotDeleted))
	}

	uc.publish(ctx, ports.EventTypeServiceRecordRestored, id, actor, map[string]interface{}{
		"reason": reason,
	})

	return uc.finish(ctx, OpRestore, id, actor, start, domain.Result{
		Success: true,
		Kind:    domain.ResultOK,
		Message: uc.messages.Get(domain.MsgRestoreSuccess),
	})
}

// GetHistory returns the record's history, newest first. Entries is never nil.
func (uc *ServiceRecordUseCase) GetHistory(ctx context.Context, id string) domain.HistoryResult {
	start := uc.now()

	entries, err := uc.store.History(ctx, id)
	if err != nil {
		uc.logger.Error(ctx, "Failed to load service record history", err, map[string]interface{}{
			"record_id": id,
		})
		uc.observe(OpHistory, domain.ResultTransportFailure, start)
		return domain.HistoryResult{
			Kind:    domain.ResultTransportFailure,
			Message: uc.messages.Get(domain.MsgHistoryFailed),
			Entries: []domain.HistoryEntry{},
			Err:     err,
		}
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}

	uc.observe(OpHistory, domain.ResultOK, start)
	return domain.HistoryResult{
		Success: true,
		Kind:    domain.ResultOK,
		Entries: entries,
	}
}

// Get retrieves a record in any state
func (uc *ServiceRecordUseCase) Get(ctx context.Context, id string) domain.Result {
	start := uc.now()

	record, err := uc.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			uc.observe(OpGet, domain.ResultNotFound, start)
			return uc.rejected(domain.ResultNotFound, domain.MsgNotFound, err)
		}
		uc.logger.Error(ctx, "Failed to load service record", err, map[string]interface{}{
			"record_id": id,
		})
		uc.observe(OpGet, domain.ResultTransportFailure, start)
		return domain.Result{
			Kind:    domain.ResultTransportFailure,
			Message: uc.messages.Get(domain.MsgUnexpected),
			Err:     err,
		}
	}

	uc.observe(OpGet, domain.ResultOK, start)
	return domain.Result{Success: true, Kind: domain.ResultOK, Record: record}
}

// ListActive retrieves active records matching filter
func (uc *ServiceRecordUseCase) ListActive(ctx context.Context, filter domain.ServiceRecordFilter) ([]*domain.ServiceRecord, error) {
	start := uc.now()
	records, err := uc.store.ListActive(ctx, filter)
	if err != nil {
		uc.logger.Error(ctx, "Failed to list active service records", err, nil)
		uc.observe(OpListActive, domain.ResultTransportFailure, start)
		return nil, err
	}
	uc.observe(OpListActive, domain.ResultOK, start)
	return records, nil
}

// ListDeleted retrieves deleted records for the recycle view
func (uc *ServiceRecordUseCase) ListDeleted(ctx context.Context, limit int) ([]*domain.ServiceRecord, error) {
	start := uc.now()
	records, err := uc.store.ListDeleted(ctx, limit)
	if err != nil {
		uc.logger.Error(ctx, "Failed to list deleted service records", err, nil)
		uc.observe(OpListDeleted, domain.ResultTransportFailure, start)
		return nil, err
	}
	uc.observe(OpListDeleted, domain.ResultOK, start)
	return records, nil
}

// ListServiceTypes returns the service-type catalog records can be tagged with
func (uc *ServiceRecordUseCase) ListServiceTypes(ctx context.Context) ([]domain.ServiceTypeRef, error) {
	start := uc.now()
	types, err := uc.store.ListServiceTypes(ctx)
	if err != nil {
		uc.logger.Error(ctx, "Failed to list service types", err, nil)
		uc.observe(OpListServiceTypes, domain.ResultTransportFailure, start)
		return nil, err
	}
	uc.observe(OpListServiceTypes, domain.ResultOK, start)
	return types, nil
}

// ListProducts returns the product catalog product lines may reference
func (uc *ServiceRecordUseCase) ListProducts(ctx context.Context) ([]domain.Product, error) {
	start := uc.now()
	products, err := uc.store.ListProducts(ctx)
	if err != nil {
		uc.logger.Error(ctx, "Failed to list products", err, nil)
		uc.observe(OpListProducts, domain.ResultTransportFailure, start)
		return nil, err
	}
	uc.observe(OpListProducts, domain.ResultOK, start)
	return products, nil
}

// Messages returns the catalog used for result messages
func (uc *ServiceRecordUseCase) Messages() domain.Messages {
	return uc.messages
}

func (uc *ServiceRecordUseCase) resolveActor(actor string) string {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return uc.defaultActor
	}
	return actor
}

func (uc *ServiceRecordUseCase) invalid(err error) domain.Result {
	return domain.Result{
		Kind:    domain.ResultInvalid,
		Message: uc.messages.Get(domain.MsgInvalid) + ": " + err.Error(),
		Err:     err,
	}
}

func (uc *ServiceRecordUseCase) rejected(kind domain.ResultKind, key domain.MessageKey, err error) domain.Result {
	return domain.Result{
		Kind:    kind,
		Message: uc.messages.Get(key),
		Err:     err,
	}
}

func (uc *ServiceRecordUseCase) transportFailure(key domain.MessageKey, err error) domain.Result {
	return domain.Result{
		Kind:    domain.ResultTransportFailure,
		Message: uc.messages.Get(key),
		Err:     err,
	}
}

// finish logs and records the outcome of a mutating operation
func (uc *ServiceRecordUseCase) finish(ctx context.Context, operation, id, actor string, start time.Time, result domain.Result) domain.Result {
	duration := uc.now().Sub(start)
	uc.observe(operation, result.Kind, start)

	if result.Kind == domain.ResultTransportFailure {
		uc.logger.Error(ctx, "Service record operation failed", result.Err, map[string]interface{}{
			"operation": operation,
			"record_id": id,
			"actor":     actor,
		})
	} else {
		logger.LogLifecycleEvent(ctx, uc.logger, operation, id, actor, string(result.Kind), result.Success, nil)
	}
	logger.LogPerformance(ctx, uc.logger, operation, duration, map[string]interface{}{
		"record_id": id,
	})

	return result
}

func (uc *ServiceRecordUseCase) observe(operation string, kind domain.ResultKind, start time.Time) {
	if uc.recorder == nil {
		return
	}
	uc.recorder.ObserveOperation(operation, kind, uc.now().Sub(start))
}

// publish emits a lifecycle event; failures are logged and never affect the result
func (uc *ServiceRecordUseCase) publish(ctx context.Context, eventType, id, actor string, data map[string]interface{}) {
	if uc.eventPublisher == nil {
		return
	}
	event := ports.NewEvent(eventType, id, actor, data)
	if err := uc.eventPublisher.Publish(ctx, *event); err != nil {
		uc.logger.Warn(ctx, "Failed to publish service record event", map[string]interface{}{
			"event_type": eventType,
			"record_id":  id,
			"error":      err.Error(),
		})
	}
}

func optionalReason(reason string) *string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil
	}
	return &reason
}
