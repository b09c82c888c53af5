package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/fixora/servicebay/internal/domain"
	"github.com/fixora/servicebay/internal/ports"
)

const (
	defaultDeletedLimit = 50

	// foreign_key_violation
	pqForeignKeyViolation = "23503"
)

const recordColumns = `id, license_plate, service_date, notes, created_at, updated_at,
		updated_by, deleted_at, deleted_by, change_reason`

// PostgresServiceRecordRepository implements ServiceRecordStore using PostgreSQL.
// Deletion, restoration and history go through stored procedures so the state
// check and the history append run in one transaction on the server.
type PostgresServiceRecordRepository struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// NewPostgresServiceRecordRepository creates a new PostgreSQL service record repository
func NewPostgresServiceRecordRepository(db *sql.DB, queryTimeout time.Duration) *PostgresServiceRecordRepository {
	return &PostgresServiceRecordRepository{db: db, queryTimeout: queryTimeout}
}

var _ ports.ServiceRecordStore = (*PostgresServiceRecordRepository)(nil)

func (r *PostgresServiceRecordRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.queryTimeout)
}

// Create saves a new record with its tags and product lines in one transaction
func (r *PostgresServiceRecordRepository) Create(ctx context.Context, record *domain.ServiceRecord) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO service_records (id, license_plate, service_date, notes, created_at, updated_at, updated_by, change_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.ExecContext(ctx, query,
		record.ID,
		record.LicensePlate,
		record.ServiceDate,
		record.Notes,
		record.CreatedAt,
		record.UpdatedAt,
		record.UpdatedBy,
		record.ChangeReason,
	)
	if err != nil {
		return fmt.Errorf("failed to create service record: %w", err)
	}

	for _, tag := range record.Services {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO service_record_services (service_record_id, service_type_id) VALUES ($1, $2)`,
			record.ID, tag.ID,
		)
		if err != nil {
			return translateWriteError("failed to attach service type", err)
		}
	}

	for _, line := range record.Products {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO service_record_products (service_record_id, product_id, quantity, price_at_time) VALUES ($1, $2, $3, $4)`,
			record.ID, line.ProductID, line.Quantity, line.PriceAtTime,
		)
		if err != nil {
			return translateWriteError("failed to attach product line", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit service record: %w", err)
	}

	// reload the lines so the caller sees catalog names
	record.Services, record.Products = nil, nil
	return r.loadLines(ctx, []*domain.ServiceRecord{record})
}

// FindByID retrieves a record in any state
func (r *PostgresServiceRecordRepository) FindByID(ctx context.Context, id string) (*domain.ServiceRecord, error) {
	if !isUUID(id) {
		return nil, domain.ErrRecordNotFound
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + recordColumns + ` FROM service_records WHERE id = $1`

	record, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to find service record: %w", err)
	}

	if err := r.loadLines(ctx, []*domain.ServiceRecord{record}); err != nil {
		return nil, err
	}

	return record, nil
}

// UpdateActive overwrites the provided fields with a guarded UPDATE.
// The audit trigger writes the UPDATE history row in the same statement.
// A nil reason leaves the stored change_reason untouched.
func (r *PostgresServiceRecordRepository) UpdateActive(ctx context.Context, id string, update domain.ServiceRecordUpdate, actor string, reason *string, updatedAt time.Time) (*domain.ServiceRecord, error) {
	if !isUUID(id) {
		return nil, nil
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	sets := []string{}
	args := []interface{}{id}
	argIndex := 2

	if update.LicensePlate != nil {
		sets = append(sets, fmt.Sprintf("license_plate = $%d", argIndex))
		args = append(args, strings.TrimSpace(*update.LicensePlate))
		argIndex++
	}
	if update.ServiceDate != nil {
		sets = append(sets, fmt.Sprintf("service_date = $%d", argIndex))
		args = append(args, *update.ServiceDate)
		argIndex++
	}
	if update.ClearNotes {
		sets = append(sets, "notes = NULL")
	} else if update.Notes != nil {
		sets = append(sets, fmt.Sprintf("notes = $%d", argIndex))
		args = append(args, *update.Notes)
		argIndex++
	}

	sets = append(sets,
		fmt.Sprintf("updated_at = $%d", argIndex),
		fmt.Sprintf("updated_by = $%d", argIndex+1),
	)
	args = append(args, updatedAt, actor)
	argIndex += 2
	if reason != nil {
		sets = append(sets, fmt.Sprintf("change_reason = $%d", argIndex))
		args = append(args, *reason)
	}

	query := fmt.Sprintf(`
		UPDATE service_records
		SET %s
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING %s
	`, strings.Join(sets, ", "), recordColumns)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// read by the audit trigger for the UPDATE history row
	historyReason := ""
	if reason != nil {
		historyReason = *reason
	}
	if _, err := tx.ExecContext(ctx, `SELECT set_config('servicebay.change_reason', $1, true)`, historyReason); err != nil {
		return nil, fmt.Errorf("failed to set change reason: %w", err)
	}

	record, err := scanRecord(tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update service record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if err := r.loadLines(ctx, []*domain.ServiceRecord{record}); err != nil {
		return nil, err
	}

	return record, nil
}

// SoftDelete calls soft_delete_service_record
func (r *PostgresServiceRecordRepository) SoftDelete(ctx context.Context, id, actor string, reason *string) (bool, error) {
	return r.callTransition(ctx, "soft_delete_service_record", id, actor, reason)
}

// Restore calls restore_service_record
func (r *PostgresServiceRecordRepository) Restore(ctx context.Context, id, actor string, reason *string) (bool, error) {
	return r.callTransition(ctx, "restore_service_record", id, actor, reason)
}

func (r *PostgresServiceRecordRepository) callTransition(ctx context.Context, procedure, id, actor string, reason *string) (bool, error) {
	if !isUUID(id) {
		return false, nil
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var applied bool
	query := fmt.Sprintf(`SELECT %s($1, $2, $3)`, procedure)
	if err := r.db.QueryRowContext(ctx, query, id, actor, reason).Scan(&applied); err != nil {
		return false, fmt.Errorf("failed to call %s: %w", procedure, err)
	}

	return applied, nil
}

// History calls get_service_record_history
func (r *PostgresServiceRecordRepository) History(ctx context.Context, id string) ([]domain.HistoryEntry, error) {
	entries := make([]domain.HistoryEntry, 0)
	if !isUUID(id) {
		return entries, nil
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, service_record_id, action, old_data, new_data, changed_fields,
			changed_by, changed_at, change_reason, metadata
		FROM get_service_record_history($1)
	`

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get service record history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry domain.HistoryEntry
		var action string
		var oldData, newData, metadata []byte
		var changedFields pq.StringArray
		var changeReason sql.NullString

		err := rows.Scan(
			&entry.ID,
			&entry.ServiceRecordID,
			&action,
			&oldData,
			&newData,
			&changedFields,
			&entry.ChangedBy,
			&entry.ChangedAt,
			&changeReason,
			&metadata,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}

		entry.Action = domain.AuditAction(action)
		entry.ChangedFields = []string(changedFields)
		if entry.ChangedFields == nil {
			entry.ChangedFields = []string{}
		}
		if changeReason.Valid {
			entry.ChangeReason = &changeReason.String
		}
		if entry.OldData, err = decodeJSONMap(oldData); err != nil {
			return nil, fmt.Errorf("failed to decode old_data: %w", err)
		}
		if entry.NewData, err = decodeJSONMap(newData); err != nil {
			return nil, fmt.Errorf("failed to decode new_data: %w", err)
		}
		if entry.Metadata, err = decodeJSONMap(metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	return entries, nil
}

// ListActive retrieves active records matching filter
func (r *PostgresServiceRecordRepository) ListActive(ctx context.Context, filter domain.ServiceRecordFilter) ([]*domain.ServiceRecord, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	conditions := []string{"deleted_at IS NULL"}
	args := []interface{}{}
	argIndex := 1

	if filter.LicensePlate != "" {
		conditions = append(conditions, fmt.Sprintf("license_plate ILIKE '%%' || $%d::text || '%%'", argIndex))
		args = append(args, filter.LicensePlate)
		argIndex++
	}
	if filter.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("service_date >= $%d", argIndex))
		args = append(args, *filter.StartDate)
		argIndex++
	}
	if filter.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("service_date <= $%d", argIndex))
		args = append(args, *filter.EndDate)
		argIndex++
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM service_records
		WHERE %s
		ORDER BY service_date DESC, created_at DESC
	`, recordColumns, strings.Join(conditions, " AND "))

	return r.queryRecords(ctx, query, args...)
}

// ListDeleted retrieves deleted records, most recently deleted first
func (r *PostgresServiceRecordRepository) ListDeleted(ctx context.Context, limit int) ([]*domain.ServiceRecord, error) {
	if limit <= 0 {
		limit = defaultDeletedLimit
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + recordColumns + `
		FROM service_records
		WHERE deleted_at IS NOT NULL
		ORDER BY deleted_at DESC
		LIMIT $1
	`

	return r.queryRecords(ctx, query, limit)
}

// ListServiceTypes returns the service-type catalog ordered by name
func (r *PostgresServiceRecordRepository) ListServiceTypes(ctx context.Context) ([]domain.ServiceTypeRef, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM service_types ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list service types: %w", err)
	}
	defer rows.Close()

	types := make([]domain.ServiceTypeRef, 0)
	for rows.Next() {
		var t domain.ServiceTypeRef
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan service type: %w", err)
		}
		types = append(types, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating service types: %w", err)
	}
	return types, nil
}

// ListProducts returns the product catalog ordered by name
func (r *PostgresServiceRecordRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM products ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return products, nil
}

func (r *PostgresServiceRecordRepository) queryRecords(ctx context.Context, query string, args ...interface{}) ([]*domain.ServiceRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list service records: %w", err)
	}
	defer rows.Close()

	records := make([]*domain.ServiceRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan service record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating service records: %w", err)
	}

	if err := r.loadLines(ctx, records); err != nil {
		return nil, err
	}

	return records, nil
}

// loadLines fills service-type tags and product lines for records in two queries
func (r *PostgresServiceRecordRepository) loadLines(ctx context.Context, records []*domain.ServiceRecord) error {
	if len(records) == 0 {
		return nil
	}

	byID := make(map[string]*domain.ServiceRecord, len(records))
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
		ids = append(ids, rec.ID)
	}

	tagRows, err := r.db.QueryContext(ctx, `
		SELECT s.service_record_id, t.id, t.name
		FROM service_record_services s
		JOIN service_types t ON t.id = s.service_type_id
		WHERE s.service_record_id = ANY($1)
		ORDER BY t.name
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to load service types: %w", err)
	}
	defer tagRows.Close()

	for tagRows.Next() {
		var recordID string
		var tag domain.ServiceTypeRef
		if err := tagRows.Scan(&recordID, &tag.ID, &tag.Name); err != nil {
			return fmt.Errorf("failed to scan service type: %w", err)
		}
		if rec, ok := byID[recordID]; ok {
			rec.Services = append(rec.Services, tag)
		}
	}
	if err := tagRows.Err(); err != nil {
		return fmt.Errorf("error iterating service types: %w", err)
	}

	productRows, err := r.db.QueryContext(ctx, `
		SELECT sp.service_record_id, p.id, p.name, sp.quantity, sp.price_at_time
		FROM service_record_products sp
		JOIN products p ON p.id = sp.product_id
		WHERE sp.service_record_id = ANY($1)
		ORDER BY p.name
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to load product lines: %w", err)
	}
	defer productRows.Close()

	for productRows.Next() {
		var recordID string
		var line domain.ProductLine
		if err := productRows.Scan(&recordID, &line.ProductID, &line.ProductName, &line.Quantity, &line.PriceAtTime); err != nil {
			return fmt.Errorf("failed to scan product line: %w", err)
		}
		if rec, ok := byID[recordID]; ok {
			rec.Products = append(rec.Products, line)
		}
	}
	if err := productRows.Err(); err != nil {
		return fmt.Errorf("error iterating product lines: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*domain.ServiceRecord, error) {
	var record domain.ServiceRecord
	var notes, updatedBy, deletedBy, changeReason sql.NullString
	var deletedAt sql.NullTime

	err := row.Scan(
		&record.ID,
		&record.LicensePlate,
		&record.ServiceDate,
		&notes,
		&record.CreatedAt,
		&record.UpdatedAt,
		&updatedBy,
		&deletedAt,
		&deletedBy,
		&changeReason,
	)
	if err != nil {
		return nil, err
	}

	record.Notes = nullStringPtr(notes)
	record.UpdatedBy = nullStringPtr(updatedBy)
	record.DeletedBy = nullStringPtr(deletedBy)
	record.ChangeReason = nullStringPtr(changeReason)
	if deletedAt.Valid {
		t := deletedAt.Time
		record.DeletedAt = &t
	}

	return &record, nil
}

func translateWriteError(msg string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pqForeignKeyViolation {
		return domain.ErrInvalidReference
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func decodeJSONMap(data []byte) (map[string]interface{}, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func nullStringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// isUUID guards against invalid_text_representation errors for ids that can never match
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
