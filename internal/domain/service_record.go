package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Field names tracked in the audit log
const (
	FieldLicensePlate = "license_plate"
	FieldServiceDate  = "service_date"
	FieldNotes        = "notes"
	FieldDeletedAt    = "deleted_at"
)

// DefaultActor is the placeholder identity used when the caller supplies none
const DefaultActor = "user"

// ServiceTypeRef is a service-type tag attached to a record
type ServiceTypeRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Product is a catalog entry that product lines reference
type Product struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProductLine is a product used during a service visit, priced at the time of the visit
type ProductLine struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name,omitempty"`
	Quantity    int     `json:"quantity"`
	PriceAtTime float64 `json:"price_at_time"`
}

// Subtotal returns quantity multiplied by the recorded price
func (p ProductLine) Subtotal() float64 {
	return float64(p.Quantity) * p.PriceAtTime
}

// ServiceRecord represents a single vehicle service visit
type ServiceRecord struct {
	ID           string           `json:"id"`
	LicensePlate string           `json:"license_plate"`
	ServiceDate  time.Time        `json:"service_date"`
	Notes        *string          `json:"notes"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	UpdatedBy    *string          `json:"updated_by"`
	DeletedAt    *time.Time       `json:"deleted_at"`
	DeletedBy    *string          `json:"deleted_by"`
	ChangeReason *string          `json:"change_reason"`
	Services     []ServiceTypeRef `json:"services,omitempty"`
	Products     []ProductLine    `json:"products,omitempty"`
}

// NewServiceRecord creates a new active service record
func NewServiceRecord(licensePlate string, serviceDate time.Time, notes *string) *ServiceRecord {
	now := time.Now().UTC()
	return &ServiceRecord{
		ID:           uuid.New().String(),
		LicensePlate: strings.TrimSpace(licensePlate),
		ServiceDate:  serviceDate,
		Notes:        notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Validate checks the required fields of a record
func (r *ServiceRecord) Validate() error {
	if strings.TrimSpace(r.LicensePlate) == "" {
		return ErrLicensePlateRequired
	}
	if r.ServiceDate.IsZero() {
		return ErrServiceDateRequired
	}
	for _, p := range r.Products {
		if p.ProductID == "" {
			return ErrInvalidProductLine
		}
		if p.Quantity <= 0 || p.PriceAtTime < 0 {
			return ErrInvalidProductLine
		}
	}
	for _, s := range r.Services {
		if s.ID == "" {
			return ErrInvalidServiceType
		}
	}
	return nil
}

// IsDeleted reports whether the record carries a deletion marker
func (r *ServiceRecord) IsDeleted() bool {
	return r.DeletedAt != nil
}

// IsConsistent reports whether both deletion markers are either set or unset
func (r *ServiceRecord) IsConsistent() bool {
	return (r.DeletedAt == nil) == (r.DeletedBy == nil)
}

// Total sums the product lines at their recorded prices
func (r *ServiceRecord) Total() float64 {
	var total float64
	for _, p := range r.Products {
		total += p.Subtotal()
	}
	return total
}

// Snapshot returns the audited fields as they would appear in a history row
func (r *ServiceRecord) Snapshot() map[string]interface{} {
	snap := map[string]interface{}{
		"id":              r.ID,
		FieldLicensePlate: r.LicensePlate,
		FieldServiceDate:  r.ServiceDate.UTC().Format(time.RFC3339),
		FieldNotes:        nil,
		FieldDeletedAt:    nil,
		"deleted_by":      nil,
		"updated_by":      nil,
		"change_reason":   nil,
	}
	if r.Notes != nil {
		snap[FieldNotes] = *r.Notes
	}
	if r.DeletedAt != nil {
		snap[FieldDeletedAt] = r.DeletedAt.UTC().Format(time.RFC3339Nano)
	}
	if r.DeletedBy != nil {
		snap["deleted_by"] = *r.DeletedBy
	}
	if r.UpdatedBy != nil {
		snap["updated_by"] = *r.UpdatedBy
	}
	if r.ChangeReason != nil {
		snap["change_reason"] = *r.ChangeReason
	}
	return snap
}

// Clone returns a deep copy of the record
func (r *ServiceRecord) Clone() *ServiceRecord {
	c := *r
	c.Notes = cloneString(r.Notes)
	c.UpdatedBy = cloneString(r.UpdatedBy)
	c.DeletedBy = cloneString(r.DeletedBy)
	c.ChangeReason = cloneString(r.ChangeReason)
	if r.DeletedAt != nil {
		t := *r.DeletedAt
		c.DeletedAt = &t
	}
	c.Services = append([]ServiceTypeRef(nil), r.Services...)
	c.Products = append([]ProductLine(nil), r.Products...)
	return &c
}

// ServiceRecordUpdate is a partial set of mutable fields to overwrite.
// A nil pointer leaves the field untouched; ClearNotes sets notes to null.
type ServiceRecordUpdate struct {
	LicensePlate *string    `json:"license_plate,omitempty"`
	ServiceDate  *time.Time `json:"service_date,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
	ClearNotes   bool       `json:"clear_notes,omitempty"`
}

// IsEmpty reports whether the update touches no field
func (u ServiceRecordUpdate) IsEmpty() bool {
	return u.LicensePlate == nil && u.ServiceDate == nil && u.Notes == nil && !u.ClearNotes
}

// Validate checks that provided fields are usable
func (u ServiceRecordUpdate) Validate() error {
	if u.IsEmpty() {
		return ErrEmptyUpdate
	}
	if u.LicensePlate != nil && strings.TrimSpace(*u.LicensePlate) == "" {
		return ErrLicensePlateRequired
	}
	if u.ServiceDate != nil && u.ServiceDate.IsZero() {
		return ErrServiceDateRequired
	}
	if u.Notes != nil && u.ClearNotes {
		return NewDomainError("notes cannot be both set and cleared")
	}
	return nil
}

// ChangedFields lists the fields whose values would actually differ on r
func (u ServiceRecordUpdate) ChangedFields(r *ServiceRecord) []string {
	var fields []string
	if u.LicensePlate != nil && strings.TrimSpace(*u.LicensePlate) != r.LicensePlate {
		fields = append(fields, FieldLicensePlate)
	}
	if u.ServiceDate != nil && !u.ServiceDate.Equal(r.ServiceDate) {
		fields = append(fields, FieldServiceDate)
	}
	switch {
	case u.ClearNotes && r.Notes != nil:
		fields = append(fields, FieldNotes)
	case u.Notes != nil && (r.Notes == nil || *r.Notes != *u.Notes):
		fields = append(fields, FieldNotes)
	}
	return fields
}

// Apply overwrites the provided fields on r
func (u ServiceRecordUpdate) Apply(r *ServiceRecord) {
	if u.LicensePlate != nil {
		r.LicensePlate = strings.TrimSpace(*u.LicensePlate)
	}
	if u.ServiceDate != nil {
		r.ServiceDate = *u.ServiceDate
	}
	if u.ClearNotes {
		r.Notes = nil
	} else if u.Notes != nil {
		r.Notes = cloneString(u.Notes)
	}
}

// ServiceRecordFilter represents filters for listing active records
type ServiceRecordFilter struct {
	LicensePlate string     `json:"license_plate,omitempty"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
}

// Matches reports whether an active record satisfies the filter
func (f ServiceRecordFilter) Matches(r *ServiceRecord) bool {
	if f.LicensePlate != "" && !strings.Contains(strings.ToLower(r.LicensePlate), strings.ToLower(f.LicensePlate)) {
		return false
	}
	if f.StartDate != nil && r.ServiceDate.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && r.ServiceDate.After(*f.EndDate) {
		return false
	}
	return true
}

// Custom errors
var (
	ErrRecordNotFound       = NewDomainError("service record not found")
	ErrNotFoundOrDeleted    = NewDomainError("service record not found or already deleted")
	ErrAlreadyDeleted       = NewDomainError("service record already deleted")
	ErrNotDeleted           = NewDomainError("service record is not deleted")
	ErrLicensePlateRequired = NewDomainError("license plate is required")
	ErrServiceDateRequired  = NewDomainError("service date is required")
	ErrEmptyUpdate          = NewDomainError("no fields to update")
	ErrInvalidProductLine   = NewDomainError("invalid product line")
	ErrInvalidServiceType   = NewDomainError("invalid service type")
	ErrInvalidReference     = NewDomainError("referenced service type or product does not exist")
)

// DomainError represents a domain-specific error
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func NewDomainError(message string) *DomainError {
	return &DomainError{Message: message}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// DefaultServiceTypes is the starter catalog used by seeding and the in-memory store
var DefaultServiceTypes = []string{
	"เปลี่ยนน้ำมันเครื่อง",
	"เปลี่ยนยาง",
	"ตรวจเช็คเบรก",
	"ตรวจเช็คแบตเตอรี่",
	"ล้างรถ",
}

// DefaultProducts is the starter product catalog used by seeding and the in-memory store
var DefaultProducts = []string{
	"น้ำมันเครื่อง",
	"ไส้กรองน้ำมันเครื่อง",
	"ผ้าเบรก",
	"แบตเตอรี่",
	"ยางรถยนต์",
}
