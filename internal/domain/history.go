package domain

import "time"

// AuditAction represents the kind of lifecycle event recorded in the history log
type AuditAction string

const (
	AuditActionInsert  AuditAction = "INSERT"
	AuditActionUpdate  AuditAction = "UPDATE"
	AuditActionDelete  AuditAction = "DELETE"
	AuditActionRestore AuditAction = "RESTORE"
)

// AllFields is the changed_fields wildcard meaning every field changed
const AllFields = "*"

// IsValid reports whether the action is one of the known kinds
func (a AuditAction) IsValid() bool {
	switch a {
	case AuditActionInsert, AuditActionUpdate, AuditActionDelete, AuditActionRestore:
		return true
	}
	return false
}

// HistoryEntry is an immutable row of the service record history log
type HistoryEntry struct {
	ID              string                 `json:"id"`
	ServiceRecordID string                 `json:"service_record_id"`
	Action          AuditAction            `json:"action"`
	OldData         map[string]interface{} `json:"old_data"`
	NewData         map[string]interface{} `json:"new_data"`
	ChangedFields   []string               `json:"changed_fields"`
	ChangedBy       string                 `json:"changed_by"`
	ChangedAt       time.Time              `json:"changed_at"`
	ChangeReason    *string                `json:"change_reason"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// ChangedAll reports whether the entry carries the wildcard
func (h HistoryEntry) ChangedAll() bool {
	for _, f := range h.ChangedFields {
		if f == AllFields {
			return true
		}
	}
	return false
}

// HasChanged reports whether field is listed as changed, honouring the wildcard
func (h HistoryEntry) HasChanged(field string) bool {
	for _, f := range h.ChangedFields {
		if f == field || f == AllFields {
			return true
		}
	}
	return false
}
