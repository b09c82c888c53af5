package domain

import (
	"fmt"
	"strings"
	"time"
)

var actionLabels = map[Locale]map[AuditAction]string{
	LocaleThai: {
		AuditActionInsert:  "สร้างรายการ",
		AuditActionUpdate:  "แก้ไข",
		AuditActionDelete:  "ลบ",
		AuditActionRestore: "กู้คืน",
	},
	LocaleEnglish: {
		AuditActionInsert:  "Created",
		AuditActionUpdate:  "Updated",
		AuditActionDelete:  "Deleted",
		AuditActionRestore: "Restored",
	},
}

var fieldLabels = map[Locale]map[string]string{
	LocaleThai: {
		FieldLicensePlate: "ทะเบียนรถ",
		FieldServiceDate:  "วันที่บริการ",
		FieldNotes:        "หมายเหตุ",
		FieldDeletedAt:    "สถานะการลบ",
	},
	LocaleEnglish: {
		FieldLicensePlate: "License plate",
		FieldServiceDate:  "Service date",
		FieldNotes:        "Notes",
		FieldDeletedAt:    "Deletion status",
	},
}

var allFieldsLabel = map[Locale]string{
	LocaleThai:    "ทุกฟิลด์",
	LocaleEnglish: "All fields",
}

// FormatAction returns the display label of an action; unknown actions are returned as-is
func FormatAction(action AuditAction, locale Locale) string {
	if label, ok := labelsFor(actionLabels, locale)[action]; ok {
		return label
	}
	return string(action)
}

// FormatChangedFields renders the changed field list for display
func FormatChangedFields(fields []string, locale Locale) string {
	if len(fields) == 0 {
		return "-"
	}
	if !locale.IsValid() {
		locale = LocaleThai
	}
	for _, f := range fields {
		if f == AllFields {
			return allFieldsLabel[locale]
		}
	}

	labels := labelsFor(fieldLabels, locale)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if label, ok := labels[f]; ok {
			out = append(out, label)
			continue
		}
		out = append(out, f)
	}
	return strings.Join(out, ", ")
}

// TimeAgo renders the elapsed time between t and now in coarse buckets
func TimeAgo(now, t time.Time, locale Locale) string {
	diff := now.Sub(t)
	minutes := int(diff / time.Minute)
	hours := int(diff / time.Hour)
	days := int(diff / (24 * time.Hour))

	if locale == LocaleEnglish {
		switch {
		case minutes < 1:
			return "just now"
		case minutes < 60:
			return fmt.Sprintf("%d min ago", minutes)
		case hours < 24:
			return fmt.Sprintf("%d h ago", hours)
		case days == 1:
			return "yesterday"
		case days < 7:
			return fmt.Sprintf("%d days ago", days)
		case days < 30:
			return fmt.Sprintf("%d weeks ago", days/7)
		case days < 365:
			return fmt.Sprintf("%d months ago", days/30)
		default:
			return fmt.Sprintf("%d years ago", days/365)
		}
	}

	switch {
	case minutes < 1:
		return "เมื่อสักครู่"
	case minutes < 60:
		return fmt.Sprintf("%d นาทีที่แล้ว", minutes)
	case hours < 24:
		return fmt.Sprintf("%d ชั่วโมงที่แล้ว", hours)
	case days == 1:
		return "เมื่อวาน"
	case days < 7:
		return fmt.Sprintf("%d วันที่แล้ว", days)
	case days < 30:
		return fmt.Sprintf("%d สัปดาห์ที่แล้ว", days/7)
	case days < 365:
		return fmt.Sprintf("%d เดือนที่แล้ว", days/30)
	default:
		return fmt.Sprintf("%d ปีที่แล้ว", days/365)
	}
}

func labelsFor[K comparable](m map[Locale]map[K]string, locale Locale) map[K]string {
	if labels, ok := m[locale]; ok {
		return labels
	}
	return m[LocaleThai]
}
