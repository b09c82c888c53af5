package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatAction(t *testing.T) {
	tests := []struct {
		action AuditAction
		locale Locale
		want   string
	}{
		{AuditActionInsert, LocaleThai, "สร้างรายการ"},
		{AuditActionUpdate, LocaleThai, "แก้ไข"},
		{AuditActionDelete, LocaleThai, "ลบ"},
		{AuditActionRestore, LocaleThai, "กู้คืน"},
		{AuditActionRestore, LocaleEnglish, "Restored"},
		{AuditActionDelete, Locale("fr"), "ลบ"},
		{AuditAction("ARCHIVE"), LocaleThai, "ARCHIVE"},
	}

	for _, tt := range tests {
		t.Run(string(tt.action)+"/"+string(tt.locale), func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAction(tt.action, tt.locale))
		})
	}
}

func TestFormatChangedFields(t *testing.T) {
	tests := []struct {
		name   string
		fields []string
		locale Locale
		want   string
	}{
		{"empty", nil, LocaleThai, "-"},
		{"wildcard", []string{AllFields}, LocaleThai, "ทุกฟิลด์"},
		{"wildcard english", []string{AllFields}, LocaleEnglish, "All fields"},
		{"known fields", []string{FieldLicensePlate, FieldNotes}, LocaleThai, "ทะเบียนรถ, หมายเหตุ"},
		{"unknown field kept", []string{"mileage"}, LocaleEnglish, "mileage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatChangedFields(tt.fields, tt.locale))
		})
	}
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		ago    time.Duration
		locale Locale
		want   string
	}{
		{"seconds", 30 * time.Second, LocaleThai, "เมื่อสักครู่"},
		{"minutes", 5 * time.Minute, LocaleThai, "5 นาทีที่แล้ว"},
		{"hours", 3 * time.Hour, LocaleThai, "3 ชั่วโมงที่แล้ว"},
		{"yesterday", 25 * time.Hour, LocaleThai, "เมื่อวาน"},
		{"days", 3 * 24 * time.Hour, LocaleThai, "3 วันที่แล้ว"},
		{"weeks", 14 * 24 * time.Hour, LocaleThai, "2 สัปดาห์ที่แล้ว"},
		{"months", 65 * 24 * time.Hour, LocaleThai, "2 เดือนที่แล้ว"},
		{"years", 800 * 24 * time.Hour, LocaleThai, "2 ปีที่แล้ว"},
		{"english minutes", 5 * time.Minute, LocaleEnglish, "5 min ago"},
		{"english yesterday", 30 * time.Hour, LocaleEnglish, "yesterday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TimeAgo(now, now.Add(-tt.ago), tt.locale))
		})
	}
}

func TestHistoryEntry_HasChanged(t *testing.T) {
	insert := HistoryEntry{ChangedFields: []string{AllFields}}
	assert.True(t, insert.ChangedAll())
	assert.True(t, insert.HasChanged(FieldNotes))

	update := HistoryEntry{ChangedFields: []string{FieldLicensePlate}}
	assert.False(t, update.ChangedAll())
	assert.True(t, update.HasChanged(FieldLicensePlate))
	assert.False(t, update.HasChanged(FieldNotes))
}

func TestMessagesFor(t *testing.T) {
	th := MessagesFor(LocaleThai)
	assert.Equal(t, "ลบรายการสำเร็จ", th.Get(MsgDeleteSuccess))
	assert.Equal(t, "ไม่พบรายการที่ถูกลบ", th.Get(MsgRestoreRejected))

	en := MessagesFor(LocaleEnglish)
	assert.Equal(t, "Service record deleted", en.Get(MsgDeleteSuccess))

	assert.Equal(t, th, MessagesFor(Locale("de")))
	assert.Equal(t, th.Get(MsgUnexpected), th.Get(MessageKey("missing")))
}
