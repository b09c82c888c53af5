package domain

// Locale selects the language of user-facing messages
type Locale string

const (
	LocaleThai    Locale = "th"
	LocaleEnglish Locale = "en"
)

// IsValid reports whether the locale has a message catalog
func (l Locale) IsValid() bool {
	return l == LocaleThai || l == LocaleEnglish
}

// MessageKey identifies a user-facing message
type MessageKey string

const (
	MsgCreateSuccess   MessageKey = "create.success"
	MsgCreateFailed    MessageKey = "create.failed"
	MsgUpdateSuccess   MessageKey = "update.success"
	MsgUpdateRejected  MessageKey = "update.rejected"
	MsgUpdateFailed    MessageKey = "update.failed"
	MsgDeleteSuccess   MessageKey = "delete.success"
	MsgDeleteRejected  MessageKey = "delete.rejected"
	MsgDeleteFailed    MessageKey = "delete.failed"
	MsgRestoreSuccess  MessageKey = "restore.success"
	MsgRestoreRejected MessageKey = "restore.rejected"
	MsgRestoreFailed   MessageKey = "restore.failed"
	MsgHistoryFailed   MessageKey = "history.failed"
	MsgNotFound        MessageKey = "record.not_found"
	MsgInvalid         MessageKey = "request.invalid"
	MsgUnexpected      MessageKey = "unexpected"
)

// Messages holds the message catalog for one locale
type Messages map[MessageKey]string

var catalogs = map[Locale]Messages{
	LocaleThai: {
		MsgCreateSuccess:   "บันทึกรายการสำเร็จ",
		MsgCreateFailed:    "ไม่สามารถบันทึกรายการได้",
		MsgUpdateSuccess:   "อัพเดทรายการสำเร็จ",
		MsgUpdateRejected:  "ไม่พบรายการที่ต้องการอัพเดท",
		MsgUpdateFailed:    "ไม่สามารถอัพเดทรายการได้",
		MsgDeleteSuccess:   "ลบรายการสำเร็จ",
		MsgDeleteRejected:  "ไม่พบรายการที่ต้องการลบ หรือรายการถูกลบไปแล้ว",
		MsgDeleteFailed:    "ไม่สามารถลบรายการได้",
		MsgRestoreSuccess:  "กู้คืนรายการสำเร็จ",
		MsgRestoreRejected: "ไม่พบรายการที่ถูกลบ",
		MsgRestoreFailed:   "ไม่สามารถกู้คืนรายการได้",
		MsgHistoryFailed:   "ไม่สามารถโหลดประวัติการเปลี่ยนแปลงได้",
		MsgNotFound:        "ไม่พบรายการ",
		MsgInvalid:         "ข้อมูลไม่ถูกต้อง",
		MsgUnexpected:      "เกิดข้อผิดพลาด",
	},
	LocaleEnglish: {
		MsgCreateSuccess:   "Service record created",
		MsgCreateFailed:    "Could not create the service record",
		MsgUpdateSuccess:   "Service record updated",
		MsgUpdateRejected:  "Service record not found or already deleted",
		MsgUpdateFailed:    "Could not update the service record",
		MsgDeleteSuccess:   "Service record deleted",
		MsgDeleteRejected:  "Service record not found or already deleted",
		MsgDeleteFailed:    "Could not delete the service record",
		MsgRestoreSuccess:  "Service record restored",
		MsgRestoreRejected: "No deleted service record found",
		MsgRestoreFailed:   "Could not restore the service record",
		MsgHistoryFailed:   "Could not load the change history",
		MsgNotFound:        "Service record not found",
		MsgInvalid:         "Invalid request",
		MsgUnexpected:      "An unexpected error occurred",
	},
}

// MessagesFor returns the catalog for locale, falling back to Thai
func MessagesFor(locale Locale) Messages {
	if m, ok := catalogs[locale]; ok {
		return m
	}
	return catalogs[LocaleThai]
}

// Get returns the message for key, or the unexpected-error message
func (m Messages) Get(key MessageKey) string {
	if msg, ok := m[key]; ok {
		return msg
	}
	return m[MsgUnexpected]
}
