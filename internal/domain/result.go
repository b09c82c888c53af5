package domain

// ResultKind classifies the outcome of a lifecycle operation
type ResultKind string

const (
	ResultOK                ResultKind = "OK"
	ResultNotFoundOrDeleted ResultKind = "NOT_FOUND_OR_DELETED"
	ResultAlreadyDeleted    ResultKind = "ALREADY_DELETED"
	ResultNotDeleted        ResultKind = "NOT_DELETED"
	ResultNotFound          ResultKind = "NOT_FOUND"
	ResultInvalid           ResultKind = "INVALID"
	ResultTransportFailure  ResultKind = "TRANSPORT_FAILURE"
)

// Result is the uniform outcome returned by every lifecycle operation.
// Err carries the underlying error of a failed operation: the domain sentinel
// for rejections, the store error for transport failures. Never serialized.
type Result struct {
	Success bool           `json:"success"`
	Kind    ResultKind     `json:"kind"`
	Message string         `json:"message"`
	Record  *ServiceRecord `json:"record,omitempty"`
	Err     error          `json:"-"`
}

// Rejected reports whether a business rule refused the operation
func (r Result) Rejected() bool {
	switch r.Kind {
	case ResultNotFoundOrDeleted, ResultAlreadyDeleted, ResultNotDeleted, ResultNotFound, ResultInvalid:
		return true
	}
	return false
}

// Retryable reports whether the caller may offer a retry instead of a refresh
func (r Result) Retryable() bool {
	return r.Kind == ResultTransportFailure
}

// HistoryResult is the outcome of a history query. Entries is never nil.
type HistoryResult struct {
	Success bool           `json:"success"`
	Kind    ResultKind     `json:"kind"`
	Message string         `json:"message,omitempty"`
	Entries []HistoryEntry `json:"entries"`
	Err     error          `json:"-"`
}
