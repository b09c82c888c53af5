package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/fixora/servicebay/internal/adapter/http/response"
	"github.com/fixora/servicebay/internal/domain"
	"github.com/fixora/servicebay/internal/usecase"
	apperror "github.com/fixora/servicebay/pkg/error"
)

// ActorHeader carries the identity recorded in the audit log
const ActorHeader = "X-Actor"

const dateLayout = "2006-01-02"

// ServiceRecordService is the lifecycle manager as seen by the handler
type ServiceRecordService interface {
	Create(ctx context.Context, req usecase.CreateServiceRecordRequest, actor string) domain.Result
	Update(ctx context.Context, id string, update domain.ServiceRecordUpdate, actor, reason string) domain.Result
	SoftDelete(ctx context.Context, id, actor, reason string) domain.Result
	Restore(ctx context.Context, id, actor, reason string) domain.Result
	GetHistory(ctx context.Context, id string) domain.HistoryResult
	Get(ctx context.Context, id string) domain.Result
	ListActive(ctx context.Context, filter domain.ServiceRecordFilter) ([]*domain.ServiceRecord, error)
	ListDeleted(ctx context.Context, limit int) ([]*domain.ServiceRecord, error)
	ListServiceTypes(ctx context.Context) ([]domain.ServiceTypeRef, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	Messages() domain.Messages
}

// HandlerConfig holds caller policy applied before the manager is invoked
type HandlerConfig struct {
	DefaultActor        string
	RequireDeleteReason bool
	Locale              domain.Locale
}

// ServiceRecordHandler handles HTTP requests for service records
type ServiceRecordHandler struct {
	service ServiceRecordService
	config  HandlerConfig
	now     func() time.Time
}

// NewServiceRecordHandler creates a new service record handler
func NewServiceRecordHandler(service ServiceRecordService, config HandlerConfig) *ServiceRecordHandler {
	if config.DefaultActor == "" {
		config.DefaultActor = domain.DefaultActor
	}
	if !config.Locale.IsValid() {
		config.Locale = domain.LocaleThai
	}
	return &ServiceRecordHandler{
		service: service,
		config:  config,
		now:     time.Now,
	}
}

// RegisterRoutes registers service record routes
func (h *ServiceRecordHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/service-records", h.CreateRecord).Methods("POST")
	router.HandleFunc("/api/v1/service-records", h.ListActive).Methods("GET")
	router.HandleFunc("/api/v1/service-records/deleted", h.ListDeleted).Methods("GET")
	router.HandleFunc("/api/v1/service-records/{id}", h.GetRecord).Methods("GET")
	router.HandleFunc("/api/v1/service-records/{id}", h.UpdateRecord).Methods("PATCH")
	router.HandleFunc("/api/v1/service-records/{id}", h.DeleteRecord).Methods("DELETE")
	router.HandleFunc("/api/v1/service-records/{id}/restore", h.RestoreRecord).Methods("POST")
	router.HandleFunc("/api/v1/service-records/{id}/history", h.GetHistory).Methods("GET")
	router.HandleFunc("/api/v1/service-types", h.ListServiceTypes).Methods("GET")
	router.HandleFunc("/api/v1/products", h.ListProducts).Methods("GET")
}

type productLineBody struct {
	ProductID   string  `json:"product_id"`
	Quantity    int     `json:"quantity"`
	PriceAtTime float64 `json:"price_at_time"`
}

type createRecordBody struct {
	LicensePlate   string            `json:"license_plate"`
	ServiceDate    string            `json:"service_date"`
	Notes          *string           `json:"notes"`
	ServiceTypeIDs []string          `json:"service_type_ids"`
	Products       []productLineBody `json:"products"`
}

type updateRecordBody struct {
	LicensePlate *string `json:"license_plate"`
	ServiceDate  *string `json:"service_date"`
	Notes        *string `json:"notes"`
	ClearNotes   bool    `json:"clear_notes"`
	Reason       string  `json:"reason"`
}

type reasonBody struct {
	Reason string `json:"reason"`
}

type recordView struct {
	*domain.ServiceRecord
	Total float64 `json:"total"`
}

type historyEntryView struct {
	domain.HistoryEntry
	ActionLabel        string `json:"action_label"`
	ChangedFieldsLabel string `json:"changed_fields_label"`
	TimeAgo            string `json:"time_ago"`
}

// CreateRecord handles service record creation
func (h *ServiceRecordHandler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var body createRecordBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	serviceDate, err := parseDate(body.ServiceDate)
	if err != nil {
		response.BadRequest(w, "Invalid service_date")
		return
	}

	req := usecase.CreateServiceRecordRequest{
		LicensePlate:   body.LicensePlate,
		ServiceDate:    serviceDate,
		Notes:          body.Notes,
		ServiceTypeIDs: body.ServiceTypeIDs,
	}
	for _, p := range body.Products {
		req.Products = append(req.Products, usecase.ProductLineRequest(p))
	}

	result := h.service.Create(r.Context(), req, h.actor(r))
	h.writeResult(w, http.StatusCreated, result)
}

// GetRecord handles retrieving a single record in any state
func (h *ServiceRecordHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	result := h.service.Get(r.Context(), mux.Vars(r)["id"])
	h.writeResult(w, http.StatusOK, result)
}

// ListActive handles listing active records
func (h *ServiceRecordHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.ServiceRecordFilter{
		LicensePlate: strings.TrimSpace(query.Get("plate")),
	}

	if from := query.Get("from"); from != "" {
		t, err := parseDate(from)
		if err != nil {
			response.BadRequest(w, "Invalid from date")
			return
		}
		filter.StartDate = &t
	}
	if to := query.Get("to"); to != "" {
		t, err := parseDate(to)
		if err != nil {
			response.BadRequest(w, "Invalid to date")
			return
		}
		// a bare date includes the whole day
		if len(to) == len(dateLayout) {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		filter.EndDate = &t
	}

	records, err := h.service.ListActive(r.Context(), filter)
	if err != nil {
		response.AppError(w, apperror.ErrServiceUnavailable.WithMessage(h.service.Messages().Get(domain.MsgUnexpected)))
		return
	}

	response.Success(w, http.StatusOK, "", map[string]interface{}{
		"records": toRecordViews(records),
		"total":   len(records),
	})
}

// ListDeleted handles listing deleted records
func (h *ServiceRecordHandler) ListDeleted(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			response.BadRequest(w, "Invalid limit")
			return
		}
		limit = parsed
	}

	records, err := h.service.ListDeleted(r.Context(), limit)
	if err != nil {
		response.AppError(w, apperror.ErrServiceUnavailable.WithMessage(h.service.Messages().Get(domain.MsgUnexpected)))
		return
	}

	response.Success(w, http.StatusOK, "", map[string]interface{}{
		"records": toRecordViews(records),
		"total":   len(records),
	})
}

// ListServiceTypes handles listing the service types records can be tagged with
func (h *ServiceRecordHandler) ListServiceTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.service.ListServiceTypes(r.Context())
	if err != nil {
		response.AppError(w, apperror.ErrServiceUnavailable.WithMessage(h.service.Messages().Get(domain.MsgUnexpected)))
		return
	}

	response.Success(w, http.StatusOK, "", map[string]interface{}{
		"service_types": types,
		"total":         len(types),
	})
}

// ListProducts handles listing the products a record's lines can reference
func (h *ServiceRecordHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		response.AppError(w, apperror.ErrServiceUnavailable.WithMessage(h.service.Messages().Get(domain.MsgUnexpected)))
		return
	}

	response.Success(w, http.StatusOK, "", map[string]interface{}{
		"products": products,
		"total":    len(products),
	})
}

// UpdateRecord handles update-with-reason
func (h *ServiceRecordHandler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	var body updateRecordBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if strings.TrimSpace(body.Reason) == "" {
		response.AppError(w, apperror.ErrUnprocessable.WithMessage("reason is required"))
		return
	}

	update := domain.ServiceRecordUpdate{
		LicensePlate: body.LicensePlate,
		Notes:        body.Notes,
		ClearNotes:   body.ClearNotes,
	}
	if body.ServiceDate != nil {
		t, err := parseDate(*body.ServiceDate)
		if err != nil {
			response.BadRequest(w, "Invalid service_date")
			return
		}
		update.ServiceDate = &t
	}

	result := h.service.Update(r.Context(), mux.Vars(r)["id"], update, h.actor(r), body.Reason)
	h.writeResult(w, http.StatusOK, result)
}

// DeleteRecord handles soft deletion
func (h *ServiceRecordHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	reason, ok := h.readReason(w, r)
	if !ok {
		return
	}

	if h.config.RequireDeleteReason && strings.TrimSpace(reason) == "" {
		response.AppError(w, apperror.ErrUnprocessable.WithMessage("reason is required"))
		return
	}

	result := h.service.SoftDelete(r.Context(), mux.Vars(r)["id"], h.actor(r), reason)
	h.writeResult(w, http.StatusOK, result)
}

// RestoreRecord handles restoring a deleted record
func (h *ServiceRecordHandler) RestoreRecord(w http.ResponseWriter, r *http.Request) {
	reason, ok := h.readReason(w, r)
	if !ok {
		return
	}

	result := h.service.Restore(r.Context(), mux.Vars(r)["id"], h.actor(r), reason)
	h.writeResult(w, http.StatusOK, result)
}

// GetHistory handles the history query
func (h *ServiceRecordHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	result := h.service.GetHistory(r.Context(), mux.Vars(r)["id"])
	if !result.Success {
		response.AppError(w, apperror.ErrServiceUnavailable.WithMessage(result.Message))
		return
	}

	now := h.now()
	views := make([]historyEntryView, 0, len(result.Entries))
	for _, entry := range result.Entries {
		views = append(views, historyEntryView{
			HistoryEntry:       entry,
			ActionLabel:        domain.FormatAction(entry.Action, h.config.Locale),
			ChangedFieldsLabel: domain.FormatChangedFields(entry.ChangedFields, h.config.Locale),
			TimeAgo:            domain.TimeAgo(now, entry.ChangedAt, h.config.Locale),
		})
	}

	response.Success(w, http.StatusOK, "", map[string]interface{}{
		"entries": views,
		"total":   len(views),
	})
}

func (h *ServiceRecordHandler) writeResult(w http.ResponseWriter, successStatus int, result domain.Result) {
	if appErr := apperror.FromResult(result); appErr != nil {
		response.AppError(w, appErr)
		return
	}

	var data interface{}
	if result.Record != nil {
		data = recordView{ServiceRecord: result.Record, Total: result.Record.Total()}
	}
	response.Success(w, successStatus, result.Message, data)
}

func (h *ServiceRecordHandler) actor(r *http.Request) string {
	if actor := strings.TrimSpace(r.Header.Get(ActorHeader)); actor != "" {
		return actor
	}
	return h.config.DefaultActor
}

// readReason accepts the reason from a JSON body or the reason query parameter
func (h *ServiceRecordHandler) readReason(w http.ResponseWriter, r *http.Request) (string, bool) {
	var body reasonBody
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			response.BadRequest(w, "Invalid request body")
			return "", false
		}
	}
	if body.Reason == "" {
		body.Reason = r.URL.Query().Get("reason")
	}
	return body.Reason, true
}

func toRecordViews(records []*domain.ServiceRecord) []recordView {
	views := make([]recordView, 0, len(records))
	for _, rec := range records {
		views = append(views, recordView{ServiceRecord: rec, Total: rec.Total()})
	}
	return views
}

// parseDate accepts RFC 3339 timestamps or bare calendar dates
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse(dateLayout, value)
}
