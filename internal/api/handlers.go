// Package api exposes HTTP handlers for the research desk service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"

	"example.com/researchdesk/internal/domain"
	"example.com/researchdesk/internal/engine"
	"example.com/researchdesk/internal/persistence"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	defaultTopN      = 5
)

// Option configures optional behaviour for the Handler.
type Option func(*Handler)

// WithLogger overrides the logger used for server errors.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithClock overrides the clock that decides "today".
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		h.now = now
	}
}

// WithDisplayNames attaches member display names to roster responses.
func WithDisplayNames(names map[string]string) Option {
	return func(h *Handler) {
		h.names = names
	}
}

// DashboardCache holds the dashboard computed by the background refresh.
type DashboardCache interface {
	Latest() (engine.Dashboard, time.Time, bool)
	Invalidate()
}

// WithDashboardCache serves /v1/progress from cache when no date is given.
// Record writes invalidate the cache.
func WithDashboardCache(cache DashboardCache) Option {
	return func(h *Handler) {
		h.cache = cache
	}
}

// Handler coordinates HTTP requests with the record service and the engine.
type Handler struct {
	service *domain.Service
	engine  *engine.Engine
	names   map[string]string
	cache   DashboardCache
	logger  *zap.Logger
	now     func() time.Time
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, eng *engine.Engine, opts ...Option) *Handler {
	h := &Handler{
		service: service,
		engine:  eng,
		names:   map[string]string{},
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/records", h.records)
	mux.HandleFunc("/v1/records/", h.recordByID)
	mux.HandleFunc("/v1/progress", h.progress)
	mux.HandleFunc("/v1/weekly", h.weekly)
	mux.HandleFunc("/v1/rankings/", h.rankings)
	mux.HandleFunc("/v1/roster", h.roster)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) records(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listRecords(w, r)
	case http.MethodPost:
		h.createRecord(w, r)
	case http.MethodPut:
		h.replaceRecords(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) recordByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/records/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing record id")
		return
	}

	switch r.Method {
	case http.MethodDelete:
		if err := h.service.DeleteRecord(r.Context(), id); err != nil {
			h.writeServiceError(w, err)
			return
		}
		h.invalidate()
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := domain.ListFilter{Member: strings.TrimSpace(q.Get("member"))}
	if raw := q.Get("category"); raw != "" {
		c, err := domain.ParseCategory(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		filter.Category = c
	}

	limit := defaultListLimit
	if raw := q.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = min(parsed, maxListLimit)
		}
	}

	cursor, err := persistence.DecodeCursor(q.Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	records, next, err := h.service.ListRecords(r.Context(), filter, cursor, limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ListRecordsResponse{
		Items:      records,
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) createRecord(w http.ResponseWriter, r *http.Request) {
	var req domain.Record
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, domain.ErrInvalidRecord) {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	record, err := h.service.CreateRecord(r.Context(), domain.CreateRecordInput{
		Member:  req.Member,
		Date:    req.Date,
		Details: req.Details,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.invalidate()
	writeJSON(w, http.StatusCreated, record)
}

func (h *Handler) invalidate() {
	if h.cache != nil {
		h.cache.Invalidate()
	}
}

func (h *Handler) replaceRecords(w http.ResponseWriter, r *http.Request) {
	var records []domain.Record
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		if errors.Is(err, domain.ErrInvalidRecord) {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if records == nil {
		records = []domain.Record{}
	}

	if err := h.service.ReplaceRecords(r.Context(), records); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.invalidate()
	writeJSON(w, http.StatusOK, ReplaceRecordsResponse{Count: len(records)})
}

func (h *Handler) progress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	asOf, ok := h.dateParam(w, r)
	if !ok {
		return
	}

	if h.cache != nil && r.URL.Query().Get("date") == "" {
		if cached, refreshed, ok := h.cache.Latest(); ok && cached.AsOf == asOf {
			writeJSON(w, http.StatusOK, ProgressResponse{Dashboard: cached, Names: h.names, RefreshedAt: &refreshed})
			return
		}
	}

	records, err := h.service.Snapshot(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	dashboard, err := h.engine.Dashboard(records, asOf)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProgressResponse{Dashboard: dashboard, Names: h.names})
}

func (h *Handler) weekly(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	reference, ok := h.dateParam(w, r)
	if !ok {
		return
	}

	records, err := h.service.Snapshot(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Weekly(records, reference))
}

func (h *Handler) rankings(w http.ResponseWriter, r *http.Request) {
	board := strings.TrimPrefix(r.URL.Path, "/v1/rankings/")
	if board == "" || strings.Contains(board, "/") {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing board name")
		return
	}

	switch r.Method {
	case http.MethodGet:
		top := defaultTopN
		if raw := r.URL.Query().Get("top"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "validation_failed", "top must be an integer")
				return
			}
			top = parsed
		}

		entries, err := h.service.Board(r.Context(), board)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, RankingResponse{
			Board: board,
			Top:   top,
			Total: len(entries),
			Items: engine.TopN(entries, func(e domain.RankEntry) int { return e.Rank }, top),
		})
	case http.MethodPut:
		var entries []domain.RankEntry
		if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
			return
		}
		if err := h.service.ReplaceBoard(r.Context(), board, entries); err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ReplaceRecordsResponse{Count: len(entries)})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) roster(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	settings := h.engine.Settings()
	quotas := settings.Quotas
	members := make([]RosterMember, 0, len(quotas.Roster()))
	for _, id := range quotas.Roster() {
		targets := make(map[domain.Category]int)
		for _, c := range domain.Categories() {
			if n, ok := quotas.Target(id, c); ok {
				targets[c] = n
			}
		}
		name := h.names[id]
		if name == "" {
			name = id
		}
		members = append(members, RosterMember{ID: id, Name: name, Targets: targets})
	}

	writeJSON(w, http.StatusOK, RosterResponse{
		Quarter:   settings.Quarter,
		Composite: quotas.Composite(),
		Timezone:  settings.Location.String(),
		Members:   members,
	})
}

// dateParam resolves ?date=YYYY-MM-DD, defaulting to today in the team's timezone.
func (h *Handler) dateParam(w http.ResponseWriter, r *http.Request) (civil.Date, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		return h.engine.Today(h.now()), true
	}
	d, err := civil.ParseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "date must be YYYY-MM-DD")
		return civil.Date{}, false
	}
	return d, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "not_found", "record not found")
	case errors.Is(err, domain.ErrUnknownMember):
		writeError(w, http.StatusUnprocessableEntity, "unknown_member", err.Error())
	case errors.Is(err, domain.ErrInvalidRecord), errors.Is(err, domain.ErrDuplicateRecord):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

// ListRecordsResponse packages list results.
type ListRecordsResponse struct {
	Items      []domain.Record `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// ReplaceRecordsResponse reports how many items a replacement stored.
type ReplaceRecordsResponse struct {
	Count int `json:"count"`
}

// ProgressResponse is the dashboard plus display names for rendering.
type ProgressResponse struct {
	engine.Dashboard
	Names       map[string]string `json:"display_names"`
	RefreshedAt *time.Time        `json:"refreshed_at,omitempty"`
}

// RankingResponse is the top of a leaderboard in rank order.
type RankingResponse struct {
	Board string             `json:"board"`
	Top   int                `json:"top"`
	Total int                `json:"total"`
	Items []domain.RankEntry `json:"items"`
}

// RosterMember describes one analyst and their quarterly targets.
type RosterMember struct {
	ID      string                  `json:"id"`
	Name    string                  `json:"name"`
	Targets map[domain.Category]int `json:"targets"`
}

// RosterResponse is the static team configuration.
type RosterResponse struct {
	Quarter   engine.Quarter    `json:"quarter"`
	Composite []domain.Category `json:"composite_categories"`
	Timezone  string            `json:"timezone"`
	Members   []RosterMember    `json:"members"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
