// Package api exposes the content service over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/tendant/flex-cms/pkg/flexcms"
	renderpkg "github.com/tendant/flex-cms/pkg/flexcms/render"
	"github.com/tendant/flex-cms/pkg/flexcms/schema"
)

// RecordHandler handles HTTP requests for content records
type RecordHandler struct {
	service flexcms.Service
}

// NewRecordHandler creates a new record handler
func NewRecordHandler(service flexcms.Service) *RecordHandler {
	return &RecordHandler{service: service}
}

// Routes returns the routes for content records
func (h *RecordHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/search", h.Search)
	r.Post("/query", h.Query)

	r.Get("/{contentType}", h.ListRecords)
	r.Post("/{contentType}", h.CreateRecord)
	r.Get("/{contentType}/{slug}", h.GetRecord)
	r.Delete("/{contentType}/{id}", h.DeleteRecord)

	return r
}

// RecordResponse is the response body for a content record
type RecordResponse struct {
	renderpkg.RecordExport
	Title string `json:"title"`
}

// PageResponse is the response body for a paginated record listing
type PageResponse struct {
	Records    []RecordResponse `json:"records"`
	Page       int              `json:"page"`
	PerPage    int              `json:"per_page"`
	Total      int              `json:"total"`
	TotalPages int              `json:"total_pages"`
}

func (h *RecordHandler) recordResponse(c *flexcms.Content, locale string) RecordResponse {
	return RecordResponse{
		RecordExport: renderpkg.ExportRecord(c),
		Title:        h.service.DisplayTitle(c, locale),
	}
}

func (h *RecordHandler) pageResponse(page *flexcms.RecordPage, locale string) PageResponse {
	resp := PageResponse{
		Records:    make([]RecordResponse, 0, len(page.Records)),
		Page:       page.Page,
		PerPage:    page.PerPage,
		Total:      page.Total,
		TotalPages: page.TotalPages,
	}
	for _, c := range page.Records {
		resp.Records = append(resp.Records, h.recordResponse(c, locale))
	}
	return resp
}

// ListRecords lists records of one content type
func (h *RecordHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	req := flexcms.ListRecordsRequest{
		ContentType: chi.URLParam(r, "contentType"),
		Page:        queryInt(r, "page", 1),
		PerPage:     queryInt(r, "amount", 0),
		Order:       r.URL.Query().Get("order"),
		Locale:      r.URL.Query().Get("locale"),
	}

	page, err := h.service.ListRecords(r.Context(), req)
	if err != nil {
		h.renderError(w, r, "Failed to list records", err)
		return
	}
	render.JSON(w, r, h.pageResponse(page, req.Locale))
}

// CreateRecordRequest is the request body for creating a record
type CreateRecordRequest struct {
	AuthorID string         `json:"author_id,omitempty"`
	Status   string         `json:"status,omitempty"`
	Locale   string         `json:"locale,omitempty"`
	Values   map[string]any `json:"values"`
}

// CreateRecord creates a new record of one content type
func (h *RecordHandler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var req CreateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	createReq := flexcms.CreateRecordRequest{
		ContentType: chi.URLParam(r, "contentType"),
		Status:      schema.Status(req.Status),
		Locale:      req.Locale,
		Values:      req.Values,
	}
	if req.AuthorID != "" {
		authorID, err := uuid.Parse(req.AuthorID)
		if err != nil {
			slog.Error("Invalid author ID", "author_id", req.AuthorID, "error", err)
			http.Error(w, "Invalid author ID", http.StatusBadRequest)
			return
		}
		createReq.AuthorID = authorID
	}

	content, err := h.service.CreateRecord(r.Context(), createReq)
	if err != nil {
		h.renderError(w, r, "Failed to create record", err)
		return
	}
	if err := h.service.SaveRecord(r.Context(), content); err != nil {
		h.renderError(w, r, "Failed to save record", err)
		return
	}

	slog.Info("Record created", "record_id", content.ID.String(), "content_type", content.ContentType)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, h.recordResponse(content, req.Locale))
}

// GetRecord retrieves one record by slug, or by id when the path segment
// parses as one
func (h *RecordHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	contentType := chi.URLParam(r, "contentType")
	slug := chi.URLParam(r, "slug")
	locale := r.URL.Query().Get("locale")

	var content *flexcms.Content
	var err error
	if id, parseErr := uuid.Parse(slug); parseErr == nil {
		content, err = h.service.GetRecord(r.Context(), id)
	} else {
		content, err = h.service.GetRecordBySlug(r.Context(), contentType, slug, locale)
	}
	if err != nil {
		h.renderError(w, r, "Failed to get record", err)
		return
	}
	render.JSON(w, r, h.recordResponse(content, locale))
}

// DeleteRecord deletes one record by id
func (h *RecordHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid record ID", http.StatusBadRequest)
		return
	}
	if err := h.service.DeleteRecord(r.Context(), id); err != nil {
		h.renderError(w, r, "Failed to delete record", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search runs the naive substring search over published records
func (h *RecordHandler) Search(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	if term == "" {
		http.Error(w, "Missing search term", http.StatusBadRequest)
		return
	}

	req := flexcms.SearchRecordsRequest{
		Term:    term,
		Page:    queryInt(r, "page", 1),
		PerPage: queryInt(r, "amount", 0),
	}
	if types := r.URL.Query()["type"]; len(types) > 0 {
		req.Types = types
	}

	page, err := h.service.SearchRecords(r.Context(), req)
	if err != nil {
		h.renderError(w, r, "Search failed", err)
		return
	}
	render.JSON(w, r, h.pageResponse(page, r.URL.Query().Get("locale")))
}

// QueryRequest is the request body for executing a content directive
type QueryRequest struct {
	Directive string `json:"directive"`
	Locale    string `json:"locale,omitempty"`
	Page      int    `json:"page,omitempty"`
	PerPage   int    `json:"per_page,omitempty"`
}

// QueryResponse is the response body for an executed content directive
type QueryResponse struct {
	Single    *RecordResponse `json:"single,omitempty"`
	Page      *PageResponse   `json:"page,omitempty"`
	QueryText string          `json:"query_text,omitempty"`
}

// Query parses and executes a content selection directive
func (h *RecordHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Directive == "" {
		http.Error(w, "Missing directive", http.StatusBadRequest)
		return
	}

	result, err := h.service.QueryRecords(r.Context(), req.Directive, flexcms.QueryOptions{
		Locale:  req.Locale,
		Page:    req.Page,
		PerPage: req.PerPage,
	})
	if err != nil {
		h.renderError(w, r, "Query failed", err)
		return
	}

	resp := QueryResponse{QueryText: result.QueryText}
	if result.Single != nil {
		single := h.recordResponse(result.Single, req.Locale)
		resp.Single = &single
	}
	if result.Page != nil {
		page := h.pageResponse(result.Page, req.Locale)
		resp.Page = &page
	}
	render.JSON(w, r, resp)
}

func (h *RecordHandler) renderError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, flexcms.ErrRecordNotFound), errors.Is(err, flexcms.ErrUnknownContentType):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		slog.Error(msg, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}
