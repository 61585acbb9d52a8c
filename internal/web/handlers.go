package web

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/hpungsan/slicerbridge/internal/config"
	"github.com/hpungsan/slicerbridge/internal/convert"
	"github.com/hpungsan/slicerbridge/internal/errors"
	"github.com/hpungsan/slicerbridge/internal/ops"
)

// Handlers contains HTTP route handlers for the web UI and JSON API.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	renderer *Renderer
	logger   *slog.Logger
}

// ConvertRequest is the JSON body of POST /api/convert. Files carry inline
// content only; the server never reads paths named by a client.
type ConvertRequest struct {
	Files           []ops.ConvertFile `json:"files"`
	NozzleSize      string            `json:"nozzle_size,omitempty"`
	Policy          string            `json:"policy,omitempty"`
	PlasticType     string            `json:"plastic_type,omitempty"`
	PhysicalPrinter string            `json:"physical_printer,omitempty"`
	SupportStyle    string            `json:"support_style,omitempty"`
	Compatibility   string            `json:"compatibility,omitempty"`
	Record          *bool             `json:"record,omitempty"`
}

// ConvertResponse is the JSON body returned by POST /api/convert.
type ConvertResponse struct {
	*ops.ConvertOutput
	Report string `json:"report"`
}

// HandleList handles GET /batches: lists recorded conversion batches.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	input := ops.ListInput{
		Origin:         r.URL.Query().Get("origin"),
		Limit:          parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset:         parseIntParam(r, "offset", 0),
		IncludeDeleted: parseBoolParam(r, "include_deleted"),
	}

	result, err := ops.List(r.Context(), h.db, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "list", ListPageData{
		PageData: PageData{
			Title:   "Conversion history",
			Version: h.renderer.version,
			Nav:     "batches",
		},
		Items:      result.Items,
		Pagination: result.Pagination,
		Origin:     input.Origin,
		Deleted:    input.IncludeDeleted,
	})
}

// HandleDetail handles GET /batches/{id}: shows one batch with its report.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("batch ID is required"))
		return
	}

	batch, err := ops.Fetch(r.Context(), h.db, ops.FetchInput{
		ID:             id,
		IncludeDeleted: parseBoolParam(r, "include_deleted"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		renderJSON(w, http.StatusOK, batch)
		return
	}

	h.renderer.renderPage(w, r, "detail", DetailPageData{
		PageData: PageData{
			Title:   batch.Summary,
			Version: h.renderer.version,
			Nav:     "batches",
		},
		Batch:        batch,
		RenderedHTML: renderMarkdown(batch.Report),
	})
}

// HandleProfile handles GET /batches/{id}/profiles/{n}: downloads one
// converted profile as an OrcaSlicer JSON file.
func (h *Handlers) HandleProfile(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil || n < 0 {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("profile index must be a non-negative integer"))
		return
	}

	batch, err := ops.Fetch(r.Context(), h.db, ops.FetchInput{ID: r.PathValue("id")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if n >= len(batch.Profiles) {
		h.renderer.renderError(w, r, errors.NewInvalidRequest(
			fmt.Sprintf("batch has %d profiles", len(batch.Profiles))))
		return
	}

	np := batch.Profiles[n]
	data, err := json.MarshalIndent(np.Profile, "", "  ")
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInternal(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", convert.JSONFileName(np.Name)))
	_, _ = w.Write(append(data, '\n'))
}

// HandleDelete handles DELETE /batches/{id} and soft-deletes a batch.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("batch ID is required"))
		return
	}

	result, err := ops.Delete(r.Context(), h.db, ops.DeleteInput{ID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	// HTMX request: redirect via HX-Redirect header
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/batches")
		w.WriteHeader(http.StatusOK)
		return
	}

	// JSON request
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		renderJSON(w, http.StatusOK, result)
		return
	}

	// Default: redirect
	http.Redirect(w, r, "/batches", http.StatusSeeOther)
}

// HandlePurge handles POST /batches/purge and permanently deletes soft-deleted batches.
func (h *Handlers) HandlePurge(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	if r.FormValue("confirm") != "true" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("confirm parameter must be \"true\""))
		return
	}

	var input ops.PurgeInput
	if days := r.FormValue("older_than_days"); days != "" {
		d, err := strconv.Atoi(days)
		if err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("older_than_days must be an integer"))
			return
		}
		input.OlderThanDays = &d
	}

	result, err := ops.Purge(r.Context(), h.db, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	// HTMX request: return HTML fragment
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`<div class="purge-result">` + template.HTMLEscapeString(result.Message) + `</div>`))
		return
	}

	// JSON request
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		renderJSON(w, http.StatusOK, result)
		return
	}

	// Default: redirect
	http.Redirect(w, r, "/batches?include_deleted=true", http.StatusSeeOther)
}

// HandleConvert handles POST /api/convert and converts inline profiles,
// recording the batch with origin "web".
func (h *Handlers) HandleConvert(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		renderJSONError(w, errors.NewInvalidRequest("Content-Type must be application/json"))
		return
	}

	// Every file may be up to MaxInputBytes; leave room for a small batch
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes(h.cfg))

	var req ConvertRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		renderJSONError(w, errors.NewInvalidRequest("invalid JSON body: "+err.Error()))
		return
	}
	for i, f := range req.Files {
		if f.Path != "" {
			renderJSONError(w, errors.NewInvalidRequest(
				fmt.Sprintf("files[%d]: only inline content is accepted", i)))
			return
		}
	}

	cfg := *h.cfg
	if req.SupportStyle != "" {
		cfg.SupportStyleChoice = req.SupportStyle
	}
	if req.Compatibility != "" {
		cfg.CompatibilityChoice = req.Compatibility
	}

	result, err := ops.Convert(r.Context(), h.db, &cfg, ops.ConvertInput{
		Files:           req.Files,
		NozzleSize:      req.NozzleSize,
		Policy:          req.Policy,
		PlasticType:     req.PlasticType,
		PhysicalPrinter: req.PhysicalPrinter,
		Record:          req.Record == nil || *req.Record,
		Origin:          ops.OriginWeb,
		Logger:          h.logger,
	})
	if err != nil {
		bErr := asBridgeError(err)
		if bErr.Code == errors.ErrInternal {
			h.logger.Error("convert failed", "error", err)
		}
		renderJSONError(w, bErr)
		return
	}

	status := http.StatusOK
	if result.BatchID != "" {
		status = http.StatusCreated
		w.Header().Set("Location", "/batches/"+result.BatchID)
	}
	renderJSON(w, status, ConvertResponse{ConvertOutput: result, Report: result.Report})
}

// maxBodyBytes bounds a convert request body.
func maxBodyBytes(cfg *config.Config) int64 {
	const floor = 1 << 20
	if cfg == nil || cfg.MaxInputBytes <= 0 {
		return 16 * floor
	}
	return max(4*cfg.MaxInputBytes, floor)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}
