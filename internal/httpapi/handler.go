// Package httpapi exposes the catalog over JSON/HTTP.
//
// Caller identity is forwarded by the Gateway in headers:
// x-user-id, x-user-role and, for the fallback admin path, x-admin-token.
//
// Routes:
//
//	GET    /jobs                      → filtered, paginated listing
//	POST   /jobs                      → create a posting
//	POST   /jobs/bulk                 → bulk create
//	GET    /jobs/{id}                 → read one posting
//	PATCH  /jobs/{id}                 → partial update
//	DELETE /jobs/{id}                 → soft delete
//	POST   /jobs/{id}/view|share|apply|save → engagement counters
//	POST   /admin/sync                → push cache-only postings
//	POST   /admin/sweep               → run the expiration sweep now
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"jobmate/catalog-service/internal/catalog"
	"jobmate/catalog-service/internal/model"
	"jobmate/catalog-service/internal/permission"
)

// CapturedAtHeader carries the snapshot time when a listing is served
// from the local cache.
const CapturedAtHeader = "X-Cache-Captured-At"

const maxBodyBytes = 8 << 20

// Handler holds shared dependencies.
type Handler struct {
	engine *catalog.Engine
	gate   catalog.Gate
	logger *slog.Logger
}

// NewHandler returns a configured Handler. gate authorizes the admin
// routes; the engine applies its own gate to mutations.
func NewHandler(engine *catalog.Engine, gate catalog.Gate, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{engine: engine, gate: gate, logger: logger.With("component", "http")}
}

// RegisterRoutes mounts all catalog routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/jobs", WithSession(http.HandlerFunc(h.handleJobs)))
	mux.Handle("/jobs/", WithSession(http.HandlerFunc(h.handleJob)))
	mux.Handle("/admin/", WithSession(http.HandlerFunc(h.handleAdmin)))
}

// WithSession copies the gateway identity headers into the request context.
func WithSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := permission.Session{
			UserID:     r.Header.Get("x-user-id"),
			Role:       r.Header.Get("x-user-role"),
			AdminToken: r.Header.Get("x-admin-token"),
		}
		next.ServeHTTP(w, r.WithContext(permission.WithSession(r.Context(), s)))
	})
}

// ─── Route dispatch ───────────────────────────────────────────────────────────

// handleJobs handles GET|POST /jobs
func (h *Handler) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listJobs(w, r)
	case http.MethodPost:
		h.createJob(w, r)
	default:
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleJob handles /jobs/bulk, /jobs/{id} and /jobs/{id}/{counter}
func (h *Handler) handleJob(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	switch {
	case len(parts) == 2 && parts[1] == "bulk":
		if r.Method != http.MethodPost {
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.bulkCreate(w, r)

	case len(parts) == 2 && parts[1] != "":
		switch r.Method {
		case http.MethodGet:
			h.getJob(w, r, parts[1])
		case http.MethodPatch:
			h.updateJob(w, r, parts[1])
		case http.MethodDelete:
			h.deleteJob(w, r, parts[1])
		default:
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		}

	case len(parts) == 3:
		if r.Method != http.MethodPost {
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		ct, ok := counterActions[parts[2]]
		if !ok {
			jsonError(w, fmt.Sprintf("unknown action %q", parts[2]), http.StatusNotFound)
			return
		}
		h.increment(w, r, parts[1], ct)

	default:
		jsonError(w, "invalid path", http.StatusNotFound)
	}
}

// handleAdmin handles POST /admin/sync|sweep
func (h *Handler) handleAdmin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.gate.CanMutate(r.Context()) {
		writeError(w, catalog.ErrPermissionDenied)
		return
	}

	switch strings.TrimPrefix(r.URL.Path, "/admin/") {
	case "sync":
		rep := h.engine.Sync.Push(r.Context())
		if rep.Busy {
			jsonStatus(w, http.StatusConflict, rep)
			return
		}
		jsonOK(w, rep)
	case "sweep":
		rep, err := h.engine.Sweeper.Run(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		jsonOK(w, rep)
	default:
		jsonError(w, "invalid path", http.StatusNotFound)
	}
}

var counterActions = map[string]model.Counter{
	"view":  model.CounterViews,
	"share": model.CounterShares,
	"apply": model.CounterApplications,
	"save":  model.CounterSaves,
}

// ─── Individual handlers ──────────────────────────────────────────────────────

func (h *Handler) listJobs(w http.ResponseWriter, r *http.Request) {
	f, page, pageSize, err := parseQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	p := h.engine.Service.Query(r.Context(), f, page, pageSize)
	if p.Source == model.SourceCache {
		if at := h.engine.Service.CacheCapturedAt(r.Context()); !at.IsZero() {
			w.Header().Set(CapturedAtHeader, at.UTC().Format(time.RFC3339))
		}
	}
	jsonOK(w, p)
}

func (h *Handler) createJob(w http.ResponseWriter, r *http.Request) {
	var in model.JobInput
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	rec, err := h.engine.Service.Create(r.Context(), in)
	if err != nil {
		h.logger.Warn("create failed", "err", err)
		writeError(w, err)
		return
	}
	jsonStatus(w, http.StatusCreated, rec)
}

func (h *Handler) bulkCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Jobs []model.JobInput `json:"jobs"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.engine.Bulk.Load(r.Context(), body.Jobs)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonOK(w, res)
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := h.engine.Service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonOK(w, rec)
}

func (h *Handler) updateJob(w http.ResponseWriter, r *http.Request, id string) {
	var patch model.JobPatch
	if err := decodeBody(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}

	rec, err := h.engine.Service.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonOK(w, rec)
}

func (h *Handler) deleteJob(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.engine.Service.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) increment(w http.ResponseWriter, r *http.Request, id string, ct model.Counter) {
	n, err := h.engine.Counters.Increment(r.Context(), id, ct)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonOK(w, map[string]any{"id": id, "counter": ct, "value": n})
}

// ─── Request parsing ──────────────────────────────────────────────────────────

func parseQuery(r *http.Request) (model.Filter, int, int, error) {
	q := r.URL.Query()
	f := model.Filter{
		Sectors:    splitList(q["sector"]),
		Type:       q.Get("type"),
		Locations:  splitList(q["location"]),
		Experience: q.Get("experience"),
		Search:     q.Get("search"),
	}

	if v := q.Get("featured"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, 0, 0, &catalog.ValidationError{Msg: "featured must be a boolean"}
		}
		f.Featured = &b
	}
	if v := q.Get("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, 0, 0, &catalog.ValidationError{Msg: "active must be a boolean"}
		}
		f.ActiveOnly = b
	}

	page, err := positiveInt(q.Get("page"), 1, "page")
	if err != nil {
		return f, 0, 0, err
	}
	pageSize, err := positiveInt(q.Get("pageSize"), model.DefaultPageSize, "pageSize")
	if err != nil {
		return f, 0, 0, err
	}
	return f, page, min(pageSize, model.MaxPageSize), nil
}

// splitList accepts both repeated parameters and comma-separated values.
func splitList(vals []string) []string {
	var out []string
	for _, v := range vals {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func positiveInt(v string, fallback int, name string) (int, error) {
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, &catalog.ValidationError{Msg: name + " must be a positive integer"}
	}
	return n, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &catalog.ValidationError{Msg: "invalid JSON body: " + err.Error()}
	}
	return nil
}

// ─── Responses ────────────────────────────────────────────────────────────────

// statusFor maps catalog errors to HTTP status codes.
func statusFor(err error) int {
	var verr *catalog.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrRemoteUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "internal error"
	}
	jsonError(w, msg, code)
}

func jsonOK(w http.ResponseWriter, v any) {
	jsonStatus(w, http.StatusOK, v)
}

func jsonStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
