package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/regsense/assistant-gateway/internal/classify"
	"github.com/regsense/assistant-gateway/internal/config"
	"github.com/regsense/assistant-gateway/internal/history"
	"github.com/regsense/assistant-gateway/internal/httputil"
	"github.com/regsense/assistant-gateway/internal/rag"
	"github.com/regsense/assistant-gateway/internal/telemetry"
	"github.com/regsense/assistant-gateway/internal/types"
	"github.com/regsense/assistant-gateway/internal/upload"
)

const (
	routeRedirect = "redirect"
	routeGenerate = "generate"
	routeFallback = "fallback"
)

// defaultTemplateType tags untyped queries for the upstream pipeline.
const defaultTemplateType = "qa"

const fallbackNarrativeFormat = `I understand you're asking about: "%s". However, the document analysis service is currently unavailable. Please try again later or contact support if the issue persists.`

var fallbackChecklist = []string{
	"Try again in a few minutes",
	"Check if documents are properly uploaded",
}

// Handler holds dependencies for the assistant HTTP handlers.
type Handler struct {
	classifier *classify.Classifier
	store      *upload.Store
	rag        rag.Client
	cfg        func() *config.Config
	metrics    *telemetry.Metrics
	recorder   *history.Recorder
}

func NewHandler(classifier *classify.Classifier, store *upload.Store, ragClient rag.Client, cfg func() *config.Config, metrics *telemetry.Metrics, recorder *history.Recorder) *Handler {
	return &Handler{
		classifier: classifier,
		store:      store,
		rag:        ragClient,
		cfg:        cfg,
		metrics:    metrics,
		recorder:   recorder,
	}
}

// Query handles POST /api/query. It classifies the query, short-circuits
// high-confidence template and alert queries into dashboard redirects, and
// otherwise answers through the generation pipeline, degrading to a local
// fallback when the upstream is unreachable.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	receivedAt := time.Now()

	query, templateType, fileHeaders, ok := h.parseQueryRequest(w, r, reqID)
	if !ok {
		return
	}

	staged, rejected, err := h.store.Stage(fileHeaders)
	if err != nil {
		h.writeStageError(w, reqID, err)
		return
	}
	defer upload.ReleaseAll(staged)

	var stagedBytes int64
	for _, f := range staged {
		stagedBytes += f.Size
	}

	classification := h.classifier.Classify(r.Context(), query)

	resp := types.QueryResponse{
		Classification: classification,
		RejectedFiles:  rejected,
	}

	route := routeGenerate
	if target, redirect := h.redirectTarget(classification, query); redirect {
		route = routeRedirect
		resp.Redirect = target
	} else {
		result, uploaded, genErr := h.generate(r.Context(), query, templateType, staged, classification)
		if genErr != nil {
			route = routeFallback
			slog.Warn("generation unavailable, serving degraded response",
				"request_id", reqID,
				"error", genErr,
			)
			if h.metrics != nil {
				h.metrics.RecordFallback()
			}
			resp.Result = &types.GenerationResult{
				Narrative: fmt.Sprintf(fallbackNarrativeFormat, query),
				Checklist: fallbackChecklist,
				Citations: map[string]string{},
			}
			resp.Error = "RAG service unavailable, providing basic response"
		} else {
			resp.Result = result
			resp.UploadedFiles = uploaded
		}
	}

	duration := time.Since(receivedAt)

	slog.Info("query completed",
		"request_id", reqID,
		"route", route,
		"flow", classification.Flow,
		"intended_page", classification.IntendedPage,
		"confidence", classification.Confidence,
		"files_staged", len(staged),
		"files_rejected", len(rejected),
		"duration_ms", duration.Milliseconds(),
	)

	if h.metrics != nil {
		h.metrics.RecordQuery(telemetry.QueryLabels{
			Route:         route,
			Page:          classification.IntendedPage,
			Flow:          classification.Flow,
			Confidence:    classification.Confidence,
			DurationMs:    float64(duration.Milliseconds()),
			StagedBytes:   stagedBytes,
			RejectedFiles: len(rejected),
		})
	}

	h.recorder.Record(history.Entry{
		RequestID:    reqID,
		Query:        query,
		Flow:         classification.Flow,
		IntendedPage: classification.IntendedPage,
		Confidence:   classification.Confidence,
		Route:        route,
		FileCount:    len(staged),
		DurationMs:   duration.Milliseconds(),
	})

	writeJSON(w, http.StatusOK, resp)
}

// Classify handles POST /api/query/classify. It exposes the routing
// decision without running generation, for client-side prefetching.
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")

	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, reqID, "Invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		httputil.WriteValidationError(w, reqID, "Query is required")
		return
	}

	classification := h.classifier.Classify(r.Context(), req.Query)

	resp := types.QueryResponse{Classification: classification}
	if target, redirect := h.redirectTarget(classification, req.Query); redirect {
		resp.Redirect = target
	}

	writeJSON(w, http.StatusOK, resp)
}

// parseQueryRequest accepts either multipart/form-data (query field plus
// files) or a plain JSON body. A request is invalid only when the query is
// empty and no files were attached.
func (h *Handler) parseQueryRequest(w http.ResponseWriter, r *http.Request, reqID string) (string, string, []*multipart.FileHeader, bool) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		uploads := h.cfg().Uploads
		maxMemory := uploads.MaxFileSizeBytes
		if maxMemory <= 0 {
			maxMemory = 32 << 20
		}
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			httputil.WriteValidationError(w, reqID, "Invalid multipart form: "+err.Error())
			return "", "", nil, false
		}

		query := strings.TrimSpace(r.FormValue("query"))
		templateType := r.FormValue("template_type")
		var headers []*multipart.FileHeader
		if r.MultipartForm != nil {
			headers = r.MultipartForm.File["files"]
		}

		if query == "" && len(headers) == 0 {
			httputil.WriteValidationError(w, reqID, "Query or files required")
			return "", "", nil, false
		}
		return query, templateType, headers, true
	}

	var req struct {
		Query        string `json:"query"`
		TemplateType string `json:"template_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, reqID, "Invalid JSON: "+err.Error())
		return "", "", nil, false
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		httputil.WriteValidationError(w, reqID, "Query or files required")
		return "", "", nil, false
	}
	return query, req.TemplateType, nil, true
}

// redirectTarget returns the dashboard URL a structured-page classification
// resolves to, when its confidence clears the redirect threshold.
func (h *Handler) redirectTarget(c types.Classification, query string) (string, bool) {
	if c.Flow != types.FlowStructuredPage {
		return "", false
	}
	if c.Confidence < h.cfg().Classifier.RedirectThreshold {
		return "", false
	}

	switch c.IntendedPage {
	case types.PageTemplates:
		search := query
		if tt, ok := c.Entities["templateType"].(string); ok && tt != "" {
			search = tt
		}
		return "/dashboard/templates?search=" + url.QueryEscape(search), true
	case types.PageAlerts:
		return "/dashboard/alerts?search=" + url.QueryEscape(query), true
	}
	return "", false
}

// generate answers through the full pipeline when files are staged, the
// plain query route otherwise. An explicit template_type from the request
// wins over the classifier's extracted one.
func (h *Handler) generate(ctx context.Context, query, templateType string, staged []*upload.StagedFile, c types.Classification) (*types.GenerationResult, []types.UploadedFile, error) {
	if templateType == "" {
		templateType, _ = c.Entities["templateType"].(string)
	}
	if templateType == "" {
		templateType = defaultTemplateType
	}

	if len(staged) > 0 {
		files := make([]rag.File, 0, len(staged))
		for _, f := range staged {
			files = append(files, rag.File{Name: f.Name, Path: f.Path})
		}
		res, err := h.rag.FullPipeline(ctx, query, files, templateType)
		if err != nil {
			return nil, nil, err
		}
		return res.Result, res.UploadedFiles, nil
	}

	res, err := h.rag.Query(ctx, query, nil, templateType)
	if err != nil {
		return nil, nil, err
	}
	return res.Result, res.UploadedFiles, nil
}

// writeStageError maps staging failures: the file count cap is the client's
// fault, anything else is a spool I/O failure.
func (h *Handler) writeStageError(w http.ResponseWriter, reqID string, err error) {
	if errors.Is(err, upload.ErrTooManyFiles) {
		httputil.WriteValidationError(w, reqID, err.Error())
		return
	}
	slog.Error("failed to stage uploaded files", "request_id", reqID, "error", err)
	httputil.WriteInternalError(w, reqID, "Failed to stage uploaded files")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
