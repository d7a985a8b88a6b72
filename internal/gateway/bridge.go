package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/regsense/assistant-gateway/internal/httputil"
	"github.com/regsense/assistant-gateway/internal/rag"
	"github.com/regsense/assistant-gateway/internal/types"
	"github.com/regsense/assistant-gateway/internal/upload"
)

// The bridge handlers expose the upstream document pipeline directly,
// without classification. Upstream failures map to 502.

// RAGUpload handles POST /api/rag/upload.
func (h *Handler) RAGUpload(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")

	if err := r.ParseMultipartForm(h.cfg().Uploads.MaxFileSizeBytes); err != nil {
		httputil.WriteValidationError(w, reqID, "Invalid multipart form: "+err.Error())
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		httputil.WriteValidationError(w, reqID, "No files provided")
		return
	}

	staged, rejected, err := h.store.Stage(headers)
	if err != nil {
		h.writeStageError(w, reqID, err)
		return
	}
	defer upload.ReleaseAll(staged)

	if len(staged) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{
			"files":          []types.UploadedFile{},
			"rejected_files": rejected,
		})
		return
	}

	files := make([]rag.File, 0, len(staged))
	for _, f := range staged {
		files = append(files, rag.File{Name: f.Name, Path: f.Path})
	}

	result, err := h.rag.Upload(r.Context(), files)
	if err != nil {
		h.writeUpstreamError(w, reqID, "upload", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"files":          result.Files,
		"rejected_files": rejected,
	})
}

// RAGQuery handles POST /api/rag/query.
func (h *Handler) RAGQuery(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")

	var req struct {
		Query        string   `json:"query"`
		DocIDs       []string `json:"doc_ids"`
		TemplateType string   `json:"template_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, reqID, "Invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		httputil.WriteValidationError(w, reqID, "Query is required")
		return
	}

	if req.TemplateType == "" {
		req.TemplateType = defaultTemplateType
	}

	result, err := h.rag.Query(r.Context(), req.Query, req.DocIDs, req.TemplateType)
	if err != nil {
		h.writeUpstreamError(w, reqID, "query", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"result":         result.Result,
		"uploaded_files": result.UploadedFiles,
	})
}

// RAGFull handles POST /api/rag/full, the combined upload-and-answer route.
func (h *Handler) RAGFull(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")

	if err := r.ParseMultipartForm(h.cfg().Uploads.MaxFileSizeBytes); err != nil {
		httputil.WriteValidationError(w, reqID, "Invalid multipart form: "+err.Error())
		return
	}

	query := strings.TrimSpace(r.FormValue("query"))
	templateType := r.FormValue("template_type")
	if templateType == "" {
		templateType = defaultTemplateType
	}
	headers := r.MultipartForm.File["files"]

	if query == "" {
		httputil.WriteValidationError(w, reqID, "Query is required")
		return
	}

	staged, rejected, err := h.store.Stage(headers)
	if err != nil {
		h.writeStageError(w, reqID, err)
		return
	}
	defer upload.ReleaseAll(staged)

	files := make([]rag.File, 0, len(staged))
	for _, f := range staged {
		files = append(files, rag.File{Name: f.Name, Path: f.Path})
	}

	result, err := h.rag.FullPipeline(r.Context(), query, files, templateType)
	if err != nil {
		h.writeUpstreamError(w, reqID, "full", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"result":         result.Result,
		"uploaded_files": result.UploadedFiles,
		"rejected_files": rejected,
	})
}

// RAGAnalyze handles POST /api/rag/analyze, a raw vector search.
func (h *Handler) RAGAnalyze(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")

	var req struct {
		Query string `json:"query"`
		K     int    `json:"k"`
		DocID string `json:"doc_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, reqID, "Invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		httputil.WriteValidationError(w, reqID, "Query is required")
		return
	}
	if req.K <= 0 {
		req.K = 5
	}

	result, err := h.rag.VectorSearch(r.Context(), req.Query, req.K, req.DocID)
	if err != nil {
		h.writeUpstreamError(w, reqID, "analyze", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// RAGHealth handles GET /api/rag/health. It always answers 200; each
// backend reports its own status.
func (h *Handler) RAGHealth(w http.ResponseWriter, r *http.Request) {
	report := h.rag.Health(r.Context())
	writeJSON(w, http.StatusOK, report)
}

// Health handles GET /health, local liveness only.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeUpstreamError(w http.ResponseWriter, reqID, route string, err error) {
	slog.Error("upstream request failed", "request_id", reqID, "route", route, "error", err)

	var ue *rag.UpstreamError
	if errors.As(err, &ue) {
		detail := ue.Detail
		if detail == "" {
			detail = ue.Error()
		}
		httputil.WriteUpstreamError(w, reqID, "Document service request failed", detail)
		return
	}
	httputil.WriteUpstreamError(w, reqID, "Document service request failed", err.Error())
}
