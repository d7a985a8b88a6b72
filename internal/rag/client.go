package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/regsense/assistant-gateway/internal/config"
	"github.com/regsense/assistant-gateway/internal/types"
)

// File is a staged upload handed to the adapter: the original filename plus
// its spool location on disk.
type File struct {
	Name string
	Path string
}

// UploadResult is the backend's summary of ingested documents.
type UploadResult struct {
	Files []types.UploadedFile `json:"files"`
}

// QueryResult is the outcome of a generation call.
type QueryResult struct {
	Result        *types.GenerationResult
	UploadedFiles []types.UploadedFile
}

// SearchResult is the vector backend's raw search outcome.
type SearchResult struct {
	Results json.RawMessage `json:"results"`
	Count   int             `json:"count"`
}

// HealthReport captures per-backend health; each side degrades
// independently to {"status":"unavailable"}.
type HealthReport struct {
	RAGAPI            any    `json:"rag_api"`
	VectorAPI         any    `json:"vector_api"`
	GenerationCircuit string `json:"generation_circuit"`
}

// Client wraps the RAG orchestrator and vector-search backends. Every
// operation carries a bounded per-route timeout; failures surface as
// *UpstreamError.
type Client interface {
	Upload(ctx context.Context, files []File) (*UploadResult, error)
	Query(ctx context.Context, query string, docIDs []string, templateType string) (*QueryResult, error)
	FullPipeline(ctx context.Context, query string, files []File, templateType string) (*QueryResult, error)
	VectorSearch(ctx context.Context, query string, k int, docID string) (*SearchResult, error)
	Health(ctx context.Context) *HealthReport
}

// ObserveFunc records one finished upstream call: route, outcome
// (success, transport_error, backend_error), and duration.
type ObserveFunc func(route, outcome string, durationMs float64)

// HTTPClient is the production Client.
type HTTPClient struct {
	cfg     func() config.UpstreamConfig
	client  *http.Client
	breaker *CircuitBreaker
	observe ObserveFunc
}

func NewHTTPClient(cfg func() config.UpstreamConfig, observe ObserveFunc) *HTTPClient {
	c := cfg()
	return &HTTPClient{
		cfg:     cfg,
		observe: observe,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		},
		breaker: NewCircuitBreaker(
			c.CircuitBreaker.FailureThreshold,
			c.CircuitBreaker.RecoveryProbeInterval,
		),
	}
}

// Breaker exposes the generation circuit for health reporting.
func (c *HTTPClient) Breaker() *CircuitBreaker { return c.breaker }

func (c *HTTPClient) Upload(ctx context.Context, files []File) (*UploadResult, error) {
	cfg := c.cfg()
	if err := c.allowGeneration("rag upload"); err != nil {
		return nil, err
	}

	body, err := c.doMultipart(ctx, "rag upload", cfg.RAGURL+"/rag/upload", cfg.UploadTimeout, "", "", files)
	if err != nil {
		return nil, err
	}

	var result UploadResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &UpstreamError{Route: "rag upload", Kind: KindBackend, Status: http.StatusOK,
			Detail: "unparseable response body", Err: err}
	}
	return &result, nil
}

func (c *HTTPClient) Query(ctx context.Context, query string, docIDs []string, templateType string) (*QueryResult, error) {
	cfg := c.cfg()
	if err := c.allowGeneration("rag query"); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"query":         query,
		"template_type": templateType,
	}
	if len(docIDs) > 0 {
		payload["doc_ids"] = docIDs
	}

	body, err := c.doJSON(ctx, "rag query", cfg.RAGURL+"/rag/query", cfg.QueryTimeout, payload)
	if err != nil {
		return nil, err
	}
	return parseQueryResult("rag query", body)
}

func (c *HTTPClient) FullPipeline(ctx context.Context, query string, files []File, templateType string) (*QueryResult, error) {
	cfg := c.cfg()
	if err := c.allowGeneration("rag full"); err != nil {
		return nil, err
	}

	body, err := c.doMultipart(ctx, "rag full", cfg.RAGURL+"/rag/full", cfg.PipelineTimeout, query, templateType, files)
	if err != nil {
		return nil, err
	}
	return parseQueryResult("rag full", body)
}

func (c *HTTPClient) VectorSearch(ctx context.Context, query string, k int, docID string) (*SearchResult, error) {
	cfg := c.cfg()

	payload := map[string]any{"query": query, "k": k}
	if docID != "" {
		payload["filters"] = map[string]string{"doc_id": docID}
	}

	body, err := c.doJSONAgainst(ctx, "vector search", cfg.VectorURL+"/vector/search", cfg.SearchTimeout, payload, false)
	if err != nil {
		return nil, err
	}

	var result SearchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &UpstreamError{Route: "vector search", Kind: KindBackend, Status: http.StatusOK,
			Detail: "unparseable response body", Err: err}
	}
	return &result, nil
}

// Health probes both backends concurrently with all-settle semantics: a
// failed probe on one side never hides the other's status.
func (c *HTTPClient) Health(ctx context.Context) *HealthReport {
	cfg := c.cfg()

	report := &HealthReport{GenerationCircuit: c.breaker.State().String()}
	done := make(chan struct{}, 2)

	go func() {
		report.RAGAPI = c.probe(ctx, cfg.RAGURL+"/health", cfg.HealthTimeout)
		done <- struct{}{}
	}()
	go func() {
		report.VectorAPI = c.probe(ctx, cfg.VectorURL+"/health", cfg.HealthTimeout)
		done <- struct{}{}
	}()
	<-done
	<-done

	return report
}

func (c *HTTPClient) probe(ctx context.Context, url string, timeout time.Duration) any {
	unavailable := map[string]string{"status": "unavailable"}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return unavailable
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return unavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return unavailable
	}

	var payload any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return unavailable
	}
	return payload
}

func (c *HTTPClient) allowGeneration(route string) error {
	if !c.breaker.Allow() {
		return &UpstreamError{Route: route, Kind: KindUnavailable}
	}
	return nil
}

func (c *HTTPClient) doJSON(ctx context.Context, route, url string, timeout time.Duration, payload any) ([]byte, error) {
	return c.doJSONAgainst(ctx, route, url, timeout, payload, true)
}

// doJSONAgainst posts JSON and returns the response body. When tracked is
// set the outcome feeds the generation circuit breaker.
func (c *HTTPClient) doJSONAgainst(ctx context.Context, route, url string, timeout time.Duration, payload any, tracked bool) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", route, err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", route, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.send(req, route, tracked)
}

// doMultipart streams spooled files (plus optional query and template_type
// fields) as a multipart body.
func (c *HTTPClient) doMultipart(ctx context.Context, route, url string, timeout time.Duration, query, templateType string, files []File) ([]byte, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeMultipart(mw, query, templateType, files)
		if cerr := mw.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", route, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.send(req, route, true)
}

func writeMultipart(mw *multipart.Writer, query, templateType string, files []File) error {
	if query != "" {
		if err := mw.WriteField("query", query); err != nil {
			return err
		}
	}
	if templateType != "" {
		if err := mw.WriteField("template_type", templateType); err != nil {
			return err
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return err
		}
		src, err := os.Open(f.Path)
		if err != nil {
			return fmt.Errorf("open staged file %s: %w", f.Name, err)
		}
		_, err = io.Copy(part, src)
		src.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *HTTPClient) send(req *http.Request, route string, tracked bool) ([]byte, error) {
	started := time.Now()

	resp, err := c.client.Do(req)
	if err != nil {
		if tracked {
			c.breaker.RecordFailure()
		}
		c.record(route, "transport_error", started)
		return nil, &UpstreamError{Route: route, Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if tracked {
			c.breaker.RecordFailure()
		}
		c.record(route, "transport_error", started)
		return nil, &UpstreamError{Route: route, Kind: KindTransport, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if tracked {
			c.breaker.RecordFailure()
		}
		c.record(route, "backend_error", started)
		return nil, &UpstreamError{Route: route, Kind: KindBackend, Status: resp.StatusCode, Detail: string(body)}
	}

	if tracked {
		c.breaker.RecordSuccess()
	}
	c.record(route, "success", started)
	return body, nil
}

func (c *HTTPClient) record(route, outcome string, started time.Time) {
	if c.observe == nil {
		return
	}
	c.observe(route, outcome, float64(time.Since(started).Milliseconds()))
}

// parseQueryResult accepts both response shapes the backend emits: a
// {result, uploaded_files} envelope or a bare GenerationResult.
func parseQueryResult(route string, body []byte) (*QueryResult, error) {
	var envelope struct {
		Result        *types.GenerationResult `json:"result"`
		UploadedFiles []types.UploadedFile    `json:"uploaded_files"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &UpstreamError{Route: route, Kind: KindBackend, Status: http.StatusOK,
			Detail: "unparseable response body", Err: err}
	}
	if envelope.Result == nil {
		var direct types.GenerationResult
		if err := json.Unmarshal(body, &direct); err != nil {
			return nil, &UpstreamError{Route: route, Kind: KindBackend, Status: http.StatusOK,
				Detail: "unparseable response body", Err: err}
		}
		envelope.Result = &direct
	}
	return &QueryResult{Result: envelope.Result, UploadedFiles: envelope.UploadedFiles}, nil
}
