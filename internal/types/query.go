package types

// Flow is the coarse routing category for a classified query.
const (
	FlowConversational = "A" // answer inline via the generation pipeline
	FlowStructuredPage = "C" // redirect to a structured dashboard page
)

// Pages a classified query can be routed to.
const (
	PageTemplates = "templates"
	PageAlerts    = "alerts"
	PageChat      = "chat"
)

// Entities holds slot values extracted during classification
// (templateType, dateRange, regulation, deviceType, ...). Values may be
// explicitly nil so clients can distinguish "slot recognized, no value"
// from "slot absent".
type Entities map[string]any

// Classification is the routing decision for a single query.
type Classification struct {
	Flow         string   `json:"flow"`
	IntendedPage string   `json:"intendedPage"`
	Entities     Entities `json:"entities"`
	Confidence   float64  `json:"confidence"`
}

// GenerationResult is the synthesized answer for a query, either produced
// by the upstream RAG pipeline or degraded locally when it is unreachable.
type GenerationResult struct {
	Narrative string            `json:"narrative"`
	Checklist []string          `json:"checklist"`
	Citations map[string]string `json:"citations"`
	Metadata  map[string]any    `json:"_metadata,omitempty"`
}

// UploadedFile summarizes one document ingested by the upstream pipeline.
type UploadedFile struct {
	DocID    string `json:"doc_id"`
	Filename string `json:"filename"`
	Chunks   int    `json:"chunks"`
}

// FileRejection reports a file refused during staging. Rejections do not
// abort the rest of the request.
type FileRejection struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// QueryResponse is the unified envelope returned to the client. On a clean
// success exactly one of Redirect or Result is set; both appear together
// only when Error explains a degraded result.
type QueryResponse struct {
	Classification Classification    `json:"classification"`
	Result         *GenerationResult `json:"result,omitempty"`
	UploadedFiles  []UploadedFile    `json:"uploaded_files,omitempty"`
	RejectedFiles  []FileRejection   `json:"rejected_files,omitempty"`
	Redirect       string            `json:"redirect,omitempty"`
	Error          string            `json:"error,omitempty"`
}
