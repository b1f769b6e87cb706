package types

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: garment image is required
	Error string `json:"error" example:"garment image is required"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// RootResponse is returned by GET /.
type RootResponse struct {
	// example: fitroom
	Name string `json:"name" example:"fitroom"`
	// example: running
	Status string `json:"status" example:"running"`
	// Active compute backend.
	// example: mps
	Device string `json:"device" example:"mps"`
	// Whether a pipeline is loaded.
	// example: true
	ModelsLoaded bool `json:"models_loaded" example:"true"`
	// Whether the prompt-enhancement service answers.
	// example: false
	PromptService bool `json:"prompt_service" example:"false"`
}

// TryOnResponse is returned by POST /tryon.
type TryOnResponse struct {
	// History record id.
	// example: 1b4e28ba-2fa1-11d2-883f-0016d3cca427
	ID string `json:"id" example:"1b4e28ba-2fa1-11d2-883f-0016d3cca427"`
	// example: true
	Success bool `json:"success" example:"true"`
	// URL of the stored result image.
	// example: /outputs/result_1b4e28ba-2fa1-11d2-883f-0016d3cca427.jpg
	ResultURL string `json:"result_url" example:"/outputs/result_1b4e28ba-2fa1-11d2-883f-0016d3cca427.jpg"`
	// Variant the run was attributed to.
	// example: local
	Variant string `json:"variant" example:"local"`
	// Backend that produced the image.
	// example: cpu
	Backend string `json:"backend" example:"cpu"`
	// True when the run fell back from the unified-memory backend to CPU.
	// example: false
	Downgraded bool `json:"downgraded" example:"false"`
	// Model type that produced the image.
	// example: idm-vton
	ModelType string `json:"model_type" example:"idm-vton"`
	// Prompt actually used.
	Prompt string `json:"prompt"`
	// Garment analysis when prompt enhancement ran.
	Analysis string `json:"analysis,omitempty"`
	// Wall-clock generation time in seconds.
	// example: 42.5
	GenerationSeconds float64 `json:"generation_time" example:"42.5"`
	// Cost charged for the variant.
	// example: 0
	Cost float64 `json:"cost" example:"0"`
}

// AnalyzeGarmentResponse is returned by POST /analyze-garment.
type AnalyzeGarmentResponse struct {
	Analysis string   `json:"analysis"`
	Prompt   string   `json:"prompt"`
	Styling  *Styling `json:"styling,omitempty"`
}

// Styling tips for a garment.
type Styling struct {
	Combinations string `json:"combinations,omitempty"`
	Occasions    string `json:"occasions,omitempty"`
	Accessories  string `json:"accessories,omitempty"`
}

// VariantsResponse is returned by GET /variants.
type VariantsResponse struct {
	Variants []Variant `json:"variants"`
}

// EnabledRequest toggles a variant.
type EnabledRequest struct {
	// example: false
	Enabled bool `json:"enabled" example:"false"`
}

// GenerationsResponse is returned by GET /generations.
type GenerationsResponse struct {
	Generations []Generation `json:"generations"`
}

// RateRequest rates a generation.
type RateRequest struct {
	// Rating from 0 to 5.
	// example: 4
	Rating int `json:"rating" example:"4"`
}

// ModelsResponse is returned by GET /models.
type ModelsResponse struct {
	Models []ModelSource `json:"models"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Overall service state (loading, ready, error).
	// example: ready
	State string `json:"state" example:"ready"`
	// Last load error, if any.
	Error string `json:"error,omitempty"`
	// example: darwin
	OS string `json:"os" example:"darwin"`
	// example: arm64
	Arch string `json:"arch" example:"arm64"`
	// Backends detected on the host, most preferred first.
	// example: ["mps","cpu"]
	DetectedBackends []string `json:"detected_backends" example:"mps,cpu"`
	// Pipeline currently loaded, if any.
	Pipeline *PipelineStatus `json:"pipeline,omitempty"`
	// Current queue length for incoming requests.
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
	// Number of in-flight generations.
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// Maximum queued requests allowed before backpressure triggers.
	// example: 8
	MaxQueueDepth int `json:"max_queue_depth" example:"8"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// example: 12
	GenerationsTotal uint64 `json:"generations_total" example:"12"`
	// example: 1
	DowngradesTotal uint64 `json:"downgrades_total" example:"1"`
	// example: 3
	LoadsTotal uint64 `json:"loads_total" example:"3"`
}

// PipelineStatus describes the loaded pipeline.
type PipelineStatus struct {
	// example: sd-inpaint
	ModelType string `json:"model_type" example:"sd-inpaint"`
	// Model type originally requested.
	// example: idm-vton
	Requested string `json:"requested" example:"idm-vton"`
	// example: true
	FellBack bool `json:"fell_back" example:"true"`
	// example: mps
	Backend string `json:"backend" example:"mps"`
	// example: float32
	Precision string `json:"precision" example:"float32"`
	// Longest image edge fed to the pipeline.
	// example: 384
	MaxEdge int `json:"max_edge" example:"384"`
}
