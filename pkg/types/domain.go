package types

// Variant is a generation variant as exposed over HTTP.
type Variant struct {
	// example: local
	Name string `json:"name" example:"local"`
	// example: Local (Free)
	DisplayName string `json:"display_name" example:"Local (Free)"`
	// example: false
	Paid bool `json:"is_paid" example:"false"`
	// example: 0
	Cost float64 `json:"cost_per_generation" example:"0"`
	// example: true
	Enabled bool `json:"enabled" example:"true"`
	// Smoothed generation time in seconds.
	// example: 45
	AvgSeconds float64 `json:"avg_generation_time" example:"45"`
	// example: 180
	MaxSeconds float64 `json:"max_generation_time" example:"180"`
	// example: false
	Blacklisted bool `json:"blacklisted" example:"false"`
	// Why the variant was blacklisted.
	BlacklistReason string `json:"blacklist_reason,omitempty"`
	// example: true
	Available bool `json:"available" example:"true"`
}

// Generation is one history record.
type Generation struct {
	ID          string  `json:"id"`
	PersonName  string  `json:"person_name,omitempty"`
	GarmentName string  `json:"garment_name,omitempty"`
	ResultURL   string  `json:"result_url,omitempty"`
	Variant     string  `json:"generation_type"`
	Backend     string  `json:"backend,omitempty"`
	Prompt      string  `json:"prompt,omitempty"`
	Seconds     float64 `json:"generation_time"`
	Rating      *int    `json:"rating,omitempty"`
	Cost        float64 `json:"cost"`
	Status      string  `json:"status"`
	Error       string  `json:"error_message,omitempty"`
	CreatedUnix int64   `json:"created_at_unix"`
}

// ModelSource is where a model type's weights come from.
type ModelSource struct {
	// example: idm-vton
	ModelType string `json:"model_type" example:"idm-vton"`
	// Local path or remote repo id.
	// example: yisol/IDM-VTON
	Ref string `json:"ref" example:"yisol/IDM-VTON"`
	// example: false
	Local bool `json:"local" example:"false"`
}
