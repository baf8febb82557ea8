package history

import "time"

// Run is one recorded extraction run.
type Run struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	WorkspaceKey     string    `gorm:"size:32;index" json:"workspace_key"`
	FunctionName     string    `gorm:"size:128" json:"function_name"`
	Provider         string    `gorm:"size:32" json:"provider"`
	Model            string    `gorm:"size:64" json:"model"`
	State            string    `gorm:"size:16;index" json:"state"`
	Attempts         int       `json:"attempts"`
	CacheHit         bool      `json:"cache_hit"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	RawBytes         int       `json:"raw_bytes"`
	DurationMS       int64     `json:"duration_ms"`
	ErrorCode        string    `gorm:"size:64" json:"error_code,omitempty"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
}

// TableName sets the runs table name.
func (Run) TableName() string { return "extraction_runs" }
