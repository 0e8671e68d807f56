package models

import (
	"github.com/datasage/datasage/internal/analyst"
	"github.com/datasage/datasage/internal/exec"
	"github.com/datasage/datasage/internal/schema"
)

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// AskResponse is returned by POST /api/v1/ask
type AskResponse struct {
	Status    string          `json:"status"`
	SessionID string          `json:"session_id"`
	Answer    *analyst.Answer `json:"answer"`
}

// QueryResponse is returned by POST /api/v1/query
type QueryResponse struct {
	Status    string          `json:"status"`
	Result    *exec.ResultSet `json:"result"`
	ElapsedMs int64           `json:"elapsed_ms"`
}

// SchemaResponse is returned by GET /api/v1/schema
type SchemaResponse struct {
	Status   string           `json:"status"`
	Snapshot *schema.Snapshot `json:"snapshot"`
}

// SourceResponse describes the active data source.
type SourceResponse struct {
	Status  string   `json:"status"`
	Name    string   `json:"name"`
	Dialect string   `json:"dialect"`
	Tables  []string `json:"tables,omitempty"`
}
