package models

// AskRequest for POST /api/v1/ask
type AskRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

// QueryRequest for POST /api/v1/query (direct SQL)
type QueryRequest struct {
	SQL       string `json:"sql"`
	TimeoutMs int    `json:"timeout_ms"`
}

func (r *QueryRequest) SetDefaults() {
	if r.TimeoutMs == 0 {
		r.TimeoutMs = 30000
	}
	if r.TimeoutMs < 1000 {
		r.TimeoutMs = 1000
	}
	if r.TimeoutMs > 300000 {
		r.TimeoutMs = 300000
	}
}

// ConnectFileRequest for POST /api/v1/sources/files
type ConnectFileRequest struct {
	Name  string   `json:"name,omitempty"`
	Paths []string `json:"paths"`
}

// ConnectPostgresRequest for POST /api/v1/sources/postgres
type ConnectPostgresRequest struct {
	Name string `json:"name,omitempty"`
	DSN  string `json:"dsn"`
}
