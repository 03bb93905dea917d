package web

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status      string `json:"status"`
	Uptime      string `json:"uptime"`
	Controllers int    `json:"controllers"`
}

// RuleRow describes one Sigma rule file for the web API
type RuleRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Level       string `json:"level"`
	Filename    string `json:"filename"`
	Enabled     bool   `json:"enabled"`
}
