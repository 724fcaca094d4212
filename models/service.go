package models

type ProcessCompanyRequest struct {
	CompanyName string `json:"company_name"`
}

type ProcessCompanyResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	CompanyName    string `json:"company_name"`
	CompanyID      string `json:"company_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	ProcessedAt    string `json:"processed_at"`
}

type ConversationsResponse struct {
	Success       bool           `json:"success"`
	Conversations []Conversation `json:"conversations"`
	Message       string         `json:"message"`
}

type MessagesResponse struct {
	Success  bool            `json:"success"`
	Messages []StoredMessage `json:"messages"`
	Message  string          `json:"message,omitempty"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Database string `json:"database"`
}

type DatasetSummaryResponse struct {
	Success        bool                   `json:"success"`
	Source         string                 `json:"source"`
	AsOf           string                 `json:"as_of"`
	TotalCompanies int                    `json:"total_companies"`
	Metrics        map[string]MetricStats `json:"metrics"`
	Tickers        []string               `json:"sample_tickers,omitempty"`
	Message        string                 `json:"message,omitempty"`
}
