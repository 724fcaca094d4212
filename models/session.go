package models

// Conversation is a stored chat thread.
type Conversation struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// Company is the company a conversation analyses.
type Company struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	ConversationID string         `json:"conversation_id"`
	CreatedAt      string         `json:"created_at"`
	Attributes     map[string]any `json:"attributes,omitempty"`
}

// StoredMessage is one committed history entry.
type StoredMessage struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	Role           string `json:"role"`
	Content        string `json:"content"`
	Seq            int    `json:"seq"`
	CreatedAt      string `json:"created_at"`
}
