package consts

// Outbound and inbound event types on the chat socket.
const (
	EventConnectionStatus = "connection_status"
	EventHeartbeat        = "heartbeat"
	EventHeartbeatAck     = "heartbeat_ack"
	EventMessage          = "message"
	EventContent          = "content"
	EventComplete         = "complete"
	EventError            = "error"
)

const StatusConnected = "connected"

// Error codes carried in error event payloads.
const (
	ErrCodeRateLimit  = "rate_limit"
	ErrCodeValidation = "validation_error"
	ErrCodeProcessing = "processing_error"
)

// Message roles stored in conversation history.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultRetryAfterSeconds is reported to clients when the provider does not say.
const DefaultRetryAfterSeconds = 60
