package utils

// ContextKey is the typed key for request-scoped context values
type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
	UserAgentKey ContextKey = "user_agent"
	IPAddressKey ContextKey = "ip_address"
	EndpointKey  ContextKey = "endpoint"

	// CancelFuncKey carries the context cancel func so middleware can
	// release the timeout after the response is written.
	CancelFuncKey ContextKey = "cancel_func"
)
