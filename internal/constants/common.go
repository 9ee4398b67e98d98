package constants

type APIStatus string

const (
	APIStatusOk    APIStatus = "success"
	APIStatusError APIStatus = "error"
)

// Context keys used by middleware
const (
	RequestIDKey = "request_id"
)
