package providers

import "fmt"

// ProviderError is a structured failure from an external provider call.
// Status carries the upstream HTTP status when one was received.
type ProviderError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
