package llm

import "fmt"

// UnsupportedProviderError is returned by NewAdapter when the configured
// provider identifier is not one of the supported backends.
type UnsupportedProviderError struct {
	Provider Provider
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported provider: %s", e.Provider)
}

// ProviderError carries a non-2xx provider response. Message holds the
// provider's own error message when present, else a generic status line.
type ProviderError struct {
	Provider Provider
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s error: %d", e.Provider, e.Status)
}

// ProtocolError reports a provider response that could not be normalized
// into the internal representation.
type ProtocolError struct {
	Provider Provider
	Reason   string
	Err      error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Reason)
}

func (e *ProtocolError) Unwrap() error { return e.Err }
