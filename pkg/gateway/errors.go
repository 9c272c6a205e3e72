package gateway

import "fmt"

// NetworkError reports a transport failure: no response arrived, the
// connection failed, or the bounded wait expired. Recoverable; callers show
// a form-level banner and keep entered values.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("gateway: request to %s failed: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ValidationError reports a 4xx response. Fields carries server-detected
// field errors keyed by the backend's field paths; callers merge them back
// into the form's error map rather than flashing a toast.
type ValidationError struct {
	Status  int
	Message string
	Fields  map[string][]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("gateway: request rejected (%d): %s", e.Status, e.Message)
}

// ServerError reports a 5xx response.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("gateway: server error (%d): %s", e.Status, e.Message)
}
