package chessdto

import "fmt"

// DomainError is returned by the client when the server answers with a
// non-2xx status or an error body.
type DomainError struct {
	Code    int
	Message string
}

func (e DomainError) Error() string {
	if e.Message != "" {
		if e.Code != 0 {
			return fmt.Sprintf("webchess: %d %s", e.Code, e.Message)
		}
		return "webchess: " + e.Message
	}
	return fmt.Sprintf("webchess: unexpected status %d", e.Code)
}
