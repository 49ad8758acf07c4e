package stream

import (
	"errors"
	"fmt"
)

// TransportError is returned for a non-success HTTP response from the
// completion endpoint. The caller owns user-facing messaging; partial
// text already delivered to the sink is retained, not rolled back.
type TransportError struct {
	Status int
	Body   string
}

func (e *TransportError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("completion endpoint returned status %d", e.Status)
	}
	return fmt.Sprintf("completion endpoint returned status %d: %s", e.Status, e.Body)
}

// AsTransportError unwraps err into a TransportError, if it is one.
func AsTransportError(err error) (*TransportError, bool) {
	var te *TransportError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
