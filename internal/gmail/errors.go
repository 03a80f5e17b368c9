package gmail

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

// ErrorKind classifies a failed Gmail API call so callers can distinguish
// "re-authenticate" from "gone" from "transient upstream trouble" from "bug".
type ErrorKind string

const (
	// KindAuthorization: the provider rejected the credential (revoked
	// refresh token, insufficient scope).
	KindAuthorization ErrorKind = "authorization"

	// KindNotFound: the requested message does not exist remotely.
	KindNotFound ErrorKind = "not_found"

	// KindUpstream: any other provider-reported failure.
	KindUpstream ErrorKind = "upstream"

	// KindInternal: transport faults and anything the provider did not
	// shape as an API error.
	KindInternal ErrorKind = "internal"
)

// APIError is the tagged result of a failed remote call. HTTPStatus is the
// provider's HTTP status (or 500 for non-API failures) and APICode the
// provider-specific error code, both passed through to the dashboard.
type APIError struct {
	Kind       ErrorKind
	HTTPStatus int
	APICode    int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gmail api error (%s): status %d: %s", e.Kind, e.HTTPStatus, e.Message)
}

// TranslateError maps an error from a Gmail API call onto the proxy's error
// taxonomy. Wrapped errors are unwrapped with errors.As, so callers may
// decorate API errors with context before translation. A nil error yields nil.
func TranslateError(err error) *APIError {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		kind := KindUpstream
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			kind = KindAuthorization
		case http.StatusNotFound:
			kind = KindNotFound
		}
		return &APIError{
			Kind:       kind,
			HTTPStatus: gerr.Code,
			APICode:    gerr.Code,
			Message:    gerr.Message,
		}
	}

	return &APIError{
		Kind:       KindInternal,
		HTTPStatus: http.StatusInternalServerError,
		Message:    err.Error(),
	}
}
