package gmail

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantKind   ErrorKind
		wantStatus int
	}{
		{
			name:       "unauthorized maps to authorization",
			err:        &googleapi.Error{Code: http.StatusUnauthorized, Message: "invalid credentials"},
			wantKind:   KindAuthorization,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "forbidden maps to authorization",
			err:        &googleapi.Error{Code: http.StatusForbidden, Message: "insufficient scope"},
			wantKind:   KindAuthorization,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "not found maps to not_found",
			err:        &googleapi.Error{Code: http.StatusNotFound, Message: "Requested entity was not found."},
			wantKind:   KindNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "rate limit maps to upstream",
			err:        &googleapi.Error{Code: http.StatusTooManyRequests, Message: "rate limit exceeded"},
			wantKind:   KindUpstream,
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:       "wrapped api error is unwrapped",
			err:        fmt.Errorf("failed to get message abc: %w", &googleapi.Error{Code: http.StatusNotFound, Message: "gone"}),
			wantKind:   KindNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "plain error maps to internal",
			err:        errors.New("connection refused"),
			wantKind:   KindInternal,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := TranslateError(tt.err)
			assert.Equal(t, tt.wantKind, apiErr.Kind)
			assert.Equal(t, tt.wantStatus, apiErr.HTTPStatus)
			assert.NotEmpty(t, apiErr.Message)
			assert.NotEmpty(t, apiErr.Error())
		})
	}
}

func TestTranslateErrorAPICodeMatchesStatus(t *testing.T) {
	apiErr := TranslateError(&googleapi.Error{Code: http.StatusNotFound, Message: "gone"})
	assert.Equal(t, apiErr.HTTPStatus, apiErr.APICode)
}

func TestTranslateErrorNil(t *testing.T) {
	assert.Nil(t, TranslateError(nil))
}
