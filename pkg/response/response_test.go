package response

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	pkgerrors "github.com/last9/otelkit/pkg/errors"
)

func TestErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{pkgerrors.InvalidRequest, http.StatusBadRequest},
		{pkgerrors.InvalidID, http.StatusBadRequest},
		{pkgerrors.OrderEmpty, http.StatusBadRequest},
		{pkgerrors.UserNotFound, http.StatusNotFound},
		{pkgerrors.OrderNotFound, http.StatusNotFound},
		{pkgerrors.ProductNotFound, http.StatusNotFound},
		{pkgerrors.UserEmailConflict, http.StatusConflict},
		{pkgerrors.TooManyRequests, http.StatusTooManyRequests},
		{pkgerrors.StorageUnavailable, http.StatusServiceUnavailable},
		{pkgerrors.QueueUnavailable, http.StatusServiceUnavailable},
		{pkgerrors.DBMSetupFailed, http.StatusInternalServerError},
		{errors.New("plain error"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, errorToHTTPStatus(tt.err), "error %v", tt.err)
	}
}
