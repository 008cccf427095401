package errcode

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	require.Equal(t, http.StatusForbidden, HTTPStatus(ErrUnauthorized))
	require.Equal(t, http.StatusNotFound, HTTPStatus(ErrNotFound))
	require.Equal(t, http.StatusBadRequest, HTTPStatus(ErrInvalidFile))
	require.Equal(t, http.StatusInternalServerError, HTTPStatus(ErrUnknown))
	require.Equal(t, http.StatusInternalServerError, HTTPStatus(42))
}
