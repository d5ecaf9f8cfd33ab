package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthz(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	Healthz(nil)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[HealthResponse](t, rec.Result())
	assert.Equal(t, "ok", resp.Status)

	parsed, err := time.Parse(time.RFC3339, resp.Timestamp)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), parsed, time.Minute)
}
