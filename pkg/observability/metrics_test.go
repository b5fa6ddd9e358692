package observability

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()
	require.NotNil(t, m)

	// A second instance must not collide: each carries its own registry.
	assert.NotPanics(t, func() { NewMetrics() })

	m.LoginsTotal.WithLabelValues("success").Inc()
	m.TokenValidationsTotal.WithLabelValues("http", "failure").Inc()
	m.TokenValidationsTotal.WithLabelValues("websocket", "success").Inc()
	m.WebsocketConnectsTotal.WithLabelValues("anonymous").Inc()
	m.LogoutsTotal.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	out := string(body)
	assert.Contains(t, out, `gatekeeper_logins_total{result="success"} 1`)
	assert.Contains(t, out, `gatekeeper_token_validations_total{result="failure",transport="http"} 1`)
	assert.Contains(t, out, `gatekeeper_token_validations_total{result="success",transport="websocket"} 1`)
	assert.Contains(t, out, `gatekeeper_websocket_connects_total{result="anonymous"} 1`)
	assert.Contains(t, out, "gatekeeper_logouts_total 1")
}
