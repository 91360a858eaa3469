package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"rates":{"USD":1}}`))
	}))
	defer srv.Close()

	var out struct {
		Rates map[string]float64 `json:"rates"`
	}
	require.NoError(t, GetJSON(context.Background(), srv.Client(), srv.URL, &out))
	assert.Equal(t, 1.0, out.Rates["USD"])
}

func TestGetJSON_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, message: "unexpected status 500"},
		{name: "not found", status: http.StatusNotFound, body: ``, message: "unexpected status 404"},
		{name: "malformed", status: http.StatusOK, body: `{"rates":`, message: "malformed JSON payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			var out map[string]interface{}
			err := GetJSON(context.Background(), srv.Client(), srv.URL, &out)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestHTTPClientFactory_ReusesClientsPerTimeout(t *testing.T) {
	factory := NewHTTPClientFactory(30 * time.Second)
	defer factory.CleanupAllClients()

	a := factory.CreateOptimizedHTTPClient(10 * time.Second)
	b := factory.CreateOptimizedHTTPClient(10 * time.Second)
	c := factory.CreateOptimizedHTTPClient(20 * time.Second)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 10*time.Second, a.Timeout)
}
