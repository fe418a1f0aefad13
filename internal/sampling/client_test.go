package sampling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annoflow/annoflow/internal/config"
)

func TestClientEvaluate(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/evaluate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(Result{
			QualityScore: 0.92,
			ErrorRate:    0.04,
			Confidence:   0.95,
		})
	}))
	defer srv.Close()

	client := NewClient(&config.SamplingEnv{BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NotNil(t, client)

	result, err := client.Evaluate(context.Background(), DefaultRequest("task-1", 200))
	require.NoError(t, err)
	assert.Equal(t, 0.92, result.QualityScore)
	assert.Equal(t, 0.04, result.ErrorRate)

	assert.Equal(t, "task-1", got.TaskID)
	assert.Equal(t, 200, got.ItemCount)
	assert.Equal(t, MethodRandom, got.Method)
	assert.Equal(t, 0.1, got.Rate)
}

func TestClientEvaluateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "sampler overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(&config.SamplingEnv{BaseURL: srv.URL, Timeout: 5 * time.Second})
	_, err := client.Evaluate(context.Background(), DefaultRequest("task-1", 10))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestNewClientDisabled(t *testing.T) {
	assert.Nil(t, NewClient(nil))
	assert.Nil(t, NewClient(&config.SamplingEnv{}))
}
