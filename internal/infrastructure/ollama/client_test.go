package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasrcosta20/IA-Cadastro/internal/domain"
)

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	client, err := NewClient(Config{BaseURL: url, ProbeTimeout: time.Second, PullTimeout: 5 * time.Second})
	require.NoError(t, err)
	return client
}

func testConfig() domain.GenerationConfig {
	cfg := domain.DefaultGenerationConfig()
	cfg.Timeout = 2 * time.Second
	return cfg
}

func closedServerURL() string {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()
	return url
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestNewClient(t *testing.T) {
	client, err := NewClient(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, client.BaseURL())
	assert.Equal(t, DefaultProbeTimeout, client.probeTimeout)
	assert.Equal(t, DefaultPullTimeout, client.pullTimeout)
	assert.NotNil(t, client.rateLimiter)
}

func TestNewClient_InvalidURL(t *testing.T) {
	tests := []string{"://bad", "localhost:11434", "/relative/path"}

	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			_, err := NewClient(Config{BaseURL: raw})
			assert.Error(t, err)
		})
	}
}

func TestIsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		writeJSON(w, http.StatusOK, map[string]any{"models": []any{}})
	}))
	defer server.Close()

	assert.True(t, newTestClient(t, server.URL).IsAvailable(context.Background()))
}

func TestIsAvailable_Failures(t *testing.T) {
	t.Run("error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "boom"})
		}))
		defer server.Close()

		assert.False(t, newTestClient(t, server.URL).IsAvailable(context.Background()))
	})

	t.Run("unreachable", func(t *testing.T) {
		assert.False(t, newTestClient(t, closedServerURL()).IsAvailable(context.Background()))
	})
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"models": []map[string]any{
				{"name": "gemma2:2b", "model": "gemma2:2b"},
				{"name": "tinyllama:latest", "model": "tinyllama:latest"},
				{"name": "llama3:8b", "model": "llama3:8b"},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	models := client.ListModels(context.Background())
	require.Len(t, models, 3)

	installed := map[string]bool{}
	for _, m := range models {
		installed[m.ID] = m.Installed
	}
	assert.True(t, installed["gemma2:2b"])
	assert.False(t, installed["phi3:mini"])
	assert.True(t, installed["tinyllama"])

	names, err := client.InstalledModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gemma2:2b", "tinyllama:latest", "llama3:8b"}, names)
}

func TestListModels_BackendErrorYieldsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "loading"})
	}))
	defer server.Close()

	models := newTestClient(t, server.URL).ListModels(context.Background())
	assert.NotNil(t, models)
	assert.Empty(t, models)
}

func TestGenerate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var body struct {
			Model   string         `json:"model"`
			Prompt  string         `json:"prompt"`
			Stream  *bool          `json:"stream"`
			Options map[string]any `json:"options"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		assert.Equal(t, "gemma2:2b", body.Model)
		assert.Equal(t, "Descreva a Caneca", body.Prompt)
		require.NotNil(t, body.Stream)
		assert.False(t, *body.Stream)
		assert.Equal(t, 0.7, body.Options["temperature"])
		assert.Equal(t, float64(500), body.Options["num_predict"])

		writeJSON(w, http.StatusOK, map[string]any{
			"model":    "gemma2:2b",
			"response": "\n  Caneca de cerâmica azul, perfeita para o café.  \n",
			"done":     true,
		})
	}))
	defer server.Close()

	text, err := newTestClient(t, server.URL).Generate(context.Background(), "Descreva a Caneca", testConfig())

	require.NoError(t, err)
	assert.Equal(t, "Caneca de cerâmica azul, perfeita para o café.", text)
}

func TestGenerate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name: "error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "model 'gemma2:2b' not found"})
			},
			wantErr: domain.ErrBackendStatus,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "out of memory"})
			},
			wantErr: domain.ErrBackendStatus,
		},
		{
			name: "blank response",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{"response": "   ", "done": true})
			},
			wantErr: domain.ErrEmptyResponse,
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			wantErr: domain.ErrBackendTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			cfg := testConfig()
			cfg.Timeout = 100 * time.Millisecond

			text, err := newTestClient(t, server.URL).Generate(context.Background(), "prompt", cfg)

			assert.Empty(t, text)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGenerate_Unreachable(t *testing.T) {
	text, err := newTestClient(t, closedServerURL()).Generate(context.Background(), "prompt", testConfig())

	assert.Empty(t, text)
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
}

func TestChat_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var body struct {
			Model    string               `json:"model"`
			Messages []domain.ChatMessage `json:"messages"`
			Stream   *bool                `json:"stream"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Equal(t, "user", body.Messages[1].Role)
		assert.Equal(t, "Descreva a Caneca", body.Messages[1].Content)
		require.NotNil(t, body.Stream)
		assert.False(t, *body.Stream)

		writeJSON(w, http.StatusOK, map[string]any{
			"model":   "gemma2:2b",
			"message": map[string]string{"role": "assistant", "content": " Caneca azul. "},
			"done":    true,
		})
	}))
	defer server.Close()

	messages := []domain.ChatMessage{
		{Role: "system", Content: "Você é um especialista"},
		{Role: "user", Content: "Descreva a Caneca"},
	}
	text, err := newTestClient(t, server.URL).Chat(context.Background(), messages, testConfig())

	require.NoError(t, err)
	assert.Equal(t, "Caneca azul.", text)
}

func TestChat_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid message"})
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Chat(context.Background(), nil, testConfig())
	assert.ErrorIs(t, err, domain.ErrBackendStatus)
}

func TestPullModel(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "/api/pull", r.URL.Path)

		var body struct {
			Model string `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "phi3:mini", body.Model)

		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"status":"pulling manifest"}`)
		fmt.Fprintln(w, `{"status":"downloading","digest":"sha256:abc","total":200,"completed":100}`)
		fmt.Fprintln(w, `{"status":"verifying sha256 digest"}`)
		fmt.Fprintln(w, `{"status":"success"}`)
	}))
	defer server.Close()

	var events []domain.PullProgress
	ok := newTestClient(t, server.URL).PullModel(context.Background(), "phi3:mini", func(p domain.PullProgress) {
		events = append(events, p)
	})

	assert.True(t, ok)
	assert.Equal(t, int32(1), requests.Load())
	require.Len(t, events, 4)
	assert.Equal(t, "downloading", events[1].Status)
	assert.Equal(t, 50.0, events[1].Percent())
	assert.Equal(t, "success", events[3].Status)
}

func TestPullModel_NoSuccess(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "stream ends early",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintln(w, `{"status":"pulling manifest"}`)
			},
		},
		{
			name: "error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "pull model manifest: file does not exist"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			assert.False(t, newTestClient(t, server.URL).PullModel(context.Background(), "unknown", nil))
		})
	}
}

func TestRateLimiter_ContextCancelled(t *testing.T) {
	client, err := NewClient(Config{BaseURL: DefaultBaseURL, RequestsPerSecond: 0.001})
	require.NoError(t, err)

	// Drain the single token
	require.NoError(t, client.rateLimiter.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.Generate(ctx, "prompt", testConfig())
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}
