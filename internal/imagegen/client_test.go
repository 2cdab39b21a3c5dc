package imagegen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/scienceswipe/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return NewClient(server.URL+"/", 5*time.Second, zerolog.Nop()), &calls
}

func TestEnsureImage_ExistingURLMakesNoRequest(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	})
	paper := &domain.Paper{ID: "p1", ImageURL: "https://img.example.com/p1.png"}

	url, err := client.EnsureImage(context.Background(), domain.SourcePapers, paper)

	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/p1.png", url)
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestEnsureImage_PersistsDefaultPromptThenGenerates(t *testing.T) {
	var steps []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/api/papers/p1/prompt":
			assert.Equal(t, "core", r.URL.Query().Get("source"))
			var body PromptRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Contains(t, body.Prompt, "Tiny Lasers")
			steps = append(steps, "prompt")
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodPost && r.URL.Path == "/api/generate-image":
			var body GenerateRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "p1", body.PaperID)
			assert.Equal(t, "core", body.DatabaseSource)
			assert.Contains(t, body.Prompt, "Tiny Lasers")
			steps = append(steps, "generate")
			_ = json.NewEncoder(w).Encode(GenerateResponse{ImageURL: "https://img.example.com/new.png"})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})
	paper := &domain.Paper{ID: "p1", TitleOrg: "Tiny Lasers"}

	url, err := client.EnsureImage(context.Background(), domain.SourceCore, paper)

	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/new.png", url)
	assert.Equal(t, []string{"prompt", "generate"}, steps)
	assert.Equal(t, url, paper.ImageURL)
	assert.Contains(t, paper.AIImagePrompt, "Tiny Lasers")
}

func TestEnsureImage_StoredPromptIsNotResaved(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate-image", r.URL.Path)
		var body GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a cat in a lab coat", body.Prompt)
		_ = json.NewEncoder(w).Encode(GenerateResponse{ImageURL: "https://img.example.com/cat.png"})
	})
	paper := &domain.Paper{ID: "p2", AIImagePrompt: "a cat in a lab coat"}

	_, err := client.EnsureImage(context.Background(), domain.SourcePapers, paper)

	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestEnsureImage_DemoPaperSkipsPromptSave(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate-image", r.URL.Path)
		_ = json.NewEncoder(w).Encode(GenerateResponse{ImageURL: "https://img.example.com/demo.png"})
	})
	paper := &domain.Paper{ID: "10.1234/demo.1", TitleOrg: "Demo"}

	_, err := client.EnsureImage(context.Background(), domain.SourcePapers, paper)

	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestEnsureImage_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantIs  error
		wantMsg string
	}{
		{
			name: "server error with body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "provider unavailable"})
			},
			wantIs:  domain.ErrServiceUnavailable,
			wantMsg: "provider unavailable",
		},
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			wantIs: domain.ErrRateLimited,
		},
		{
			name: "missing URL",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{}`))
			},
			wantIs:  domain.ErrServiceUnavailable,
			wantMsg: "no image URL",
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`not json`))
			},
			wantMsg: "malformed response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, calls := newTestClient(t, tt.handler)
			paper := &domain.Paper{ID: "p1", AIImagePrompt: "stored"}

			url, err := client.EnsureImage(context.Background(), domain.SourcePapers, paper)

			require.Error(t, err)
			assert.Empty(t, url)
			assert.Empty(t, paper.ImageURL)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
			assert.Equal(t, int32(1), atomic.LoadInt32(calls), "no retry")
		})
	}
}

func TestEnsureImage_PromptSaveFailureStops(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "paper not found"})
	})
	paper := &domain.Paper{ID: "gone", TitleOrg: "Gone"}

	_, err := client.EnsureImage(context.Background(), domain.SourcePapers, paper)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestEnsureImage_Unreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", time.Second, zerolog.Nop())
	paper := &domain.Paper{ID: "p1", AIImagePrompt: "x"}

	_, err := client.EnsureImage(context.Background(), domain.SourcePapers, paper)

	var apiErr *domain.ExternalAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 0, apiErr.StatusCode)
}

func TestEnsureImage_CancelledIsNotAProviderError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	paper := &domain.Paper{ID: "p1", AIImagePrompt: "x"}
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := client.EnsureImage(ctx, domain.SourcePapers, paper)

	assert.ErrorIs(t, err, domain.ErrCancelled)
	var apiErr *domain.ExternalAPIError
	assert.False(t, errors.As(err, &apiErr))
	assert.Empty(t, paper.ImageURL)
}

func TestRegenerate(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate-image/custom", r.URL.Path)
		var body CustomGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "retro poster", body.Prompt)
		assert.Equal(t, "regional", body.DatabaseSource)
		assert.True(t, body.ShouldStorePrompt)
		_ = json.NewEncoder(w).Encode(CustomGenerateResponse{ImageURL: "https://img.example.com/v2.png", Prompt: body.Prompt})
	})
	paper := &domain.Paper{ID: "p1", ImageURL: "https://img.example.com/v1.png"}

	url, err := client.Regenerate(context.Background(), domain.SourceRegional, paper, " retro poster ")

	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/v2.png", url)
	assert.Equal(t, "retro poster", paper.AIImagePrompt)
	assert.Equal(t, url, paper.ImageURL)
}

func TestDefaultPrompt(t *testing.T) {
	assert.Contains(t, DefaultPrompt(&domain.Paper{TitleOrg: "Dark Matter Maps"}), `"Dark Matter Maps"`)
	assert.Contains(t, DefaultPrompt(&domain.Paper{AIHeadline: "Headline only"}), "Headline only")
	assert.NotEmpty(t, DefaultPrompt(&domain.Paper{}))

	long := make([]rune, 1000)
	for i := range long {
		long[i] = 'x'
	}
	assert.Less(t, len(DefaultPrompt(&domain.Paper{TitleOrg: string(long)})), 400)
}
