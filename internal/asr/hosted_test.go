package asr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetscribe/insights/internal/insighterrors"
)

func TestHostedClient_Transcribe(t *testing.T) {
	ctx := context.Background()

	t.Run("sends request and decodes result", func(t *testing.T) {
		var gotReq Request
		var gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/transcriptions", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)
			gotAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

			speaker := 0
			resp := Result{
				Transcript: "hello world",
				Confidence: 0.9,
				Words: []Word{
					{Word: "hello", Start: 0, End: 0.4, Confidence: 0.91, Speaker: &speaker},
					{Word: "world", Start: 0.5, End: 0.9, Confidence: 0.89, Speaker: &speaker},
				},
				Utterances: []Utterance{
					{Transcript: "hello world", Start: 0, End: 0.9, Confidence: 0.9, Speaker: &speaker},
				},
			}
			require.NoError(t, json.NewEncoder(w).Encode(resp))
		}))
		defer server.Close()

		client := NewHostedClient(HostedClientOptions{BaseURL: server.URL, APIKey: "secret"})

		result, err := client.Transcribe(ctx, Request{
			FileURL:    "https://storage.example.com/a.mp3",
			Language:   "en",
			Diarize:    true,
			Vocabulary: []string{"Kubernetes"},
		})

		require.NoError(t, err)
		assert.Equal(t, "hello world", result.Transcript)
		assert.Len(t, result.Words, 2)
		assert.Len(t, result.Utterances, 1)

		assert.Equal(t, "Bearer secret", gotAuth)
		assert.Equal(t, "https://storage.example.com/a.mp3", gotReq.FileURL)
		assert.True(t, gotReq.Diarize)
		assert.Equal(t, []string{"Kubernetes"}, gotReq.Vocabulary)
	})

	t.Run("provider error envelope becomes a provider error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"error":"bad_audio","message":"audio file is corrupt"}`))
		}))
		defer server.Close()

		client := NewHostedClient(HostedClientOptions{BaseURL: server.URL, APIKey: "secret"})

		_, err := client.Transcribe(ctx, Request{FileURL: "https://x/a.mp3"})

		require.Error(t, err)
		assert.ErrorIs(t, err, insighterrors.ErrProvider)
		assert.Contains(t, err.Error(), "audio file is corrupt")
	})

	t.Run("non-envelope error body falls back to status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("nope"))
		}))
		defer server.Close()

		client := NewHostedClient(HostedClientOptions{BaseURL: server.URL, APIKey: "secret"})

		_, err := client.Transcribe(ctx, Request{FileURL: "https://x/a.mp3"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 400")
	})

	t.Run("malformed success body is a provider error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer server.Close()

		client := NewHostedClient(HostedClientOptions{BaseURL: server.URL, APIKey: "secret"})

		_, err := client.Transcribe(ctx, Request{FileURL: "https://x/a.mp3"})

		require.Error(t, err)
		assert.ErrorIs(t, err, insighterrors.ErrProvider)
	})
}
