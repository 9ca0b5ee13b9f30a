package generate_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/contiq/contiq/generate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() generate.ScriptRequest {
	return generate.ScriptRequest{
		Topic:          "How to grow on short-form video",
		Platform:       "youtube",
		Duration:       "60s",
		TargetAudience: "creators",
		Examples: []generate.Example{
			{Type: "link", URL: "https://example.com/video", Title: "Reference video"},
		},
	}
}

// newTestClient points the client at a local server; the SSRF-safe default
// transport refuses loopback, so tests swap in a plain one.
func newTestClient(t *testing.T, handler http.HandlerFunc) *generate.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := generate.New(server.URL)
	require.NoError(t, err)
	return client.WithHTTPClient(server.Client())
}

func TestNewRequiresWebhookURL(t *testing.T) {
	_, err := generate.New("")
	assert.Error(t, err)

	_, err = generate.New("https://hooks.example.com/generate")
	assert.NoError(t, err)
}

func TestGenerateScriptPostsPayload(t *testing.T) {
	var received map[string]any

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))

		_, _ = w.Write([]byte("INTRO: Hook the viewer in 3 seconds..."))
	})

	script, err := client.GenerateScript(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "INTRO: Hook the viewer in 3 seconds...", script)

	// The webhook keys on these exact field names.
	assert.Equal(t, "How to grow on short-form video", received["scriptTopic"])
	assert.Equal(t, "youtube", received["platform"])
	assert.Equal(t, "60s", received["duration"])
	assert.Equal(t, "creators", received["targetAudience"])
	require.Len(t, received["examples"], 1)
}

func TestGenerateScriptValidatesRequest(t *testing.T) {
	client, err := generate.New("https://hooks.example.com/generate")
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(*generate.ScriptRequest)
		wantErr bool
	}{
		{"valid", func(r *generate.ScriptRequest) {}, false},
		{"missing topic", func(r *generate.ScriptRequest) { r.Topic = "" }, true},
		{"missing platform", func(r *generate.ScriptRequest) { r.Platform = "" }, true},
		{"missing duration", func(r *generate.ScriptRequest) { r.Duration = "" }, true},
		{"missing audience", func(r *generate.ScriptRequest) { r.TargetAudience = "" }, true},
		{"bad example type", func(r *generate.ScriptRequest) { r.Examples[0].Type = "video" }, true},
		{"bad example url", func(r *generate.ScriptRequest) { r.Examples[0].URL = "::not-a-url" }, true},
		{"no examples", func(r *generate.ScriptRequest) { r.Examples = nil }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := validRequest()
			tt.mutate(&request)

			err := request.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	// An invalid request never reaches the wire.
	request := validRequest()
	request.Topic = ""
	_, err = client.GenerateScript(context.Background(), request)
	assert.Error(t, err)
}

func TestGenerateScriptServerFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.GenerateScript(context.Background(), validRequest())
	assert.Error(t, err)
}

func TestGenerateScriptUnreachable(t *testing.T) {
	client, err := generate.New("http://127.0.0.1:1/generate")
	require.NoError(t, err)
	client = client.WithHTTPClient(&http.Client{})

	_, err = client.GenerateScript(context.Background(), validRequest())
	assert.Error(t, err)
}

func TestGenerateScriptHonorsContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GenerateScript(ctx, validRequest())
	assert.Error(t, err)
}
