package summarizer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	billingerrors "github.com/codeabuu/simplifydocs/internal/domain/errors"
)

func TestSummarize(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  short summary \n"}}]}`))
	}))
	defer server.Close()

	s := NewOpenAISummarizer(Config{APIKey: "k", BaseURL: server.URL + "/v1", Model: "test-model"}, zap.NewNop())
	out, err := s.Summarize(context.Background(), "long text", "Provide a simple and concise summary of this document.")
	require.NoError(t, err)
	assert.Equal(t, "short summary", out)

	assert.Equal(t, "test-model", captured["model"])
	messages := captured["messages"].([]interface{})
	require.Len(t, messages, 2)
	system := messages[0].(map[string]interface{})
	user := messages[1].(map[string]interface{})
	assert.Equal(t, "You are a helpful assistant that summarizes: ", system["content"])
	assert.Equal(t, "Provide a simple and concise summary of this document.\nlong text", user["content"])
}

func TestSummarizeUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer server.Close()

	s := NewOpenAISummarizer(Config{APIKey: "k", BaseURL: server.URL + "/v1"}, zap.NewNop())
	_, err := s.Answer(context.Background(), "text", "why?")
	assert.True(t, billingerrors.IsProviderUnavailable(err))
}
