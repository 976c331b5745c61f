package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiwimarket/backend-go/internal/errors"
)

func newAnthropicServer(t *testing.T, handler http.HandlerFunc) anthropicopt.RequestOption {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return anthropicopt.WithBaseURL(server.URL)
}

func TestAnthropicGenerator_Generate(t *testing.T) {
	var got map[string]interface{}
	base := newAnthropicServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "ak-test", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-5-haiku-latest",` +
			`"content":[{"type":"text","text":"7일 이내 환불 가능합니다."}],"stop_reason":"end_turn",` +
			`"usage":{"input_tokens":12,"output_tokens":9}}`))
	})

	g := NewAnthropicGenerator(" ak-test ", DefaultGenerationModel, base)
	text, err := g.Generate(context.Background(), GenerateRequest{Prompt: "환불?", MaxOutputTokens: 300, Temperature: 0.3})

	require.NoError(t, err)
	assert.Equal(t, "7일 이내 환불 가능합니다.", text)
	assert.Equal(t, "claude-3-5-haiku-latest", got["model"])
	assert.EqualValues(t, 300, got["max_tokens"])
	assert.InDelta(t, 0.3, got["temperature"], 1e-6)
}

func TestAnthropicGenerator_Stream(t *testing.T) {
	events := []string{
		`{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-5-haiku-latest","content":[],"usage":{"input_tokens":5,"output_tokens":1}}}`,
		`{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"2-3일"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" 걸립니다."}}`,
		`{"type":"content_block_stop","index":0}`,
		`{"type":"message_stop"}`,
	}
	base := newAnthropicServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, data := range events {
			var head struct {
				Type string `json:"type"`
			}
			_ = json.Unmarshal([]byte(data), &head)
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", head.Type, data)
		}
	})

	g := NewAnthropicGenerator("ak-test", "", base)
	var deltas []string
	err := g.GenerateStream(context.Background(), GenerateRequest{Prompt: "배송?"}, func(s string) error {
		deltas = append(deltas, s)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"2-3일", " 걸립니다."}, deltas)
}

func TestAnthropicGenerator_Failure(t *testing.T) {
	base := newAnthropicServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens too large"}}`))
	})

	g := NewAnthropicGenerator("ak-test", "", base, anthropicopt.WithMaxRetries(0))
	_, err := g.Generate(context.Background(), GenerateRequest{Prompt: "q"})

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeGenerationFailed))
	assert.True(t, g.Ready())
}
