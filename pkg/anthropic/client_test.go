package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient("test-key", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
}

func messageJSON(id, text string) map[string]any {
	return map[string]any{
		"id":   id,
		"type": "message",
		"role": "assistant",
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
		"model":       "claude-haiku-4-5-20251001",
		"stop_reason": "end_turn",
		"usage": map[string]any{
			"input_tokens":                120,
			"output_tokens":               30,
			"cache_creation_input_tokens": 4000,
			"cache_read_input_tokens":     0,
		},
	}
}

func batchJSON(id, status string, processing int) map[string]any {
	return map[string]any{
		"id":                id,
		"type":              "message_batch",
		"processing_status": status,
		"request_counts": map[string]any{
			"processing": processing,
			"succeeded":  0,
			"errored":    0,
			"canceled":   0,
			"expired":    0,
		},
	}
}

func TestSend(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/messages"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(messageJSON("msg_1", "  기술력 요약입니다. \n"))
	})

	temp := 0.2
	resp, err := c.Send(context.Background(), Request{
		Model:       "claude-haiku-4-5-20251001",
		MaxTokens:   256,
		System:      CachedSystem("당신은 기술 분석가입니다."),
		Prompt:      "업스테이지 기술력을 요약하세요.",
		Temperature: &temp,
	})
	require.NoError(t, err)
	assert.Equal(t, "msg_1", resp.ID)
	assert.Equal(t, "기술력 요약입니다.", resp.Text)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, int64(120), resp.Usage.InputTokens)
	assert.Equal(t, int64(4000), resp.Usage.CacheWriteTokens)

	assert.Equal(t, 0.2, body["temperature"])
	sys := body["system"].([]any)
	require.Len(t, sys, 1)
	block := sys[0].(map[string]any)
	assert.Equal(t, "당신은 기술 분석가입니다.", block["text"])
	cc := block["cache_control"].(map[string]any)
	assert.Equal(t, "ephemeral", cc["type"])
	assert.Equal(t, "1h", cc["ttl"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
}

func TestSend_NoSystemNoTemperature(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(messageJSON("msg_2", "PASS"))
	})

	resp, err := c.Send(context.Background(), Request{Model: "m", MaxTokens: 10, Prompt: "평가"})
	require.NoError(t, err)
	assert.Equal(t, "PASS", resp.Text)
	assert.NotContains(t, body, "system")
	assert.NotContains(t, body, "temperature")
}

func TestSend_Error(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":  "error",
			"error": map[string]any{"type": "invalid_request_error", "message": "max_tokens too large"},
		})
	})

	_, err := c.Send(context.Background(), Request{Model: "m", MaxTokens: 1, Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic: send")
}

func TestSubmitBatch(t *testing.T) {
	var body struct {
		Requests []struct {
			CustomID string         `json:"custom_id"`
			Params   map[string]any `json:"params"`
		} `json:"requests"`
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/messages/batches"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(batchJSON("msgbatch_1", StatusInProgress, 2))
	})

	b, err := c.SubmitBatch(context.Background(), []BatchItem{
		{ID: "item-0", Request: Request{Model: "m", MaxTokens: 512, Prompt: "보고서 1"}},
		{ID: "item-1", Request: Request{Model: "m", MaxTokens: 512, Prompt: "보고서 2", System: []SystemBlock{{Text: "압축"}}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "msgbatch_1", b.ID)
	assert.Equal(t, StatusInProgress, b.Status)
	assert.Equal(t, int64(2), b.Processing)

	require.Len(t, body.Requests, 2)
	assert.Equal(t, "item-0", body.Requests[0].CustomID)
	assert.NotContains(t, body.Requests[0].Params, "system")
	sys := body.Requests[1].Params["system"].([]any)
	assert.NotContains(t, sys[0].(map[string]any), "cache_control")
}

func TestGetBatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/messages/batches/msgbatch_2"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(batchJSON("msgbatch_2", StatusEnded, 0))
	})

	b, err := c.GetBatch(context.Background(), "msgbatch_2")
	require.NoError(t, err)
	assert.Equal(t, StatusEnded, b.Status)
}

func TestResults(t *testing.T) {
	line := func(id, typ string, msg map[string]any) string {
		res := map[string]any{"type": typ}
		if msg != nil {
			res["message"] = msg
		}
		raw, _ := json.Marshal(map[string]any{"custom_id": id, "result": res})
		return string(raw) + "\n"
	}
	payload := line("item-0", ResultSucceeded, messageJSON("msg_a", "요약 A")) +
		line("item-1", ResultExpired, nil)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "msgbatch_3")
		w.Header().Set("Content-Type", "application/x-jsonl")
		_, _ = w.Write([]byte(payload))
	})

	stream, err := c.Results(context.Background(), "msgbatch_3")
	require.NoError(t, err)
	ok, failed, err := Drain(stream)
	require.NoError(t, err)
	require.Len(t, ok, 1)
	assert.Equal(t, "요약 A", ok["item-0"].Text)
	require.Len(t, failed, 1)
	assert.Equal(t, "item-1", failed[0].ID)
	assert.Equal(t, ResultExpired, failed[0].Type)
	assert.Nil(t, failed[0].Response)
}
