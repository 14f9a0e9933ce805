// Package anthropic adapts anthropic-sdk-go to the single-prompt requests the
// evaluation pipeline sends, both one at a time and through the Message
// Batches API.
package anthropic

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/jsonl"
	"github.com/rotisserie/eris"
)

// Batch processing states reported by the API.
const (
	StatusInProgress = "in_progress"
	StatusCanceling  = "canceling"
	StatusEnded      = "ended"
)

// Per-item result types in a finished batch.
const (
	ResultSucceeded = "succeeded"
	ResultErrored   = "errored"
	ResultCanceled  = "canceled"
	ResultExpired   = "expired"
)

// Client is the subset of the Anthropic API the generator needs.
type Client interface {
	Send(ctx context.Context, req Request) (*Response, error)
	SubmitBatch(ctx context.Context, items []BatchItem) (*Batch, error)
	GetBatch(ctx context.Context, batchID string) (*Batch, error)
	Results(ctx context.Context, batchID string) (ResultStream, error)
}

// ResultStream yields the per-item results of an ended batch.
type ResultStream interface {
	Next() bool
	Result() Result
	Err() error
	Close() error
}

// Request is one user prompt with optional system blocks.
type Request struct {
	Model       string
	MaxTokens   int64
	System      []SystemBlock
	Prompt      string
	Temperature *float64
}

// SystemBlock is a system prompt segment. A non-empty CacheTTL ("5m" or
// "1h") places a cache breakpoint after it.
type SystemBlock struct {
	Text     string
	CacheTTL string
}

// CachedSystem returns text as a single system block cached for one hour.
func CachedSystem(text string) []SystemBlock {
	return []SystemBlock{{Text: text, CacheTTL: "1h"}}
}

// Usage is the token accounting of one response.
type Usage struct {
	InputTokens      int64
	OutputTokens     int64
	CacheWriteTokens int64
	CacheReadTokens  int64
}

// Response is the text of a completed message.
type Response struct {
	ID         string
	Model      string
	Text       string
	StopReason string
	Usage      Usage
}

// BatchItem pairs a request with the caller's id for it.
type BatchItem struct {
	ID      string
	Request Request
}

// Batch is the state of a submitted batch.
type Batch struct {
	ID         string
	Status     string
	Processing int64
	Succeeded  int64
	Errored    int64
}

// Result is one item of an ended batch. Response is set only when Type is
// ResultSucceeded.
type Result struct {
	ID       string
	Type     string
	Response *Response
}

type sdkClient struct {
	client sdk.Client
}

// NewClient creates a Client backed by the SDK. opts are applied after the
// API key, e.g. option.WithBaseURL in tests.
func NewClient(apiKey string, opts ...option.RequestOption) Client {
	all := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &sdkClient{client: sdk.NewClient(all...)}
}

func (c *sdkClient) Send(ctx context.Context, req Request) (*Response, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages:  userPrompt(req.Prompt),
		System:    systemParams(req.System),
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: send")
	}
	return fromMessage(msg), nil
}

func (c *sdkClient) SubmitBatch(ctx context.Context, items []BatchItem) (*Batch, error) {
	reqs := make([]sdk.MessageBatchNewParamsRequest, 0, len(items))
	for _, it := range items {
		p := sdk.MessageBatchNewParamsRequestParams{
			Model:     sdk.Model(it.Request.Model),
			MaxTokens: it.Request.MaxTokens,
			Messages:  userPrompt(it.Request.Prompt),
			System:    systemParams(it.Request.System),
		}
		if it.Request.Temperature != nil {
			p.Temperature = sdk.Float(*it.Request.Temperature)
		}
		reqs = append(reqs, sdk.MessageBatchNewParamsRequest{CustomID: it.ID, Params: p})
	}

	b, err := c.client.Messages.Batches.New(ctx, sdk.MessageBatchNewParams{Requests: reqs})
	if err != nil {
		return nil, eris.Wrapf(err, "anthropic: submit batch of %d", len(items))
	}
	return fromBatch(b), nil
}

func (c *sdkClient) GetBatch(ctx context.Context, batchID string) (*Batch, error) {
	b, err := c.client.Messages.Batches.Get(ctx, batchID)
	if err != nil {
		return nil, eris.Wrapf(err, "anthropic: get batch %s", batchID)
	}
	return fromBatch(b), nil
}

func (c *sdkClient) Results(ctx context.Context, batchID string) (ResultStream, error) {
	stream := c.client.Messages.Batches.ResultsStreaming(ctx, batchID)
	if err := stream.Err(); err != nil {
		return nil, eris.Wrapf(err, "anthropic: batch results %s", batchID)
	}
	return &sdkResultStream{stream: stream}, nil
}

type sdkResultStream struct {
	stream *jsonl.Stream[sdk.MessageBatchIndividualResponse]
	cur    Result
}

func (s *sdkResultStream) Next() bool {
	if !s.stream.Next() {
		return false
	}
	s.cur = fromIndividual(s.stream.Current())
	return true
}

func (s *sdkResultStream) Result() Result { return s.cur }
func (s *sdkResultStream) Err() error     { return s.stream.Err() }
func (s *sdkResultStream) Close() error   { return s.stream.Close() }

func userPrompt(prompt string) []sdk.MessageParam {
	return []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(prompt))}
}

func systemParams(blocks []SystemBlock) []sdk.TextBlockParam {
	if len(blocks) == 0 {
		return nil
	}
	out := make([]sdk.TextBlockParam, len(blocks))
	for i, b := range blocks {
		out[i] = sdk.TextBlockParam{Text: b.Text}
		if b.CacheTTL != "" {
			cc := sdk.NewCacheControlEphemeralParam()
			cc.TTL = sdk.CacheControlEphemeralTTL(b.CacheTTL)
			out[i].CacheControl = cc
		}
	}
	return out
}

// fromMessage keeps only the text blocks of msg, joined and trimmed.
func fromMessage(msg *sdk.Message) *Response {
	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return &Response{
		ID:         msg.ID,
		Model:      string(msg.Model),
		Text:       strings.TrimSpace(text.String()),
		StopReason: string(msg.StopReason),
		Usage: Usage{
			InputTokens:      msg.Usage.InputTokens,
			OutputTokens:     msg.Usage.OutputTokens,
			CacheWriteTokens: msg.Usage.CacheCreationInputTokens,
			CacheReadTokens:  msg.Usage.CacheReadInputTokens,
		},
	}
}

func fromBatch(b *sdk.MessageBatch) *Batch {
	return &Batch{
		ID:         b.ID,
		Status:     string(b.ProcessingStatus),
		Processing: b.RequestCounts.Processing,
		Succeeded:  b.RequestCounts.Succeeded,
		Errored:    b.RequestCounts.Errored,
	}
}

func fromIndividual(r sdk.MessageBatchIndividualResponse) Result {
	out := Result{ID: r.CustomID, Type: r.Result.Type}
	if r.Result.Type == ResultSucceeded {
		msg := r.Result.Message
		out.Response = fromMessage(&msg)
	}
	return out
}
