package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/startup-research/internal/config"
	"github.com/sells-group/startup-research/internal/cost"
	"github.com/sells-group/startup-research/internal/model"
	"github.com/sells-group/startup-research/pkg/anthropic"
)

// AnthropicGenerator implements BatchGenerator over the Anthropic Messages
// and Message Batches APIs.
type AnthropicGenerator struct {
	client   anthropic.Client
	cfg      config.AnthropicConfig
	tracker  *cost.Tracker
	waitOpts []anthropic.WaitOption
}

// NewAnthropicGenerator creates a generator. tracker may be nil.
func NewAnthropicGenerator(client anthropic.Client, cfg config.AnthropicConfig, tracker *cost.Tracker) *AnthropicGenerator {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	return &AnthropicGenerator{client: client, cfg: cfg, tracker: tracker}
}

// WithWaitOptions overrides batch polling behavior.
func (g *AnthropicGenerator) WithWaitOptions(opts ...anthropic.WaitOption) *AnthropicGenerator {
	g.waitOpts = opts
	return g
}

// Generate sends a single message and returns its text.
func (g *AnthropicGenerator) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	return g.send(ctx, g.request(prompt, opts, nil))
}

// GenerateBatch runs prompts through the Message Batches API when there are
// more than SmallBatchThreshold of them, otherwise through sequential direct
// calls. Batches hold at most MaxBatchSize items. Items that did not succeed
// in a batch are retried directly.
func (g *AnthropicGenerator) GenerateBatch(ctx context.Context, prompts []string, opts Options) ([]string, error) {
	if len(prompts) == 0 {
		return nil, nil
	}
	if g.cfg.NoBatch || len(prompts) <= g.cfg.SmallBatchThreshold {
		reqs := make([]anthropic.Request, len(prompts))
		for i, p := range prompts {
			reqs[i] = g.request(p, opts, nil)
		}
		out := make([]string, len(prompts))
		if err := g.sendAll(ctx, reqs, out, allIndexes(len(prompts))); err != nil {
			return nil, err
		}
		return out, nil
	}
	return g.generateBatch(ctx, prompts, opts)
}

func (g *AnthropicGenerator) request(prompt string, opts Options, system []anthropic.SystemBlock) anthropic.Request {
	req := anthropic.Request{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Prompt:      prompt,
		Temperature: opts.Temperature,
		System:      system,
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	if req.Temperature == nil {
		req.Temperature = Float(g.cfg.Temperature)
	}
	if req.System == nil && opts.System != "" {
		req.System = []anthropic.SystemBlock{{Text: opts.System}}
	}
	return req
}

func (g *AnthropicGenerator) send(ctx context.Context, req anthropic.Request) (string, error) {
	resp, err := g.client.Send(ctx, req)
	if err != nil {
		return "", eris.Wrap(err, "llm: anthropic generate")
	}
	g.record(false, resp)
	return strings.TrimSpace(resp.Text), nil
}

// sendAll sends reqs[i] for every i in idx, in order, and stores the text in
// out[i].
func (g *AnthropicGenerator) sendAll(ctx context.Context, reqs []anthropic.Request, out []string, idx []int) error {
	for _, i := range idx {
		text, err := g.send(ctx, reqs[i])
		if err != nil {
			return eris.Wrapf(err, "llm: direct item %d", i)
		}
		out[i] = text
	}
	return nil
}

func (g *AnthropicGenerator) generateBatch(ctx context.Context, prompts []string, opts Options) ([]string, error) {
	var system []anthropic.SystemBlock
	if opts.System != "" {
		system = anthropic.CachedSystem(opts.System)
		// Warm the prompt cache so batch items read the shared system prompt.
		if _, err := g.send(ctx, g.request(prompts[0], Options{MaxTokens: 1, System: opts.System}, system)); err != nil {
			zap.L().Warn("llm: cache primer failed, continuing without warm cache", zap.Error(err))
		}
	}

	reqs := make([]anthropic.Request, len(prompts))
	items := make([]anthropic.BatchItem, len(prompts))
	for i, p := range prompts {
		reqs[i] = g.request(p, opts, system)
		items[i] = anthropic.BatchItem{ID: batchID(i), Request: reqs[i]}
	}

	size := g.cfg.MaxBatchSize
	if size <= 0 {
		size = len(items)
	}
	out := make([]string, len(prompts))
	var missing []int
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		succeeded, err := g.runBatch(ctx, items[start:end])
		if err != nil {
			return nil, err
		}
		for i := start; i < end; i++ {
			resp, ok := succeeded[batchID(i)]
			if !ok {
				missing = append(missing, i)
				continue
			}
			g.record(true, resp)
			out[i] = strings.TrimSpace(resp.Text)
		}
	}
	if len(missing) > 0 {
		zap.L().Warn("llm: retrying missing batch items directly", zap.Int("count", len(missing)))
		if err := g.sendAll(ctx, reqs, out, missing); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// runBatch submits one batch, waits for it to end and returns the
// succeeded responses by item ID.
func (g *AnthropicGenerator) runBatch(ctx context.Context, items []anthropic.BatchItem) (map[string]*anthropic.Response, error) {
	batch, err := g.client.SubmitBatch(ctx, items)
	if err != nil {
		return nil, eris.Wrap(err, "llm: create batch")
	}
	zap.L().Info("llm: batch submitted", zap.String("batch_id", batch.ID), zap.Int("items", len(items)))

	if _, err := anthropic.WaitForBatch(ctx, g.client, batch.ID, g.waitOpts...); err != nil {
		return nil, eris.Wrap(err, "llm: wait for batch")
	}
	stream, err := g.client.Results(ctx, batch.ID)
	if err != nil {
		return nil, eris.Wrap(err, "llm: batch results")
	}
	succeeded, _, err := anthropic.Drain(stream)
	if err != nil {
		return nil, eris.Wrap(err, "llm: batch results")
	}
	return succeeded, nil
}

func (g *AnthropicGenerator) record(isBatch bool, resp *anthropic.Response) {
	if g.tracker == nil || resp == nil {
		return
	}
	g.tracker.RecordClaude(g.cfg.Model, isBatch, model.TokenUsage{
		InputTokens:         int(resp.Usage.InputTokens),
		OutputTokens:        int(resp.Usage.OutputTokens),
		CacheCreationTokens: int(resp.Usage.CacheWriteTokens),
		CacheReadTokens:     int(resp.Usage.CacheReadTokens),
	})
}

func allIndexes(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func batchID(i int) string { return fmt.Sprintf("item-%d", i) }
