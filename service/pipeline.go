package service

import (
	"context"
	"fmt"
	"strings"

	"legalcheck-backend/logger"
	"legalcheck-backend/models"

	"golang.org/x/sync/errgroup"
)

// Pipeline runs one conversational fact-checking turn. It holds no per-turn
// state and is shared by all requests.
type Pipeline struct {
	intent       *IntentAnalyzer
	router       *ToolRouter
	retriever    *HistoryAwareRetriever
	plugins      *PluginRunner
	compressor   *ContextCompressor
	generator    *StructuredGenerator
	validator    *OutputValidator
	explanations *ExplanationCache
	log          *logger.Logger
}

// PipelineOption is a functional option for Pipeline
type PipelineOption func(*Pipeline)

// PipelineWithIntentAnalyzer sets the intent analyzer
func PipelineWithIntentAnalyzer(a *IntentAnalyzer) PipelineOption {
	return func(p *Pipeline) {
		p.intent = a
	}
}

// PipelineWithToolRouter sets the tool router
func PipelineWithToolRouter(r *ToolRouter) PipelineOption {
	return func(p *Pipeline) {
		p.router = r
	}
}

// PipelineWithRetriever sets the history-aware retriever
func PipelineWithRetriever(r *HistoryAwareRetriever) PipelineOption {
	return func(p *Pipeline) {
		p.retriever = r
	}
}

// PipelineWithPlugins sets the auxiliary capability runner
func PipelineWithPlugins(r *PluginRunner) PipelineOption {
	return func(p *Pipeline) {
		p.plugins = r
	}
}

// PipelineWithCompressor sets the context compressor
func PipelineWithCompressor(c *ContextCompressor) PipelineOption {
	return func(p *Pipeline) {
		p.compressor = c
	}
}

// PipelineWithGenerator sets the structured generator
func PipelineWithGenerator(g *StructuredGenerator) PipelineOption {
	return func(p *Pipeline) {
		p.generator = g
	}
}

// PipelineWithValidator sets the output validator
func PipelineWithValidator(v *OutputValidator) PipelineOption {
	return func(p *Pipeline) {
		p.validator = v
	}
}

// PipelineWithExplanationCache sets the explanation cache coordinator
func PipelineWithExplanationCache(c *ExplanationCache) PipelineOption {
	return func(p *Pipeline) {
		p.explanations = c
	}
}

// PipelineWithLogger sets the logger
func PipelineWithLogger(log *logger.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.log = log
	}
}

// NewPipeline creates a pipeline. Plugins and the explanation cache are
// optional; every other stage must be set.
func NewPipeline(opts ...PipelineOption) (*Pipeline, error) {
	p := &Pipeline{log: logger.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	switch {
	case p.intent == nil:
		return nil, fmt.Errorf("pipeline: intent analyzer not set")
	case p.router == nil:
		return nil, fmt.Errorf("pipeline: tool router not set")
	case p.retriever == nil:
		return nil, fmt.Errorf("pipeline: retriever not set")
	case p.compressor == nil:
		return nil, fmt.Errorf("pipeline: compressor not set")
	case p.generator == nil:
		return nil, fmt.Errorf("pipeline: generator not set")
	case p.validator == nil:
		return nil, fmt.Errorf("pipeline: validator not set")
	}
	if p.plugins == nil {
		p.plugins = NewPluginRunner(nil, nil, nil)
	}
	return p, nil
}

// TurnInput is the normalized request for one turn.
type TurnInput struct {
	Query       string
	History     []models.HistoryMessage
	ImageBase64 string
}

// TurnResult is the normalized outcome of one turn.
type TurnResult struct {
	Verdict         models.VerdictResult          `json:"verdict_result"`
	SourceLabels    []string                      `json:"retrieved_source_labels"`
	RevisionIDs     []*int64                      `json:"revision_ids"`
	Intent          models.IntentResult           `json:"intent_result"`
	Routing         models.RoutingDecision        `json:"routing_decision"`
	StandaloneQuery string                        `json:"standalone_query"`
	Explanation     *models.ExplanationCacheEntry `json:"explanation,omitempty"`
}

// LinkedRevisionIDs returns the distinct known revision ids in retrieval
// order.
func (r *TurnResult) LinkedRevisionIDs() []int64 {
	var out []int64
	seen := map[int64]bool{}
	for _, id := range r.RevisionIDs {
		if id == nil || seen[*id] {
			continue
		}
		seen[*id] = true
		out = append(out, *id)
	}
	return out
}

// Run executes the turn. ErrIndexUninitialized is the only error returned;
// every other stage failure is absorbed into that stage's fallback value.
func (p *Pipeline) Run(ctx context.Context, in TurnInput) (*TurnResult, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, ErrEmptyQuery
	}

	intent := p.intent.Analyze(ctx, in.Query)
	routing := p.router.Decide(ctx, intent)

	var (
		fragments []string
		retrieval *Retrieval
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fragments = p.plugins.Collect(gctx, PluginInput{
			Query:       in.Query,
			ImageBase64: in.ImageBase64,
			Intent:      intent,
			Routing:     routing,
		})
		return nil
	})
	g.Go(func() error {
		var err error
		retrieval, err = p.retriever.Retrieve(gctx, in.Query, in.History, intent.Keywords...)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &TurnResult{
		Intent:          intent,
		Routing:         routing,
		StandaloneQuery: retrieval.StandaloneQuery,
		SourceLabels:    make([]string, 0, len(retrieval.Passages)),
		RevisionIDs:     make([]*int64, 0, len(retrieval.Passages)),
	}
	for _, ps := range retrieval.Passages {
		res.SourceLabels = append(res.SourceLabels, ps.SourceLabel)
		res.RevisionIDs = append(res.RevisionIDs, ps.RevisionID)
	}

	fragments = append(fragments, p.cachedExplanations(ctx, retrieval.Passages)...)
	digest := p.compressor.Compress(ctx, retrieval.StandaloneQuery, retrieval.Passages, fragments)
	draft := p.generator.Generate(ctx, in.Query, digest, in.History)
	res.Verdict = p.validator.Validate(ctx, draft)

	if ids := res.LinkedRevisionIDs(); p.explanations != nil && len(ids) > 0 && res.Verdict.Verdict != models.VerdictError {
		entry, err := p.explanations.GetOrCreate(ctx, ids[0], models.ExplanationFromVerdict(res.Verdict))
		if err != nil {
			p.log.Warn("explanation cache update failed", "stage", "explanations", "revision_id", ids[0], "error", err)
		} else {
			res.Explanation = entry
		}
	}
	return res, nil
}

// cachedExplanations renders explanations already cached for the retrieved
// revisions.
func (p *Pipeline) cachedExplanations(ctx context.Context, passages []models.RetrievedPassage) []string {
	if p.explanations == nil {
		return nil
	}
	var out []string
	seen := map[int64]bool{}
	for _, ps := range passages {
		if ps.RevisionID == nil || seen[*ps.RevisionID] {
			continue
		}
		seen[*ps.RevisionID] = true
		entry, err := p.explanations.Lookup(ctx, *ps.RevisionID)
		if err != nil {
			p.log.Warn("explanation lookup failed", "stage", "explanations", "revision_id", *ps.RevisionID, "error", err)
			continue
		}
		if entry == nil {
			continue
		}
		out = append(out, formatExplanation(ps.SourceLabel, entry))
	}
	return out
}

func formatExplanation(label string, e *models.ExplanationCacheEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[기존 설명 (출처: %s)]", label)
	if e.PlainSummary != "" {
		b.WriteString("\n- 요약: " + e.PlainSummary)
	}
	if e.ExampleCase != "" {
		b.WriteString("\n- 사례: " + e.ExampleCase)
	}
	if e.CautionNote != "" {
		b.WriteString("\n- 주의: " + e.CautionNote)
	}
	return b.String()
}
