package service

import (
	"context"
	"strings"

	"legalcheck-backend/models"
	"legalcheck-backend/observability"
	"legalcheck-backend/plugins"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// DefaultLawName is searched when the intent names no specific statute.
const DefaultLawName = "근로기준법"

// ImageDescriber turns an attached image into text.
type ImageDescriber interface {
	Analyze(ctx context.Context, imageBase64 string) string
}

// StatuteFinder looks articles up live with a local fallback.
type StatuteFinder interface {
	Find(ctx context.Context, lawName, keyword string) ([]models.StatuteArticle, bool)
}

// PrecedentFinder returns case summaries or a placeholder finding.
type PrecedentFinder interface {
	Search(ctx context.Context, keywords []string) []models.PrecedentFinding
}

// PluginRunner executes the auxiliary capabilities selected for a turn.
// Any of its capabilities may be nil, in which case it is skipped.
type PluginRunner struct {
	images     ImageDescriber
	statutes   StatuteFinder
	precedents PrecedentFinder
}

// NewPluginRunner creates a runner over the given capabilities.
func NewPluginRunner(images ImageDescriber, statutes StatuteFinder, precedents PrecedentFinder) *PluginRunner {
	return &PluginRunner{images: images, statutes: statutes, precedents: precedents}
}

// PluginInput is what the capabilities may read from a turn.
type PluginInput struct {
	Query       string
	ImageBase64 string
	Intent      models.IntentResult
	Routing     models.RoutingDecision
}

const (
	slotImage = iota
	slotStatutes
	slotPrecedents
	slotCalculator
	slotClarification
	slotCount
)

// Collect runs the selected capabilities concurrently and returns their
// fragments in a fixed order: image, statutes, precedents, calculator,
// clarification. Capabilities absorb their own failures.
func (r *PluginRunner) Collect(ctx context.Context, in PluginInput) []string {
	ctx, span := observability.StartSpan(ctx, "plugins.collect",
		attribute.Bool("law_db", in.Routing.RequiresLawDBSearch),
		attribute.Bool("precedent", in.Routing.RequiresPrecedentSearch),
		attribute.Bool("calculator", in.Routing.RequiresCalculator),
		attribute.Bool("clarification", in.Routing.RequiresClarification),
		attribute.Bool("image", in.ImageBase64 != ""))
	defer span.End()

	slots := make([]string, slotCount)
	var g errgroup.Group

	if in.ImageBase64 != "" && r.images != nil {
		g.Go(func() error {
			slots[slotImage] = plugins.FormatImageAnalysis(r.images.Analyze(ctx, in.ImageBase64))
			return nil
		})
	}
	if in.Routing.RequiresLawDBSearch && r.statutes != nil {
		g.Go(func() error {
			articles, fromLocal := r.statutes.Find(ctx, lawNameFor(in.Intent), firstKeyword(in.Intent))
			slots[slotStatutes] = plugins.FormatStatutes(articles, fromLocal)
			return nil
		})
	}
	if in.Routing.RequiresPrecedentSearch && r.precedents != nil {
		g.Go(func() error {
			slots[slotPrecedents] = plugins.FormatPrecedents(r.precedents.Search(ctx, in.Intent.Keywords))
			return nil
		})
	}
	if in.Routing.RequiresCalculator {
		slots[slotCalculator] = plugins.FormatCalculations(plugins.ExtractWageFacts(in.Query))
	}
	if in.Routing.RequiresClarification {
		slots[slotClarification] = clarificationFragment
	}
	_ = g.Wait()

	out := make([]string, 0, slotCount)
	for _, s := range slots {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func lawNameFor(intent models.IntentResult) string {
	d, _, _ := strings.Cut(intent.LawDomain, ",")
	if d = strings.TrimSpace(d); strings.Contains(d, "법") {
		return d
	}
	return DefaultLawName
}

func firstKeyword(intent models.IntentResult) string {
	if len(intent.Keywords) == 0 {
		return ""
	}
	return intent.Keywords[0]
}
