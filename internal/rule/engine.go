// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package rule

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kidase/ruleengine/internal/rule/operator"
	"github.com/kidase/ruleengine/pkg/errutil"
)

var tracer = otel.Tracer("ruleengine")

// Engine is the public facade (spec.md §4.8): validation, normalization
// with caching, evaluation, and operator/cache management, all owned by one
// instance per logical evaluation boundary (spec.md §5, §9 "Global state").
type Engine struct {
	operators  *operator.Registry
	normalizer *Normalizer
	validator  *Validator
	evaluator  *Evaluator
	cache      *astCache
	cfg        EngineConfig
	logger     *slog.Logger

	cacheHitsSeen, cacheMissesSeen, cacheEvictSeen uint64
}

// NewEngine builds an Engine with cfg's cache/recursion/script settings. A
// nil logger defaults to slog.Default().
func NewEngine(cfg EngineConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	reg := operator.NewRegistry()
	scripts := newScriptRunner(cfg.ScriptTimeout)
	return &Engine{
		operators:  reg,
		normalizer: NewNormalizer(reg),
		validator:  NewValidator(reg),
		evaluator:  NewEvaluator(reg, scripts, cfg.MaxRecursionDepth),
		cache:      newASTCache(cfg.CacheCapacity, cfg.CacheTTL),
		cfg:        cfg,
		logger:     logger,
	}
}

// Validate runs the Validator over rule without normalizing or caching it.
func (e *Engine) Validate(rule DSLRule) ValidationResult {
	return e.validator.Validate(rule)
}

// Normalize lowers rule into a NormalizedRule, using the AST cache keyed by
// rule.ID (spec.md §4.8).
func (e *Engine) Normalize(ctx context.Context, rule DSLRule) (*NormalizedRule, error) {
	_, span := tracer.Start(ctx, "rule.normalize", trace.WithAttributes(attribute.String("rule.id", rule.ID)))
	defer span.End()

	if cached, ok := e.cache.get(rule.ID); ok {
		e.sampleCacheStats()
		return cached, nil
	}

	nr, err := e.normalizer.Normalize(rule)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	e.cache.set(rule.ID, nr)
	e.sampleCacheStats()
	return nr, nil
}

// EvaluateRule normalizes (cache-assisted) and evaluates rule against ctx.
func (e *Engine) EvaluateRule(ctx context.Context, rule DSLRule, ruleCtx RuleContext) (*EvaluationResult, error) {
	evalID := ulid.Make().String()
	start := time.Now()

	spanCtx, span := tracer.Start(ctx, "rule.evaluate",
		trace.WithAttributes(
			attribute.String("rule.id", rule.ID),
			attribute.String("eval.id", evalID),
		),
	)
	defer span.End()

	e.logger.DebugContext(spanCtx, "evaluating rule", "rule_id", rule.ID, "eval_id", evalID)

	nr, err := e.Normalize(spanCtx, rule)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result, err := e.evaluator.Evaluate(nr, ruleCtx)
	recordEvaluation(time.Since(start), err == nil && result != nil && result.Matched)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Bool("rule.matched", result.Matched))
	return result, nil
}

// EvaluateAll runs every rule against ruleCtx, preserving input order
// (spec.md §5 "Ordering"). A per-rule failure is recorded in that rule's
// outcome under "error" rather than aborting the batch when
// cfg.ContinueOnError is true (the default, per spec.md §7's propagation
// policy); otherwise the first error aborts and is returned.
func (e *Engine) EvaluateAll(ctx context.Context, rules []DSLRule, ruleCtx RuleContext) ([]*EvaluationResult, error) {
	spanCtx, span := tracer.Start(ctx, "rule.evaluate_all", trace.WithAttributes(attribute.Int("rule.count", len(rules))))
	defer span.End()

	results := make([]*EvaluationResult, 0, len(rules))
	for _, rule := range rules {
		result, err := e.EvaluateRule(spanCtx, rule, ruleCtx)
		if err != nil {
			if !e.cfg.ContinueOnError {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return results, err
			}
			errutil.LogError(e.logger, "rule "+rule.ID+" evaluation failed, continuing batch", err)
			result = &EvaluationResult{
				RuleID:  rule.ID,
				Matched: false,
				Outcome: map[string]any{"error": err.Error()},
			}
		}
		results = append(results, result)
	}
	return results, nil
}

// EvaluateMatched is EvaluateAll filtered to matched=true results.
func (e *Engine) EvaluateMatched(ctx context.Context, rules []DSLRule, ruleCtx RuleContext) ([]*EvaluationResult, error) {
	all, err := e.EvaluateAll(ctx, rules, ruleCtx)
	if err != nil {
		return nil, err
	}
	matched := make([]*EvaluationResult, 0, len(all))
	for _, r := range all {
		if r.Matched {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

// InvalidateRule drops id's cached AST, if any.
func (e *Engine) InvalidateRule(id string) {
	e.cache.invalidate(id)
}

// ClearCache empties the AST cache.
func (e *Engine) ClearCache() {
	e.cache.clear()
}

// RegisterOperator installs or overwrites a custom operator, then clears
// the cache — operator semantics changed, so every cached AST's behavior
// is now potentially stale (spec.md §4.8).
func (e *Engine) RegisterOperator(name string, fn operator.Predicate) {
	e.operators.Register(name, fn)
	e.cache.clear()
}

// ResolvePath exposes the reference resolver for host introspection/testing.
func (e *Engine) ResolvePath(ruleCtx RuleContext, path string) (any, bool) {
	return resolvePath(ruleCtx.AsMap(), path)
}

// BuildContextInput is the parameter struct for BuildContext (spec.md §4.8).
type BuildContextInput struct {
	Presentation any
	Slide        any
	Variables    map[string]any
	AppSettings  any
	Extra        map[string]any
	Now          time.Time // zero value uses time.Now()
}

// BuildContext constructs a RuleContext from host values, flattening
// Variables into vars under both the raw "{{NAME}}" key and the
// brace-stripped "NAME" key so rules may reference either form, and
// stamping meta.now/meta.dayOfWeek from the host clock (spec.md §4.8).
func BuildContext(in BuildContextInput) RuleContext {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	vars := make(map[string]any, len(in.Variables)*2)
	for name, val := range in.Variables {
		vars[name] = val
		stripped := strings.TrimSuffix(strings.TrimPrefix(name, "{{"), "}}")
		if stripped != name {
			vars[stripped] = val
		}
	}

	meta := make(map[string]any, len(in.Extra)+2)
	for k, v := range in.Extra {
		meta[k] = v
	}
	meta["now"] = now.UTC().Format(time.RFC3339)
	meta["dayOfWeek"] = weekdayAbbrev(now.Weekday())

	return RuleContext{
		Presentation: in.Presentation,
		Slide:        in.Slide,
		Vars:         vars,
		Settings:     in.AppSettings,
		Meta:         meta,
	}
}

var weekdayAbbrevs = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

func weekdayAbbrev(d time.Weekday) string {
	return weekdayAbbrevs[int(d)]
}

func (e *Engine) sampleCacheStats() {
	e.cache.mu.Lock()
	hits, misses, evictions := e.cache.hits, e.cache.misses, e.cache.evictions
	e.cache.mu.Unlock()
	recordCacheStats(hits, misses, evictions, &e.cacheHitsSeen, &e.cacheMissesSeen, &e.cacheEvictSeen)
}
