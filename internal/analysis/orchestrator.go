package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/attunelabs/attune/internal/engine/compatibility"
	"github.com/attunelabs/attune/internal/engine/risks"
	"github.com/attunelabs/attune/internal/engine/strengths"
	"github.com/attunelabs/attune/internal/profile"
	"github.com/attunelabs/attune/internal/profile/crypto"
	"github.com/attunelabs/attune/internal/storage"
)

var (
	// ErrInsufficientData indicates fewer than two analyzable members.
	ErrInsufficientData = errors.New("analysis requires at least two members")
	// ErrNilStore indicates the orchestrator was built without storage.
	ErrNilStore = errors.New("store is required")
)

// cacheTTL bounds how long a finished result is served without recomputation.
const cacheTTL = time.Hour

// insightTopic is the pubsub topic completed analyses are announced on.
const insightTopic = "analysis.completed"

// CompletionEvent is the payload published after a successful run.
type CompletionEvent struct {
	GroupID     string    `json:"group_id"`
	AnalysisID  string    `json:"analysis_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Confidence  float64   `json:"confidence"`
}

// ProfileFetcher loads sealed member profiles for a group.
type ProfileFetcher interface {
	ListGroupProfiles(ctx context.Context, groupID string) ([]storage.MemberProfileRecord, error)
}

// ResultCache stores finished results keyed by group.
type ResultCache interface {
	Get(key string) ([]byte, bool, error)
	SetWithTTL(key string, value []byte, ttl time.Duration) error
	DeletePattern(prefix string) error
}

// Publisher announces completed analyses to in-process subscribers.
type Publisher interface {
	Publish(topic string, payload []byte)
}

// Synthesizer turns a numeric result into a narrative.
type Synthesizer interface {
	Synthesize(ctx context.Context, result *GroupAnalysisResult) (Narrative, error)
}

// Orchestrator runs the scoring engines concurrently and assembles their
// outputs into one persisted, cached result.
type Orchestrator struct {
	store       storage.InsightStore
	profiles    ProfileFetcher
	decrypter   crypto.Decrypter
	cache       ResultCache
	publisher   Publisher
	synthesizer Synthesizer

	compat *compatibility.Engine
	str    *strengths.Detector
	risk   *risks.Predictor

	clock func() time.Time
	newID func() (string, error)
	logf  func(format string, args ...any)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCache attaches a result cache.
func WithCache(cache ResultCache) Option {
	return func(o *Orchestrator) { o.cache = cache }
}

// WithPublisher attaches a completion publisher.
func WithPublisher(publisher Publisher) Option {
	return func(o *Orchestrator) { o.publisher = publisher }
}

// WithSynthesizer attaches a narrative synthesizer.
func WithSynthesizer(synthesizer Synthesizer) Option {
	return func(o *Orchestrator) { o.synthesizer = synthesizer }
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(o *Orchestrator) { o.clock = clock }
}

// WithIDGenerator overrides the analysis ID source.
func WithIDGenerator(newID func() (string, error)) Option {
	return func(o *Orchestrator) { o.newID = newID }
}

// WithLogger overrides the log sink.
func WithLogger(logf func(format string, args ...any)) Option {
	return func(o *Orchestrator) { o.logf = logf }
}

// New builds an Orchestrator over the given stores.
func New(store storage.InsightStore, profiles ProfileFetcher, decrypter crypto.Decrypter, clock func() time.Time, newID func() (string, error), opts ...Option) (*Orchestrator, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if clock == nil {
		clock = time.Now
	}
	o := &Orchestrator{
		store:     store,
		profiles:  profiles,
		decrypter: decrypter,
		clock:     clock,
		newID:     newID,
		logf:      func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(o)
	}
	o.compat = compatibility.New(o.logf)
	o.str = strengths.New()
	o.risk = risks.New()
	return o, nil
}

// Analyze runs the requested insights for one group and persists the result.
// Individual engine failures and store write failures are contained: the
// failed insight is omitted and the remaining insights are still returned.
// A synthesis failure fails the run.
func (o *Orchestrator) Analyze(ctx context.Context, groupID string, opts Options) (GroupAnalysisResult, error) {
	if o == nil {
		return GroupAnalysisResult{}, ErrNilStore
	}
	if err := ctx.Err(); err != nil {
		return GroupAnalysisResult{}, err
	}

	tracer := otel.Tracer("attune/analysis")
	ctx, span := tracer.Start(ctx, "analysis.Analyze")
	defer span.End()
	span.SetAttributes(attribute.String("group.id", groupID))

	cacheKey := "analysis:" + groupID
	if o.cache != nil && opts.UseCache && !opts.ForceRefresh {
		if cached, ok, err := o.cache.Get(cacheKey); err == nil && ok {
			var result GroupAnalysisResult
			if err := json.Unmarshal(cached, &result); err == nil {
				return result, nil
			}
			o.logf("discarding unreadable cached result for group %s", groupID)
		}
	}

	profiles, err := o.loadProfiles(ctx, groupID)
	if err != nil {
		return GroupAnalysisResult{}, err
	}
	if len(profiles) < 2 {
		return GroupAnalysisResult{}, ErrInsufficientData
	}
	span.SetAttributes(attribute.Int("group.members", len(profiles)))

	started := o.clock()
	analysisID, err := o.newID()
	if err != nil {
		return GroupAnalysisResult{}, fmt.Errorf("generate analysis id: %w", err)
	}

	result := GroupAnalysisResult{
		GroupID:          groupID,
		AnalysisID:       analysisID,
		GeneratedAt:      started.UTC(),
		MemberCount:      len(profiles),
		DataCompleteness: profile.SetCompleteness(profiles),
	}

	o.runEngines(ctx, profiles, opts, &result)

	// Narrative synthesis is strictly sequential: it consumes the numeric
	// insights produced above. A failed synthesis fails the whole run so the
	// job layer retries it; an open circuit is not a failure because the
	// synthesizer serves the fallback narrative instead.
	if opts.IncludeSynthesis && o.synthesizer != nil {
		narrative, err := o.synthesizer.Synthesize(ctx, &result)
		if err != nil {
			return GroupAnalysisResult{}, fmt.Errorf("synthesize narrative: %w", err)
		}
		result.Narrative = &narrative
	}

	result.Meta = Meta{
		ProcessingTime: o.clock().Sub(started),
		AlgorithmVersions: map[string]string{
			"compatibility": AlgorithmVersion,
			"strengths":     AlgorithmVersion,
			"risks":         AlgorithmVersion,
		},
		OverallConfidence: overallConfidence(result),
	}

	// A persistence failure does not invalidate the computed result; the
	// cache write and completion event still happen.
	if err := o.persist(ctx, result, opts); err != nil {
		o.logf("persist failed for group %s: %v", groupID, err)
	}
	if o.cache != nil && opts.UseCache {
		payload, err := json.Marshal(result)
		if err == nil {
			if err := o.cache.SetWithTTL(cacheKey, payload, cacheTTL); err != nil {
				o.logf("cache write failed for group %s: %v", groupID, err)
			}
		}
	}
	if o.publisher != nil {
		event, err := json.Marshal(CompletionEvent{
			GroupID:     groupID,
			AnalysisID:  analysisID,
			GeneratedAt: result.GeneratedAt,
			Confidence:  result.Meta.OverallConfidence,
		})
		if err == nil {
			o.publisher.Publish(insightTopic, event)
		}
	}
	return result, nil
}

// Invalidate drops cached results for a group after its data changes.
func (o *Orchestrator) Invalidate(groupID string) error {
	if o == nil || o.cache == nil {
		return nil
	}
	return o.cache.DeletePattern("analysis:" + groupID)
}

// loadProfiles fetches, decrypts, and normalizes the group's profiles.
// A member whose payload fails decryption is kept as an ID-only profile so the
// rest of the group still gets analyzed.
func (o *Orchestrator) loadProfiles(ctx context.Context, groupID string) ([]profile.MemberProfile, error) {
	records, err := o.profiles.ListGroupProfiles(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list group profiles: %w", err)
	}
	profiles := make([]profile.MemberProfile, 0, len(records))
	for _, record := range records {
		member := profile.MemberProfile{MemberID: record.MemberID}
		plaintext, err := o.decrypter.Decrypt(ctx, record.Ciphertext, record.MemberID, record.GroupID)
		if err != nil {
			o.logf("decrypt failed for member %s in group %s: %v", record.MemberID, groupID, err)
		} else if decoded, err := profile.Decode(plaintext); err != nil {
			o.logf("decode failed for member %s in group %s: %v", record.MemberID, groupID, err)
		} else {
			member = decoded
		}
		normalized, err := member.Normalize()
		if err != nil {
			o.logf("skipping member with invalid id in group %s: %v", groupID, err)
			continue
		}
		profiles = append(profiles, normalized)
	}
	return profiles, nil
}

// runEngines fans the enabled engines out concurrently. Each engine writes
// only its own result slot, and a failed engine leaves its slot nil.
func (o *Orchestrator) runEngines(ctx context.Context, profiles []profile.MemberProfile, opts Options, result *GroupAnalysisResult) {
	group, _ := errgroup.WithContext(ctx)
	if opts.IncludeCompatibility {
		group.Go(func() error {
			compat, err := o.compat.Compute(profiles)
			if err != nil {
				o.logf("compatibility engine failed: %v", err)
				return nil
			}
			result.Compatibility = &compat
			return nil
		})
	}
	if opts.IncludeStrengths {
		group.Go(func() error {
			detected := o.str.Detect(profiles)
			kept := detected[:0]
			for _, s := range detected {
				if s.Confidence >= opts.confidenceThreshold() {
					kept = append(kept, s)
				}
			}
			result.Strengths = kept
			return nil
		})
	}
	if opts.IncludeRisks {
		group.Go(func() error {
			predicted := o.risk.Predict(profiles)
			kept := predicted[:0]
			for _, r := range predicted {
				if r.Probability >= opts.minRiskProbability() {
					kept = append(kept, r)
				}
			}
			result.Risks = kept
			return nil
		})
	}
	if opts.IncludeGoalAlignment {
		group.Go(func() error {
			result.GoalAlignment = computeGoalAlignment(profiles)
			return nil
		})
	}
	// Engine errors are contained above, so this never returns one.
	_ = group.Wait()
}

// persist upserts the result and its decomposed insights in one call.
func (o *Orchestrator) persist(ctx context.Context, result GroupAnalysisResult, opts Options) error {
	records := make([]storage.InsightRecord, 0, 5)
	generatedAt := result.GeneratedAt
	expiresAt := generatedAt.Add(cacheTTL)

	full, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	records = append(records, storage.InsightRecord{
		GroupID:     result.GroupID,
		Type:        storage.InsightFullResult,
		PayloadJSON: string(full),
		Confidence:  result.Meta.OverallConfidence,
		GeneratedAt: generatedAt,
		ExpiresAt:   &expiresAt,
	})
	if result.Compatibility != nil {
		payload, err := json.Marshal(result.Compatibility)
		if err != nil {
			return fmt.Errorf("marshal compatibility: %w", err)
		}
		records = append(records, storage.InsightRecord{
			GroupID:     result.GroupID,
			Type:        storage.InsightCompatibility,
			PayloadJSON: string(payload),
			Confidence:  result.Compatibility.Confidence,
			GeneratedAt: generatedAt,
			ExpiresAt:   &expiresAt,
		})
	}
	if result.Strengths != nil {
		payload, err := json.Marshal(result.Strengths)
		if err != nil {
			return fmt.Errorf("marshal strengths: %w", err)
		}
		records = append(records, storage.InsightRecord{
			GroupID:     result.GroupID,
			Type:        storage.InsightStrengths,
			PayloadJSON: string(payload),
			Confidence:  meanStrengthConfidence(result.Strengths),
			GeneratedAt: generatedAt,
			ExpiresAt:   &expiresAt,
		})
	}
	if result.Risks != nil {
		payload, err := json.Marshal(result.Risks)
		if err != nil {
			return fmt.Errorf("marshal risks: %w", err)
		}
		records = append(records, storage.InsightRecord{
			GroupID:     result.GroupID,
			Type:        storage.InsightRisks,
			PayloadJSON: string(payload),
			Confidence:  result.Meta.OverallConfidence,
			GeneratedAt: generatedAt,
			ExpiresAt:   &expiresAt,
		})
	}
	if result.GoalAlignment != nil {
		payload, err := json.Marshal(result.GoalAlignment)
		if err != nil {
			return fmt.Errorf("marshal goal alignment: %w", err)
		}
		records = append(records, storage.InsightRecord{
			GroupID:     result.GroupID,
			Type:        storage.InsightGoalAlignment,
			PayloadJSON: string(payload),
			Confidence:  result.GoalAlignment.Confidence,
			GeneratedAt: generatedAt,
			ExpiresAt:   &expiresAt,
		})
	}
	if err := o.store.UpsertGroupInsights(ctx, result.GroupID, records); err != nil {
		return fmt.Errorf("persist insights: %w", err)
	}
	return nil
}

// overallConfidence blends data completeness with the mean confidence of the
// insights that were actually produced.
func overallConfidence(result GroupAnalysisResult) float64 {
	total := 0.0
	count := 0
	if result.Compatibility != nil {
		total += result.Compatibility.Confidence
		count++
	}
	if len(result.Strengths) > 0 {
		total += meanStrengthConfidence(result.Strengths)
		count++
	}
	if result.GoalAlignment != nil {
		total += result.GoalAlignment.Confidence
		count++
	}
	if count == 0 {
		return result.DataCompleteness
	}
	return clamp01(result.DataCompleteness * (total / float64(count)))
}

func meanStrengthConfidence(list []strengths.Strength) float64 {
	if len(list) == 0 {
		return 0
	}
	total := 0.0
	for _, s := range list {
		total += s.Confidence
	}
	return total / float64(len(list))
}
