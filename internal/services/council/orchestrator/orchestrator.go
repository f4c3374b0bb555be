// Package orchestrator runs the three-stage deliberation pipeline: concurrent
// independent answers, anonymized peer ranking, and chairman synthesis.
//
// Stages are hard barriers. Stage 2 never starts before every stage-1 call
// has settled, and stage 3 never starts before every ranking call has
// settled. A failed member is dropped from the rest of the round; the round
// itself fails only when no member survives stage 1 or when the chairman's
// synthesis fails.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/louisbranch/council.space/internal/services/council/domain"
	"github.com/louisbranch/council.space/internal/services/council/provider"
	"github.com/louisbranch/council.space/internal/services/council/ranking"
	"github.com/louisbranch/council.space/internal/services/council/retry"
)

var (
	// ErrAllMembersFailed indicates no council member produced a stage-1 answer.
	ErrAllMembersFailed = errors.New("every council member failed to answer")
	// ErrSynthesisFailed indicates the chairman could not produce a final answer.
	ErrSynthesisFailed = errors.New("chairman synthesis failed")
)

// ClientResolver resolves a provider family to a completion client.
// *provider.Registry satisfies it.
type ClientResolver interface {
	Client(id provider.ID) (provider.Client, error)
}

// Orchestrator runs deliberation rounds for a fixed roster. It is stateless
// between rounds and safe for concurrent use.
type Orchestrator struct {
	resolver     ClientResolver
	roster       domain.Roster
	deliberation retry.Policy
	auxiliary    retry.Policy
	tracer       trace.Tracer
}

// New creates an orchestrator with the default resilience policies.
func New(resolver ClientResolver, roster domain.Roster) *Orchestrator {
	return &Orchestrator{
		resolver:     resolver,
		roster:       roster,
		deliberation: retry.DeliberationPolicy(),
		auxiliary:    retry.AuxiliaryPolicy(),
		tracer:       otel.Tracer("council/orchestrator"),
	}
}

// SetPolicies overrides the retry policies. Intended for tests.
func (o *Orchestrator) SetPolicies(deliberation, auxiliary retry.Policy) {
	o.deliberation = deliberation
	o.auxiliary = auxiliary
}

// Deliberate runs one full round over the conversation history plus the new
// user prompt, emitting ordered progress events to sink as each stage starts
// and settles. On a terminal failure it emits one error event and stops; no
// events follow it.
func (o *Orchestrator) Deliberate(ctx context.Context, history []provider.Message, prompt string, sink Sink) (domain.RoundResult, error) {
	ctx, span := o.tracer.Start(ctx, "council.deliberate", trace.WithAttributes(
		attribute.Int("council.members", len(o.roster.Council)),
	))
	defer span.End()

	s := newSession(prompt, sink)

	s.emit(stageStart(EventStage1Start))
	if err := o.collectAnswers(ctx, s, history); err != nil {
		s.emit(errorEvent(domain.StageResponses, err, retry.Retryable(err)))
		return domain.RoundResult{}, err
	}
	span.SetAttributes(attribute.Int("council.survivors", len(s.members)))
	s.emit(stageComplete(EventStage1Complete, s.answers, nil))

	s.emit(stageStart(EventStage2Start))
	submissions := o.collectRankings(ctx, s)
	aggregate := ranking.Aggregate(submissions, s.labels, s.labelToMember)
	s.emit(stageComplete(EventStage2Complete, submissions, map[string]any{
		"label_to_model":     s.labelToMember,
		"aggregate_rankings": aggregate,
	}))

	s.emit(stageStart(EventStage3Start))
	synthesis, err := o.synthesize(ctx, s, submissions)
	if err != nil {
		s.emit(errorEvent(domain.StageSynthesis, err, retry.Retryable(err)))
		return domain.RoundResult{}, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	s.emit(stageComplete(EventStage3Complete, synthesis, nil))

	return domain.RoundResult{
		Stage1:    s.answers,
		Stage2:    submissions,
		Stage3:    synthesis,
		Metadata:  s.metadata(aggregate),
		Completed: time.Now().UTC(),
	}, nil
}

// collectAnswers fans out the stage-1 prompt to every council member and
// waits for all calls to settle. Individual failures drop the member from
// the round; only a clean sweep of failures is an error.
func (o *Orchestrator) collectAnswers(ctx context.Context, s *session, history []provider.Message) error {
	ctx, span := o.tracer.Start(ctx, "council.stage1")
	defer span.End()

	messages := stage1Messages(history, s.prompt)

	responses := make([]string, len(o.roster.Council))
	failures := make([]error, len(o.roster.Council))

	var group errgroup.Group
	for i, member := range o.roster.Council {
		group.Go(func() error {
			response, err := o.complete(ctx, member, messages, o.deliberation)
			if err != nil {
				log.Printf("stage1: %s failed: %v", member.ModelID, err)
				failures[i] = err
				return nil
			}
			responses[i] = response
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	for i, member := range o.roster.Council {
		s.settle(member, responses[i], failures[i])
	}
	if len(s.members) == 0 {
		// The member failures stay wrapped; their retryable
		// classification must survive into the error chain.
		return fmt.Errorf("%w: %w", ErrAllMembersFailed, errors.Join(failures...))
	}

	s.assignLabels()
	return nil
}

// collectRankings fans the anonymized ranking prompt out to every surviving
// member and parses each reply. Failed ranking calls and unparseable replies
// never fail the stage: the former are skipped, the latter are kept raw and
// excluded from aggregation.
func (o *Orchestrator) collectRankings(ctx context.Context, s *session) []domain.RankingSubmission {
	ctx, span := o.tracer.Start(ctx, "council.stage2")
	defer span.End()

	prompt := rankingPrompt(s)
	messages := []provider.Message{{Role: provider.RoleUser, Content: prompt}}

	results := make([]*domain.RankingSubmission, len(s.members))

	var group errgroup.Group
	for i, member := range s.members {
		group.Go(func() error {
			raw, err := o.complete(ctx, member, messages, o.deliberation)
			if err != nil {
				log.Printf("stage2: %s failed: %v", member.ModelID, err)
				return nil
			}
			parsed := ranking.Parse(raw, s.labels)
			if parsed == nil {
				log.Printf("stage2: %s ranking did not parse, keeping raw text", member.ModelID)
			}
			results[i] = &domain.RankingSubmission{
				Member: member.ModelID,
				Raw:    raw,
				Labels: parsed,
			}
			return nil
		})
	}
	// Fan-out closures never return errors.
	_ = group.Wait()

	submissions := make([]domain.RankingSubmission, 0, len(results))
	for _, result := range results {
		if result != nil {
			submissions = append(submissions, *result)
		}
	}
	return submissions
}

// synthesize runs the chairman's stage-3 call. Chairman failure fails the
// round; there is no deliverable without a final answer.
func (o *Orchestrator) synthesize(ctx context.Context, s *session, submissions []domain.RankingSubmission) (domain.Synthesis, error) {
	ctx, span := o.tracer.Start(ctx, "council.stage3", trace.WithAttributes(
		attribute.String("council.chairman", o.roster.Chairman.ModelID),
	))
	defer span.End()

	messages := []provider.Message{{Role: provider.RoleUser, Content: synthesisPrompt(s, submissions)}}
	response, err := o.complete(ctx, o.roster.Chairman, messages, o.deliberation)
	if err != nil {
		return domain.Synthesis{}, err
	}
	return domain.Synthesis{Member: o.roster.Chairman.ModelID, Response: response}, nil
}

// maxTitleLength caps generated conversation titles.
const maxTitleLength = 80

// GenerateTitle produces a short conversation title from the opening message
// using the research model when configured, the chairman otherwise. It runs
// under the short auxiliary budget; callers treat failure as non-critical.
func (o *Orchestrator) GenerateTitle(ctx context.Context, firstMessage string) (string, error) {
	ctx, span := o.tracer.Start(ctx, "council.title")
	defer span.End()

	member := o.roster.Chairman
	if o.roster.Research != nil {
		member = *o.roster.Research
	}

	messages := []provider.Message{{Role: provider.RoleUser, Content: titlePrompt(firstMessage)}}
	response, err := o.complete(ctx, member, messages, o.auxiliary)
	if err != nil {
		return "", err
	}

	title := cleanTitle(response)
	if title == "" {
		return "", fmt.Errorf("%s returned an empty title", member.ModelID)
	}
	return title, nil
}

// cleanTitle collapses a model's reply to a single trimmed line without
// surrounding quotes.
func cleanTitle(response string) string {
	title, _, _ := strings.Cut(strings.TrimSpace(response), "\n")
	title = strings.Trim(strings.TrimSpace(title), `"'`)
	if runes := []rune(title); len(runes) > maxTitleLength {
		title = string(runes[:maxTitleLength])
		if i := strings.LastIndex(title, " "); i > 0 {
			title = title[:i]
		}
	}
	return strings.TrimSpace(title)
}

func (o *Orchestrator) complete(ctx context.Context, member domain.Member, messages []provider.Message, policy retry.Policy) (string, error) {
	client, err := o.resolver.Client(member.Provider)
	if err != nil {
		return "", err
	}

	response, err := retry.Do(ctx, policy, func(ctx context.Context) (provider.Response, error) {
		return client.Complete(ctx, provider.Request{
			Model:    member.Model,
			Messages: messages,
		})
	})
	if err != nil {
		return "", err
	}
	return response.Content, nil
}
