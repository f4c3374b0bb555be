package domain

import "time"

// Stage identifies one phase of a deliberation round.
type Stage string

const (
	StageResponses Stage = "stage1"
	StageRankings  Stage = "stage2"
	StageSynthesis Stage = "stage3"
)

// Answer is a council member's independent stage-1 response.
type Answer struct {
	Member   string `json:"model"`
	Response string `json:"response"`
}

// RankingSubmission is a member's stage-2 peer review. Labels holds the
// parsed label permutation; it is empty when the raw text failed to parse, in
// which case the raw text is still kept for display.
type RankingSubmission struct {
	Member string   `json:"model"`
	Raw    string   `json:"ranking"`
	Labels []string `json:"parsed_ranking,omitempty"`
}

// Valid reports whether the submission contributed a usable permutation.
func (s RankingSubmission) Valid() bool {
	return len(s.Labels) > 0
}

// AggregateEntry is one label's consensus position across valid rankings.
type AggregateEntry struct {
	Label       string  `json:"label"`
	Member      string  `json:"model"`
	AverageRank float64 `json:"average_rank"`
	Votes       int     `json:"rankings_count"`
}

// Synthesis is the chairman's final stage-3 answer.
type Synthesis struct {
	Member   string `json:"model"`
	Response string `json:"response"`
}

// RoundMetadata carries the round-scoped artifacts returned to the caller.
// It must never be persisted: the label bijection exists only to let the
// caller de-anonymize the rankings it just watched happen.
type RoundMetadata struct {
	LabelToMember map[string]string `json:"label_to_model"`
	Aggregate     []AggregateEntry  `json:"aggregate_rankings"`
	FailedMembers []string          `json:"failed_models,omitempty"`
}

// RoundResult is the complete outcome of one deliberation round.
type RoundResult struct {
	Stage1    []Answer            `json:"stage1"`
	Stage2    []RankingSubmission `json:"stage2"`
	Stage3    Synthesis           `json:"stage3"`
	Metadata  RoundMetadata       `json:"metadata"`
	Completed time.Time           `json:"-"`
}
