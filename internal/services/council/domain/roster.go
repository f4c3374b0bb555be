// Package domain models council membership and round artifacts.
//
// The types here are deliberately storage-free: a round's label bijection and
// aggregate rankings live only for the duration of one deliberation and are
// never written anywhere durable.
package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/council.space/internal/services/council/provider"
)

// Role tags what a member does during a round.
type Role string

const (
	// RoleCouncil members answer in stage 1 and rank peers in stage 2.
	RoleCouncil Role = "council"
	// RoleChairman is the single member synthesizing the final answer.
	RoleChairman Role = "chairman"
	// RoleResearch is an optional member for auxiliary calls such as titles.
	RoleResearch Role = "research"
)

// Council size bounds. A single member has no peers to rank; past seven the
// ranking prompts outgrow small-model context windows.
const (
	MinCouncilSize = 2
	MaxCouncilSize = 7
)

var (
	// ErrNoCouncilMembers indicates the council model list is empty.
	ErrNoCouncilMembers = errors.New("at least one council model is required")
	// ErrNoChairman indicates no chairman model is configured.
	ErrNoChairman = errors.New("a chairman model is required")
)

// Member is one configured backend in provider:model notation plus its role.
type Member struct {
	ModelID  string
	Provider provider.ID
	Model    string
	Role     Role
}

// NewMember parses a provider:model identifier into a Member.
func NewMember(modelID string, role Role) (Member, error) {
	providerID, model, err := provider.ParseModelID(modelID)
	if err != nil {
		return Member{}, err
	}
	return Member{
		ModelID:  strings.TrimSpace(modelID),
		Provider: providerID,
		Model:    model,
		Role:     role,
	}, nil
}

// Roster is the role→member mapping for a deliberation.
type Roster struct {
	Council  []Member
	Chairman Member
	Research *Member
}

// CredentialChecker reports whether a provider family has credentials.
type CredentialChecker interface {
	Configured(id provider.ID) bool
}

// NewRoster builds a roster from provider:model identifiers. The research
// model is optional; an empty string disables it.
func NewRoster(councilModels []string, chairmanModel, researchModel string) (Roster, error) {
	var roster Roster

	for _, modelID := range councilModels {
		modelID = strings.TrimSpace(modelID)
		if modelID == "" {
			continue
		}
		member, err := NewMember(modelID, RoleCouncil)
		if err != nil {
			return Roster{}, fmt.Errorf("council model %q: %w", modelID, err)
		}
		roster.Council = append(roster.Council, member)
	}

	chairmanModel = strings.TrimSpace(chairmanModel)
	if chairmanModel != "" {
		chairman, err := NewMember(chairmanModel, RoleChairman)
		if err != nil {
			return Roster{}, fmt.Errorf("chairman model %q: %w", chairmanModel, err)
		}
		roster.Chairman = chairman
	}

	researchModel = strings.TrimSpace(researchModel)
	if researchModel != "" {
		research, err := NewMember(researchModel, RoleResearch)
		if err != nil {
			return Roster{}, fmt.Errorf("research model %q: %w", researchModel, err)
		}
		roster.Research = &research
	}

	return roster, nil
}

// ValidationError aggregates every configuration problem found during
// startup validation so operators can fix them in one pass.
type ValidationError struct {
	Problems []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e == nil || len(e.Problems) == 0 {
		return "roster validation failed"
	}
	return "roster validation failed:\n  " + strings.Join(e.Problems, "\n  ")
}

// Validate checks the roster against size bounds and provider credentials.
// It returns a *ValidationError listing every problem, not just the first.
func (r Roster) Validate(creds CredentialChecker) error {
	var problems []string

	switch {
	case len(r.Council) == 0:
		problems = append(problems, ErrNoCouncilMembers.Error())
	case len(r.Council) < MinCouncilSize:
		problems = append(problems, fmt.Sprintf("council requires at least %d models, got %d", MinCouncilSize, len(r.Council)))
	case len(r.Council) > MaxCouncilSize:
		problems = append(problems, fmt.Sprintf("council allows at most %d models, got %d", MaxCouncilSize, len(r.Council)))
	}

	for _, member := range r.Council {
		if !creds.Configured(member.Provider) {
			problems = append(problems, missingCredential("council", member))
		}
	}

	if r.Chairman.ModelID == "" {
		problems = append(problems, ErrNoChairman.Error())
	} else if !creds.Configured(r.Chairman.Provider) {
		problems = append(problems, missingCredential("chairman", r.Chairman))
	}

	if r.Research != nil && !creds.Configured(r.Research.Provider) {
		problems = append(problems, missingCredential("research", *r.Research))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Warnings reports non-fatal configuration concerns, currently a lack of
// provider diversity across council members.
func (r Roster) Warnings() []string {
	if len(r.Council) < 2 {
		return nil
	}
	providers := map[provider.ID]struct{}{}
	for _, member := range r.Council {
		providers[member.Provider] = struct{}{}
	}
	if len(providers) == 1 {
		for id := range providers {
			return []string{fmt.Sprintf(
				"all %d council models are from %q; consider mixing providers for diverse perspectives",
				len(r.Council), id,
			)}
		}
	}
	return nil
}

func missingCredential(role string, member Member) string {
	return fmt.Sprintf("%s model %q: provider %q is not configured; set %s",
		role, member.ModelID, member.Provider, provider.EnvVar(member.Provider))
}
