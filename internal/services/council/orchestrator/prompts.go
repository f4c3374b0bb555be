package orchestrator

import (
	"fmt"
	"strings"

	"github.com/louisbranch/council.space/internal/services/council/domain"
	"github.com/louisbranch/council.space/internal/services/council/provider"
)

// rankingMarker is the literal the parser looks for; the ranking prompt tells
// reviewers to end their critique with it.
const rankingMarker = "FINAL RANKING:"

// stage1Messages builds a member's independent answer request: the prior
// conversation followed by the new user turn.
func stage1Messages(history []provider.Message, prompt string) []provider.Message {
	messages := make([]provider.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, provider.Message{Role: provider.RoleUser, Content: prompt})
	return messages
}

// rankingPrompt builds a reviewer's stage-2 request. Every surviving answer
// appears under its assigned label, the reviewer's own included, with no hint
// of which model wrote what.
func rankingPrompt(s *session) string {
	var b strings.Builder
	b.WriteString("You are reviewing anonymized responses to the question below. ")
	b.WriteString("You do not know which model wrote which response, and one of them may be your own.\n\n")
	fmt.Fprintf(&b, "Question:\n%s\n\n", s.prompt)

	for i, label := range s.labels {
		fmt.Fprintf(&b, "%s:\n%s\n\n", label, s.answers[i].Response)
	}

	b.WriteString("Evaluate each response for accuracy, completeness, and clarity. ")
	b.WriteString("Briefly explain your reasoning, then end your reply with the ranking in exactly this format, best first:\n\n")
	b.WriteString(rankingMarker + "\n")
	for i, label := range s.labels {
		fmt.Fprintf(&b, "%d. %s\n", i+1, label)
	}
	b.WriteString("\nReplace the order above with your own judgment. List every label exactly once.")
	return b.String()
}

// synthesisPrompt builds the chairman's stage-3 request: the question, the
// answers de-anonymized to their authors, and the peer reviews, with an
// instruction to produce one definitive reply. The chairman sees who wrote
// what; the labels stay only as keys into the reviews.
func synthesisPrompt(s *session, submissions []domain.RankingSubmission) string {
	var b strings.Builder
	b.WriteString("You are the chairman of a council of language models. ")
	b.WriteString("Council members answered the user's question independently and then ranked each other's anonymized responses.\n\n")
	fmt.Fprintf(&b, "Question:\n%s\n\n", s.prompt)

	b.WriteString("Responses (the reviews below refer to them by label):\n\n")
	for i, label := range s.labels {
		fmt.Fprintf(&b, "%s, by %s:\n%s\n\n", label, s.answers[i].Member, s.answers[i].Response)
	}

	if len(submissions) > 0 {
		b.WriteString("Peer reviews:\n\n")
		for i, submission := range submissions {
			fmt.Fprintf(&b, "Reviewer %d:\n%s\n\n", i+1, submission.Raw)
		}
	}

	b.WriteString("Weigh the responses and the reviews, then write the single best answer to the question. ")
	b.WriteString("Respond directly to the user; do not mention the council, the labels, or the review process.")
	return b.String()
}

// titlePrompt asks for a short conversation title derived from the opening
// message.
func titlePrompt(firstMessage string) string {
	return fmt.Sprintf(
		"Generate a concise title (at most six words) for a conversation that starts with the message below. "+
			"Reply with the title only, no quotes or punctuation around it.\n\n%s",
		firstMessage,
	)
}
