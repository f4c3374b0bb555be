package orchestrator

import (
	"fmt"

	"github.com/louisbranch/council.space/internal/services/council/domain"
)

// session is one round's transient state. Each Deliberate call builds a fresh
// session and discards it when the round settles, so nothing here outlives
// the round or leaks into storage.
type session struct {
	prompt  string
	sink    Sink
	answers []domain.Answer
	members []domain.Member
	failed  []string

	labels        []string
	labelToMember map[string]string
	memberToLabel map[string]string
}

func newSession(prompt string, sink Sink) *session {
	if sink == nil {
		sink = func(Event) {}
	}
	return &session{prompt: prompt, sink: sink}
}

func (s *session) emit(event Event) {
	s.sink(event)
}

// settle records stage-1 outcomes in emission order.
func (s *session) settle(member domain.Member, response string, err error) {
	if err != nil {
		s.failed = append(s.failed, member.ModelID)
		return
	}
	s.members = append(s.members, member)
	s.answers = append(s.answers, domain.Answer{Member: member.ModelID, Response: response})
}

// assignLabels builds the round's label bijection over the surviving members.
// One label per survivor, in emission order, never reused within the round.
func (s *session) assignLabels() {
	s.labels = make([]string, 0, len(s.members))
	s.labelToMember = make(map[string]string, len(s.members))
	s.memberToLabel = make(map[string]string, len(s.members))
	for i, member := range s.members {
		label := fmt.Sprintf("Response %c", 'A'+i)
		s.labels = append(s.labels, label)
		s.labelToMember[label] = member.ModelID
		s.memberToLabel[member.ModelID] = label
	}
}

func (s *session) metadata(aggregate []domain.AggregateEntry) domain.RoundMetadata {
	return domain.RoundMetadata{
		LabelToMember: s.labelToMember,
		Aggregate:     aggregate,
		FailedMembers: s.failed,
	}
}
