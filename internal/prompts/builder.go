// Package prompts assembles the text sent to the provider gateway for each
// debate turn. Instructions are fixed templates; everything role-specific
// comes from the team definition, everything case-specific from the work
// item and the accumulated transcript.
package prompts

import (
	"fmt"
	"strings"

	"github.com/mailcouncil/internal/teams"
	"github.com/mailcouncil/pkg/models"
)

// BuildTurnPrompt composes one member turn. Round 1 turns are independent,
// so the caller passes no transcript; from round 2 on the transcript holds
// every finalized turn so far and each prompt strictly grows.
func BuildTurnPrompt(team teams.Team, role teams.AgentRole, item models.WorkItem, transcript []models.Message, round int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf(MemberFraming, role.Name, team.Name, team.Mission, role.Persona, role.Responsibility))
	b.WriteString("\n\n")
	b.WriteString(RenderWorkItem(item))
	if len(transcript) > 0 {
		b.WriteString("\n\n")
		writeTranscript(&b, transcript)
	}
	b.WriteString("\n\n")
	b.WriteString(turnInstructions(item.Kind, round))
	return b.String()
}

// BuildDecisionPrompt composes the single decision-maker turn from the
// complete transcript.
func BuildDecisionPrompt(team teams.Team, role teams.AgentRole, item models.WorkItem, transcript []models.Message) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf(DecisionMakerFraming, role.Name, team.Name, team.Mission, role.Persona, role.Responsibility))
	b.WriteString("\n\n")
	b.WriteString(RenderWorkItem(item))
	if len(transcript) > 0 {
		b.WriteString("\n\n")
		writeTranscript(&b, transcript)
	}
	b.WriteString("\n\n")
	b.WriteString(DecisionInstructions)
	b.WriteString("\n\n")
	b.WriteString(DecisionStructure)
	return b.String()
}

// RenderWorkItem serializes the item between explicit fences so agents can
// tell the content apart from their instructions. Empty content is replaced
// with a marker rather than rejected; input shape is the caller's problem.
func RenderWorkItem(item models.WorkItem) string {
	var b strings.Builder
	b.WriteString(WorkItemHeader)
	b.WriteString("\n")

	switch {
	case item.Kind == models.WorkItemQuery:
		b.WriteString(orMarker(item.Query))
	case item.Email != nil:
		b.WriteString(SenderPrefix + orMarker(item.Email.Sender) + "\n")
		b.WriteString(SubjectPrefix + orMarker(item.Email.Subject) + "\n")
		for _, sig := range item.Email.Signals {
			b.WriteString(fmt.Sprintf("%s%s = %s (%.2f)\n", SignalPrefix, sig.Model, sig.Label, sig.Score))
		}
		b.WriteString("\n")
		b.WriteString(orMarker(item.Email.Body))
	default:
		b.WriteString(NoContentMarker)
	}

	b.WriteString("\n")
	b.WriteString(WorkItemFooter)
	return b.String()
}

func writeTranscript(b *strings.Builder, transcript []models.Message) {
	b.WriteString(TranscriptHeader)
	b.WriteString("\n")
	for _, msg := range transcript {
		b.WriteString(fmt.Sprintf("\n[Round %d] %s:\n%s\n", msg.Round, msg.Role, msg.Content))
	}
}

func turnInstructions(kind models.WorkItemKind, round int) string {
	if kind == models.WorkItemQuery {
		return DirectQueryInstructions
	}
	switch round {
	case 1:
		return RoundOneInstructions
	case 2:
		return RoundTwoInstructions
	default:
		return RoundThreeInstructions
	}
}

func orMarker(s string) string {
	if strings.TrimSpace(s) == "" {
		return NoContentMarker
	}
	return s
}
