// Package agents provides the concrete agent-port bindings and the
// role-specific prompt assembly for the campaign workflow.
package agents

import (
	"fmt"
	"strings"

	"github.com/campflow/campflow/pkg/api"
)

// Per-role system instructions shared by all port implementations.
const (
	plannerInstructions   = "You are a marketing campaign planner who creates structured plans."
	writerInstructions    = "You are a senior marketing copywriter. Produce clear, channel-ready drafts."
	reviewerInstructions  = "You are a marketing compliance and quality reviewer. " + verdictFormat
	publisherInstructions = "You are a publisher. Finalize the approved copy and prepare a publish-ready package."

	verdictFormat = `Respond with JSON only: {"approved": true/false, "feedback": "...", "risk_notes": "..."}.`
)

// Instructions returns the system instructions for a role.
func Instructions(role api.Role) string {
	switch role {
	case api.RolePlanner:
		return plannerInstructions
	case api.RoleWriter:
		return writerInstructions
	case api.RoleReviewer:
		return reviewerInstructions
	case api.RolePublisher:
		return publisherInstructions
	}
	return ""
}

// PlannerPrompt asks for a campaign plan built from the request.
func PlannerPrompt(req api.CampaignRequest) api.Prompt {
	var sb strings.Builder
	sb.WriteString("Create a marketing campaign plan with: objectives, key message, channel mix, ")
	sb.WriteString("timeline, and KPIs. Use this context:\n")
	fmt.Fprintf(&sb, "Brief: %s\n", req.Brief)
	fmt.Fprintf(&sb, "Goal: %s\n", req.Goal)
	fmt.Fprintf(&sb, "Audience: %s\n", req.Audience)
	fmt.Fprintf(&sb, "Channels: %s\n", strings.Join(req.Channels, ", "))
	fmt.Fprintf(&sb, "Tone: %s\n", req.Tone)
	fmt.Fprintf(&sb, "Constraints: %s\n", req.BrandConstraints)

	return api.Prompt{System: plannerInstructions, User: sb.String()}
}

// WriterPrompt asks for a campaign draft from the plan plus any reviewer
// feedback and, after escalation, the human note to incorporate.
func WriterPrompt(plan, reviewerFeedback, humanNote string) api.Prompt {
	var sb strings.Builder
	sb.WriteString("Write a campaign draft based on this plan and feedback. Provide: ")
	sb.WriteString("headline, key message, channel-specific copy, CTA, and disclaimers if needed.\n")
	fmt.Fprintf(&sb, "Plan:\n%s\n\n", plan)
	if humanNote != "" {
		fmt.Fprintf(&sb, "Human feedback to incorporate:\n%s\n", humanNote)
		if reviewerFeedback != "" {
			fmt.Fprintf(&sb, "Previous reviewer feedback:\n%s\n", reviewerFeedback)
		}
	} else if reviewerFeedback != "" {
		fmt.Fprintf(&sb, "Reviewer feedback to address:\n%s\n", reviewerFeedback)
	}

	return api.Prompt{System: writerInstructions, User: sb.String()}
}

// ReviewerPrompt asks for a structured verdict on the draft.
func ReviewerPrompt(draft string) api.Prompt {
	user := "Review the draft for clarity, compliance, and brand safety. " +
		verdictFormat + "\n\nDraft:\n" + draft

	return api.Prompt{System: reviewerInstructions, User: user}
}

// PublisherPrompt asks for the publish-ready package for an approved draft.
func PublisherPrompt(draft string) api.Prompt {
	user := "Finalize the approved campaign into a publish-ready package: final copy, " +
		"scheduling notes, and asset checklist.\n\n" +
		"Approved Draft:\n" + draft

	return api.Prompt{System: publisherInstructions, User: user}
}
