package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campflow/campflow/pkg/api"
)

func TestPlannerPromptCarriesRequestContext(t *testing.T) {
	t.Parallel()

	p := PlannerPrompt(api.CampaignRequest{
		Brief:            "Launch Orbit",
		Goal:             "Drive signups",
		Audience:         "Product teams",
		Channels:         []string{"Email", "Web"},
		Tone:             "Playful",
		BrandConstraints: "No superlatives",
	})

	require.Equal(t, plannerInstructions, p.System)
	require.Contains(t, p.User, "Launch Orbit")
	require.Contains(t, p.User, "Drive signups")
	require.Contains(t, p.User, "Product teams")
	require.Contains(t, p.User, "Email, Web")
	require.Contains(t, p.User, "Playful")
	require.Contains(t, p.User, "No superlatives")
}

func TestWriterPromptFeedbackSections(t *testing.T) {
	t.Parallel()

	// First draft: plan only.
	p := WriterPrompt("the plan", "", "")
	require.Contains(t, p.User, "the plan")
	require.NotContains(t, p.User, "Reviewer feedback to address")
	require.NotContains(t, p.User, "Human feedback to incorporate")

	// Revision: reviewer feedback is addressed.
	p = WriterPrompt("the plan", "shorter please", "")
	require.Contains(t, p.User, "Reviewer feedback to address")
	require.Contains(t, p.User, "shorter please")

	// Post-escalation: the human note leads, prior feedback stays visible.
	p = WriterPrompt("the plan", "shorter please", "mention the free tier")
	require.Contains(t, p.User, "Human feedback to incorporate")
	require.Contains(t, p.User, "mention the free tier")
	require.Contains(t, p.User, "Previous reviewer feedback")
	require.Contains(t, p.User, "shorter please")
}

func TestReviewerPromptDemandsJSONVerdict(t *testing.T) {
	t.Parallel()

	p := ReviewerPrompt("the draft")
	require.Contains(t, p.User, "the draft")
	require.Contains(t, p.User, `"approved"`)
	require.Equal(t, reviewerInstructions, p.System)
}

func TestInstructionsPerRole(t *testing.T) {
	t.Parallel()

	for _, role := range []api.Role{api.RolePlanner, api.RoleWriter, api.RoleReviewer, api.RolePublisher} {
		require.NotEmpty(t, Instructions(role), "role %s", role)
	}
	require.Empty(t, Instructions(api.Role("Unknown")))
}

func TestScriptedPortReplaysAndCounts(t *testing.T) {
	t.Parallel()

	port := NewScriptedPort().
		Respond(api.RoleWriter, "first").
		Respond(api.RoleWriter, "second")

	ctx := context.Background()
	text, err := port.Invoke(ctx, api.RoleWriter, api.Prompt{})
	require.NoError(t, err)
	require.Equal(t, "first", text)

	text, err = port.Invoke(ctx, api.RoleWriter, api.Prompt{})
	require.NoError(t, err)
	require.Equal(t, "second", text)
	require.Equal(t, 2, port.Calls(api.RoleWriter))

	// Exhausted queues surface as agent errors.
	_, err = port.Invoke(ctx, api.RoleWriter, api.Prompt{})
	var ae *api.AgentError
	require.ErrorAs(t, err, &ae)
	require.Equal(t, api.RoleWriter, ae.Role)
}
