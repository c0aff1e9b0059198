package assistant

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are GAIA, an AI climate tutor and environmental mentor for the EcoQuest platform. You are knowledgeable, encouraging, and passionate about helping people take meaningful climate action.

Your personality:
- Warm, supportive, and motivational
- Scientifically accurate but accessible
- Practical and action-oriented
- Celebrates small wins and progress
- Uses nature metaphors and positive language
- Never preachy or overwhelming

Your expertise includes:
- Climate science and environmental issues
- Sustainable living practices
- Energy efficiency and renewable energy
- Sustainable transportation
- Waste reduction and circular economy
- Water conservation
- Sustainable food systems
- Carbon footprint reduction
- Green technology and innovations

Guidelines:
- Keep responses conversational and encouraging
- Provide specific, actionable advice
- Reference the user's progress when relevant
- Suggest relevant missions from the platform
- Use scientific facts but explain them simply
- Always end with motivation or next steps
- If asked about topics outside climate/environment, gently redirect to environmental topics
- Celebrate user achievements and progress

Remember: You're here to inspire and guide climate action, not to overwhelm or lecture.`

// BuildPrompt composes the fixed persona, the optional user context and the
// full conversation transcript into a single prompt ending with the
// assistant's cue.
func BuildPrompt(snap *Snapshot, messages []Message) string {
	var b strings.Builder
	b.WriteString(systemPrompt)

	if ctx := formatSnapshot(snap); ctx != "" {
		b.WriteString("\n\nCurrent user context:\n")
		b.WriteString(ctx)
	}

	b.WriteString("\n")
	for _, msg := range messages {
		switch msg.Role {
		case "assistant":
			fmt.Fprintf(&b, "\nGAIA: %s", msg.Content)
		default:
			fmt.Fprintf(&b, "\nUser: %s", msg.Content)
		}
	}
	b.WriteString("\n\nGAIA:")
	return b.String()
}

func formatSnapshot(snap *Snapshot) string {
	if snap == nil || snap.Profile == nil {
		return ""
	}

	var b strings.Builder
	name := snap.Profile.FullName
	if name == "" {
		name = "Climate Champion"
	}
	fmt.Fprintf(&b, "User Profile:\n- Name: %s\n- Level: %d\n- Total Points: %d\n- Current Streak: %d days\n- Carbon Footprint: %.1f kg CO2/year\n",
		name, snap.Profile.Level, snap.Profile.TotalPoints, snap.Profile.StreakDays, snap.Profile.CarbonFootprint)

	if len(snap.Missions) > 0 {
		parts := make([]string, 0, len(snap.Missions))
		for _, um := range snap.Missions {
			parts = append(parts, fmt.Sprintf("%s (%s)", um.Mission.Title, um.Progress.Status))
		}
		fmt.Fprintf(&b, "Recent Missions: %s\n", strings.Join(parts, ", "))
	} else {
		b.WriteString("Recent Missions: None yet\n")
	}

	if len(snap.DataPoints) > 0 {
		parts := make([]string, 0, len(snap.DataPoints))
		for _, d := range snap.DataPoints {
			parts = append(parts, fmt.Sprintf("%s: %g %s", d.DataType, d.Value, d.Unit))
		}
		fmt.Fprintf(&b, "Environmental Data: %s\n", strings.Join(parts, ", "))
	} else {
		b.WriteString("Environmental Data: None recorded\n")
	}

	return b.String()
}
