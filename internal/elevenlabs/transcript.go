package elevenlabs

import "strings"

const (
	speakerInterviewer = "Interviewer"
	speakerStakeholder = "Stakeholder"
)

// FormatTranscript renders messages as "Speaker: text" lines separated by a blank line.
// The agent is the interviewer; every other role is treated as the stakeholder.
func FormatTranscript(messages []Message) string {
	if len(messages) == 0 {
		return ""
	}

	lines := make([]string, len(messages))
	for i, m := range messages {
		speaker := speakerStakeholder
		if m.Role == "agent" {
			speaker = speakerInterviewer
		}
		lines[i] = speaker + ": " + m.Message
	}
	return strings.Join(lines, "\n\n")
}
