package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"lecturetutor/internal/domain"
)

var (
	headerStyle        = lipgloss.NewStyle().Bold(true)
	summaryStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	answerStyle        = lipgloss.NewStyle().Bold(true)
	contextLabelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	highlightStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	systemStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func renderMessages(messages []domain.Message, width int) string {
	if len(messages) == 0 {
		return "No messages yet. Ask a question about the lecture."
	}
	wrap := lipgloss.NewStyle().Width(max(10, width-4))
	blocks := make([]string, 0, len(messages))
	for _, msg := range messages {
		var b strings.Builder
		switch msg.Role {
		case domain.RoleUser:
			b.WriteString(userStyle.Render("You: "))
			b.WriteString(msg.Content)
		case domain.RoleAssistant:
			b.WriteString(answerStyle.Render(msg.Content))
			if msg.Context != "" {
				b.WriteString("\n")
				b.WriteString(contextLabelStyle.Render("From Lecture (Context): "))
				b.WriteString(highlightSentence(msg.Context, msg.Content))
			}
		default:
			b.WriteString(systemStyle.Render("System: " + msg.Content))
		}
		blocks = append(blocks, wrap.Render(b.String()))
	}
	return strings.Join(blocks, "\n\n")
}

// highlightSentence marks the first occurrence of the answer inside its context.
func highlightSentence(context, answer string) string {
	answer = strings.TrimSpace(answer)
	i := strings.Index(context, answer)
	if answer == "" || i < 0 {
		return context
	}
	return context[:i] + highlightStyle.Render(answer) + context[i+len(answer):]
}
