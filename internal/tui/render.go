package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"knowledge-quiz-service/internal/app"
	"knowledge-quiz-service/internal/domain"
)

func renderHeader(p app.Presentation, player string, noColor bool) string {
	line := fmt.Sprintf("Question %d/%d | %s | %s | %s", p.Index+1, p.Total, p.Area, p.Difficulty, player)
	return stylize(line, noColor, lipgloss.Color("33"))
}

func renderPrompt(p app.Presentation) string {
	return lipgloss.NewStyle().Bold(true).PaddingTop(1).PaddingBottom(1).Render(p.Prompt)
}

func renderOptions(p app.Presentation, selected domain.OptionTag, noColor bool) string {
	lines := make([]string, 0, len(p.Options))
	for i, opt := range p.Options {
		line := fmt.Sprintf("  %d) %s", i+1, opt.Text)
		if opt.Tag == selected {
			line = stylize(fmt.Sprintf("> %d) %s", i+1, opt.Text), noColor, lipgloss.Color("220"))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func renderLastAnswer(out *domain.AnswerOutcome, noColor bool) string {
	if out == nil {
		return ""
	}
	switch {
	case out.Correct:
		return stylize(fmt.Sprintf("Correct! +%.0f (streak %d)", out.Awarded, out.Streak), noColor, lipgloss.Color("42"))
	case out.TimedOut:
		return stylize("Time's up!", noColor, lipgloss.Color("196"))
	}
	return stylize("Wrong answer.", noColor, lipgloss.Color("196"))
}

func renderResult(res domain.Result, noColor bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", res.PlayerName)
	fmt.Fprintf(&b, "Score: %d / %d\n", res.Score, domain.PointsMax)
	fmt.Fprintf(&b, "Badge: %s\n\n", res.Badge.Title)
	for _, d := range domain.Difficulties {
		t := res.Stats.ByDifficulty[d]
		fmt.Fprintf(&b, "%-7s %d/%d\n", d, t.Correct, t.Total)
	}
	fw := res.Stats.FastWrong
	fmt.Fprintf(&b, "\nFast wrong answers: %d of %d\n", fw.Fast, fw.TotalWrong)
	if res.ShareText != "" {
		fmt.Fprintf(&b, "\n%s", res.ShareText)
	}

	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(1, 2)
	if !noColor {
		card = card.BorderForeground(lipgloss.Color("220"))
	}
	return card.Render(b.String())
}

func renderFooter(m Model) string {
	help := "1-4 select | enter confirm | s skip | q quit"
	if m.result != nil {
		help = "r play again | q quit"
	}
	if m.err != nil {
		help = m.err.Error() + " | " + help
	}
	return stylize(help, m.noColor, lipgloss.Color("244"))
}

// stylize applies optional color styling.
func stylize(text string, noColor bool, color lipgloss.Color) string {
	if noColor {
		return text
	}
	return lipgloss.NewStyle().Foreground(color).Render(text)
}
