package chat

import (
	"fmt"
	"regexp"
	"strings"
)

// Template kinds, also used as metric label values.
const (
	templateDistance  = "distance"
	templateRunners   = "runners"
	templateFavorites = "favorites"
	templateRunner    = "runner_detail"
	templateOverview  = "overview"
)

var (
	runnerLineRe   = regexp.MustCompile(`(?m)^Runner (\d+): .+$`)
	numberAskRe    = regexp.MustCompile(`(?i)(?:number|runner|#)\s*(\d+)`)
	overviewLabels = []string{"Race:", "Venue:", "Date:", "Time:", "Distance:", "Ground:", "Discipline:", "Runners:"}
)

// renderAnswer selects a response template from keywords in the user text
// and fills it from the labeled lines of the retrieved context. Returns the
// template kind and the rendered message.
func renderAnswer(userText, contextBlock string) (string, string) {
	lower := strings.ToLower(userText)

	if contextBlock == "" {
		return templateOverview, "I don't have any context for that race yet. Try again once it has been ingested, or ask about another race."
	}

	if match := numberAskRe.FindStringSubmatch(userText); match != nil {
		if msg := runnerDetail(contextBlock, match[1]); msg != "" {
			return templateRunner, msg
		}
	}

	switch {
	case strings.Contains(lower, "distance") || strings.Contains(lower, "how far") || strings.Contains(lower, "how long"):
		if line := findLine(contextBlock, "Distance:"); line != "" {
			return templateDistance, "The race is run over " + strings.TrimSpace(strings.TrimPrefix(line, "Distance:")) + "."
		}
	case strings.Contains(lower, "favorite") || strings.Contains(lower, "favourite") ||
		strings.Contains(lower, "pick") || strings.Contains(lower, "tip") || strings.Contains(lower, "selection"):
		if msg := favoritesAnswer(contextBlock); msg != "" {
			return templateFavorites, msg
		}
	case strings.Contains(lower, "runner") || strings.Contains(lower, "horse") ||
		strings.Contains(lower, "field") || strings.Contains(lower, "who is in"):
		if msg := runnersAnswer(contextBlock); msg != "" {
			return templateRunners, msg
		}
	}

	return templateOverview, overviewAnswer(contextBlock)
}

// runnerDetail extracts the block of lines describing one numbered runner.
func runnerDetail(contextBlock, number string) string {
	marker := "Runner " + number + ":"
	lines := strings.Split(contextBlock, "\n")
	for i, line := range lines {
		if !strings.HasPrefix(line, marker) {
			continue
		}
		block := []string{line}
		for _, next := range lines[i+1:] {
			if next == "" || strings.HasPrefix(next, "Runner ") || strings.HasPrefix(next, "Race:") {
				break
			}
			block = append(block, next)
		}
		return strings.Join(block, "\n")
	}
	return ""
}

func runnersAnswer(contextBlock string) string {
	matches := runnerLineRe.FindAllString(contextBlock, -1)
	if len(matches) == 0 {
		return ""
	}
	return fmt.Sprintf("Runners in this race:\n%s", strings.Join(matches, "\n"))
}

func favoritesAnswer(contextBlock string) string {
	var picked []string
	for _, label := range []string{"Expert picks:", "Selections:", "Base pick:", "Outsider:"} {
		if line := findLine(contextBlock, label); line != "" {
			picked = append(picked, line)
		}
	}
	if len(picked) == 0 {
		return ""
	}
	return strings.Join(picked, "\n")
}

func overviewAnswer(contextBlock string) string {
	var lines []string
	for _, label := range overviewLabels {
		if line := findLine(contextBlock, label); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return "I found some context but could not summarize it. Try asking about the distance, the runners or the favorites."
	}
	return strings.Join(lines, "\n")
}

// findLine returns the first line of the block starting with the label.
func findLine(block, label string) string {
	for _, line := range strings.Split(block, "\n") {
		if strings.HasPrefix(line, label) {
			return line
		}
	}
	return ""
}
