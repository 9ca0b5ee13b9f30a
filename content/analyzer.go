package content

import (
	"strings"
	"time"
)

// Analyze produces the analyzer report for a piece of content. The scoring
// is a deterministic heuristic over the text; the interaction counts start
// at zero because the content has not been published yet.
func Analyze(text string) Metrics {
	words := strings.Fields(text)
	sentences := countSentences(text)

	readability := ReadabilityMetrics{
		Score: clampScore(100 - averageSentenceLength(len(words), sentences)*2),
		Level: readingLevel(len(words), sentences),
	}
	if averageSentenceLength(len(words), sentences) > 20 {
		readability.Suggestions = append(readability.Suggestions, "Vary sentence length for better flow")
	}
	if len(words) > 300 {
		readability.Suggestions = append(readability.Suggestions, "Consider breaking longer paragraphs")
	}
	if len(readability.Suggestions) == 0 {
		readability.Suggestions = []string{"Use more transition words"}
	}

	seo := SEOMetrics{Score: 70}
	if len(words) < 50 {
		seo.Issues = append(seo.Issues, "Content is too short to rank")
	} else {
		seo.Score += 15
	}
	if headline := firstLine(text); len(headline) > 0 && len(headline) <= 70 {
		seo.Score += 10
	} else {
		seo.Improvements = append(seo.Improvements, "Optimize title length")
	}
	seo.Improvements = append(seo.Improvements, "Add more relevant keywords")
	seo.Score = clampScore(seo.Score)

	engagement := EngagementMetrics{
		Score:   clampScore(50 + len(words)/20),
		Metrics: EngagementCounts{},
	}

	return Metrics{
		Readability: readability,
		SEO:         seo,
		Engagement:  engagement,
	}
}

// NewAnalysis builds an analyzer item for freshly submitted content, already
// scored and marked completed.
func NewAnalysis(userID, text string) *Analysis {
	title := firstLine(text)
	if title == "" {
		title = "Untitled Content"
	}

	now := time.Now()
	return &Analysis{
		UserID:         userID,
		Title:          title,
		Type:           "Text",
		Platform:       "All Platforms",
		Status:         StatusCompleted,
		Metrics:        Analyze(text),
		LastAnalyzedAt: &now,
	}
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	return strings.TrimSpace(line)
}

func countSentences(text string) int {
	count := strings.Count(text, ".") + strings.Count(text, "!") + strings.Count(text, "?")
	if count == 0 {
		count = 1
	}
	return count
}

func averageSentenceLength(words, sentences int) int {
	if sentences == 0 {
		return words
	}
	return words / sentences
}

func readingLevel(words, sentences int) string {
	switch avg := averageSentenceLength(words, sentences); {
	case avg > 25:
		return "Professional"
	case avg > 15:
		return "Advanced"
	default:
		return "General"
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
