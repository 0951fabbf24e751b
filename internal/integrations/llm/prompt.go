package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ccccccarachen/content-collection-skill/internal/domain"
)

const maxCorrectionExamples = 20

type classifyResponse struct {
	Title    string `json:"title"`
	Category string `json:"category"`
}

func buildPrompts(req Request, maxChars int) (string, string) {
	var categoryLines strings.Builder
	for _, c := range req.Categories {
		categoryLines.WriteString(fmt.Sprintf("- %s\n", c))
	}

	correctionsNote := ""
	if len(req.Corrections) > 0 {
		correctionsNote = "\nA 'Past corrections' section shows how the user refiled earlier saves. Follow those preferences."
	}

	var systemPrompt string
	if req.NeedTitle {
		systemPrompt = fmt.Sprintf(`You title and categorize content a user wants to save.
Choose exactly one category from:
%s
Also write a concise title: under 50 characters, matching the content's language (Chinese content gets a Chinese title).%s

Respond with JSON only (no markdown):
{"title": "...", "category": "..."}`, categoryLines.String(), correctionsNote)
	} else {
		systemPrompt = fmt.Sprintf(`You categorize content a user wants to save.
Choose exactly one category from:
%s%s
Respond with JSON only (no markdown):
{"category": "..."}`, categoryLines.String(), correctionsNote)
	}

	var user strings.Builder
	if req.Caption != "" {
		user.WriteString("User's note: " + req.Caption + "\n")
	}
	user.WriteString("Content: " + truncate(req.Content, maxChars) + "\n")
	if req.PageContext != "" {
		user.WriteString("Page context: " + truncate(req.PageContext, maxChars) + "\n")
	}
	user.WriteString(correctionsBlock(req.Corrections))

	return systemPrompt, user.String()
}

func correctionsBlock(corrections []domain.CategoryCorrection) string {
	if len(corrections) == 0 {
		return ""
	}
	var cb strings.Builder
	cb.WriteString("\nPast corrections (avoid repeating these mistakes):\n")
	limit := maxCorrectionExamples
	if len(corrections) < limit {
		limit = len(corrections)
	}
	for i := 0; i < limit; i++ {
		c := corrections[i]
		title := strings.TrimSpace(c.Title)
		if len(title) > 120 {
			title = title[:120] + "..."
		}
		cb.WriteString(fmt.Sprintf("- %q was categorized as %s, corrected to %s\n", title, c.OriginalCategory, c.CorrectedCategory))
	}
	return cb.String()
}

func truncate(s string, max int) string {
	if max > 0 && len(s) > max {
		return s[:max] + "..."
	}
	return s
}

func parseClassifyResponse(responseText string) (classifyResponse, error) {
	text := strings.TrimSpace(responseText)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var parsed classifyResponse
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return classifyResponse{}, fmt.Errorf("parsing classify response: %w (response: %s)", err, text)
	}
	parsed.Category = strings.TrimSpace(parsed.Category)
	if parsed.Category == "" {
		return classifyResponse{}, fmt.Errorf("classify response missing category (response: %s)", text)
	}
	return parsed, nil
}

// coerceCategory maps a model-proposed label onto the allowed set: exact
// match first, then case-insensitive substring containment in either
// direction, so "Tutorial" lands on "Tutorials". Reports false when nothing
// fits.
func coerceCategory(proposed string, allowed []string) (string, bool) {
	proposed = strings.TrimSpace(proposed)
	if proposed == "" {
		return "", false
	}
	for _, c := range allowed {
		if c == proposed {
			return c, true
		}
	}
	lower := strings.ToLower(proposed)
	for _, c := range allowed {
		cl := strings.ToLower(c)
		if strings.Contains(cl, lower) || strings.Contains(lower, cl) {
			return c, true
		}
	}
	return "", false
}
