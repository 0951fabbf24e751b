package ingest

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ccccccarachen/content-collection-skill/internal/domain"
)

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

// Share-sheet boilerplate appended by Douyin / Xiaohongshu style apps.
// Each pattern kills everything from its marker to the end of the text.
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)[,，]?\s*复制打开抖音.*$`),
	regexp.MustCompile(`(?i)[,，]?\s*复制此链接.*$`),
	regexp.MustCompile(`(?i)[,，]?\s*copy and open xiaohongshu.*$`),
	regexp.MustCompile(`(?i)[,，]?\s*打开抖音.*$`),
	regexp.MustCompile(`(?i)[,，]?\s*打开小红书.*$`),
	regexp.MustCompile(`(?i)[,，]?\s*点击链接.*$`),
}

// Extract normalizes one inbound message into a Submission. The three message
// shapes (pure URL, caption+URL, pure text) all come out as the same struct:
// URLs in order of appearance, caption derived from the text around them with
// share boilerplate stripped. A message without URLs has no caption; its whole
// text is content the classifier must title. Captions of two characters or
// fewer are emoji/punctuation residue and treated as absent.
func Extract(rawText string) domain.Submission {
	raw := strings.TrimSpace(rawText)
	urls := urlPattern.FindAllString(raw, -1)

	var caption string
	if len(urls) > 0 {
		caption = urlPattern.ReplaceAllString(raw, " ")
		for _, p := range noisePatterns {
			caption = strings.TrimSpace(p.ReplaceAllString(caption, ""))
		}
		caption = strings.Join(strings.Fields(caption), " ")
		if utf8.RuneCountInString(caption) <= 2 {
			caption = ""
		}
	}

	return domain.Submission{RawText: raw, URLs: urls, Caption: caption}
}
