package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ccccccarachen/content-collection-skill/internal/domain"
)

func TestParseClassifyResponse(t *testing.T) {
	tests := []struct {
		name     string
		response string
		title    string
		category string
		wantErr  bool
	}{
		{
			name:     "plain JSON",
			response: `{"title": "Vector DB primer", "category": "Tutorials"}`,
			title:    "Vector DB primer",
			category: "Tutorials",
		},
		{
			name:     "json fenced",
			response: "```json\n{\"title\": \"A\", \"category\": \"Articles\"}\n```",
			title:    "A",
			category: "Articles",
		},
		{
			name:     "bare fenced",
			response: "```\n{\"category\": \"Articles\"}\n```",
			category: "Articles",
		},
		{
			name:     "category only",
			response: `{"category": "Ideas"}`,
			category: "Ideas",
		},
		{
			name:     "whitespace category rejected",
			response: `{"title": "x", "category": "  "}`,
			wantErr:  true,
		},
		{
			name:     "not JSON",
			response: "CATEGORY: Articles",
			wantErr:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseClassifyResponse(tt.response)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseClassifyResponse: %v", err)
			}
			if got.Title != tt.title || got.Category != tt.category {
				t.Fatalf("parsed = %+v, want title=%q category=%q", got, tt.title, tt.category)
			}
		})
	}
}

func TestCoerceCategory(t *testing.T) {
	allowed := []string{"Vibe Coding", "Idea Collection", "Tutorials"}
	tests := []struct {
		proposed string
		want     string
		ok       bool
	}{
		{"Tutorials", "Tutorials", true},
		{"tutorials", "Tutorials", true},
		{"Tutorial", "Tutorials", true},
		{"Ideas and Idea Collection stuff", "Idea Collection", true},
		{"vibe coding", "Vibe Coding", true},
		{"Cooking", "", false},
		{"", "", false},
		{"   ", "", false},
	}
	for _, tt := range tests {
		got, ok := coerceCategory(tt.proposed, allowed)
		if got != tt.want || ok != tt.ok {
			t.Errorf("coerceCategory(%q) = (%q, %v), want (%q, %v)", tt.proposed, got, ok, tt.want, tt.ok)
		}
	}
}

func TestBuildPromptsNeedTitle(t *testing.T) {
	req := Request{
		Content:     "https://example.com/rag",
		PageContext: "A long tutorial about retrieval",
		Categories:  []string{"Articles", "Tutorials"},
		NeedTitle:   true,
	}
	system, user := buildPrompts(req, 2000)

	for _, want := range []string{"- Articles\n", "- Tutorials\n", `{"title": "...", "category": "..."}`, "JSON only"} {
		if !strings.Contains(system, want) {
			t.Errorf("system prompt missing %q:\n%s", want, system)
		}
	}
	if !strings.Contains(user, "Content: https://example.com/rag") {
		t.Errorf("user prompt missing content:\n%s", user)
	}
	if !strings.Contains(user, "Page context: A long tutorial about retrieval") {
		t.Errorf("user prompt missing page context:\n%s", user)
	}
	if strings.Contains(user, "User's note") {
		t.Errorf("no caption given, user prompt should not carry a note:\n%s", user)
	}
}

func TestBuildPromptsCategoryOnly(t *testing.T) {
	req := Request{
		Content:    "https://example.com/rag",
		Caption:    "Great RAG tutorial",
		Categories: []string{"Articles"},
		NeedTitle:  false,
		Corrections: []domain.CategoryCorrection{
			{Title: "Old save", OriginalCategory: "Articles", CorrectedCategory: "Tutorials"},
		},
	}
	system, user := buildPrompts(req, 2000)

	if strings.Contains(system, `"title"`) {
		t.Errorf("category-only system prompt should not ask for a title:\n%s", system)
	}
	if !strings.Contains(system, "Past corrections") {
		t.Errorf("system prompt should mention the corrections section:\n%s", system)
	}
	if !strings.Contains(user, "User's note: Great RAG tutorial") {
		t.Errorf("user prompt missing caption note:\n%s", user)
	}
	if !strings.Contains(user, `- "Old save" was categorized as Articles, corrected to Tutorials`) {
		t.Errorf("user prompt missing corrections block:\n%s", user)
	}
}

func TestBuildPromptsTruncatesContent(t *testing.T) {
	req := Request{
		Content:    strings.Repeat("x", 50),
		Categories: []string{"Articles"},
		NeedTitle:  true,
	}
	_, user := buildPrompts(req, 10)
	if !strings.Contains(user, "Content: "+strings.Repeat("x", 10)+"...") {
		t.Errorf("content not truncated:\n%s", user)
	}
	if strings.Contains(user, strings.Repeat("x", 11)) {
		t.Errorf("truncation kept too much content:\n%s", user)
	}
}

func newTestClassifier(call func(ctx context.Context, model, systemPrompt, userPrompt string) (string, Usage, error)) *Classifier {
	c := NewClassifier("test-key", Options{
		Model:        "test-model",
		CallAttempts: 3,
		CallTimeout:  time.Second,
	})
	c.call = call
	return c
}

func TestClassifySuccess(t *testing.T) {
	var gotSystem, gotUser string
	c := newTestClassifier(func(ctx context.Context, model, systemPrompt, userPrompt string) (string, Usage, error) {
		gotSystem, gotUser = systemPrompt, userPrompt
		return `{"title": "Claude Code repo", "category": "Vibe Coding"}`, Usage{}, nil
	})

	res, err := c.Classify(context.Background(), Request{
		Content:    "https://github.com/anthropics/claude-code",
		Categories: []string{"Vibe Coding", "Idea Collection"},
		NeedTitle:  true,
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.Title != "Claude Code repo" || res.Category != "Vibe Coding" {
		t.Fatalf("Classify = %+v", res)
	}
	if !strings.Contains(gotUser, "https://github.com/anthropics/claude-code") {
		t.Errorf("model never saw the URL:\n%s", gotUser)
	}
	if !strings.Contains(gotSystem, "- Vibe Coding") {
		t.Errorf("model never saw the category set:\n%s", gotSystem)
	}
}

func TestClassifyRetriesTransportErrors(t *testing.T) {
	calls := 0
	c := newTestClassifier(func(ctx context.Context, model, systemPrompt, userPrompt string) (string, Usage, error) {
		calls++
		if calls < 3 {
			return "", Usage{}, errors.New("connection reset")
		}
		return `{"category": "Articles"}`, Usage{}, nil
	})

	res, err := c.Classify(context.Background(), Request{
		Content:    "some text",
		Caption:    "my title",
		Categories: []string{"Articles"},
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if res.Category != "Articles" {
		t.Fatalf("Category = %q", res.Category)
	}
}

func TestClassifyRetriesMalformedResponse(t *testing.T) {
	calls := 0
	c := newTestClassifier(func(ctx context.Context, model, systemPrompt, userPrompt string) (string, Usage, error) {
		calls++
		if calls == 1 {
			return "Sure! The category is Articles.", Usage{}, nil
		}
		return `{"category": "Articles"}`, Usage{}, nil
	})

	if _, err := c.Classify(context.Background(), Request{Content: "x", Caption: "t", Categories: []string{"Articles"}}); err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2 (malformed response retried once)", calls)
	}
}

func TestClassifyUnavailableAfterRetries(t *testing.T) {
	calls := 0
	c := newTestClassifier(func(ctx context.Context, model, systemPrompt, userPrompt string) (string, Usage, error) {
		calls++
		return "", Usage{}, errors.New("api down")
	})

	_, err := c.Classify(context.Background(), Request{Content: "x", Caption: "t", Categories: []string{"Articles"}})
	var unavailable *domain.ClassifierUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("err = %v, want ClassifierUnavailableError", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestClassifyInvalidCategoryNoRetry(t *testing.T) {
	calls := 0
	c := newTestClassifier(func(ctx context.Context, model, systemPrompt, userPrompt string) (string, Usage, error) {
		calls++
		return `{"category": "Cooking"}`, Usage{}, nil
	})

	_, err := c.Classify(context.Background(), Request{Content: "x", Caption: "t", Categories: []string{"Articles"}})
	var invalid *domain.InvalidCategoryError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want InvalidCategoryError", err)
	}
	if invalid.Category != "Cooking" {
		t.Fatalf("invalid.Category = %q", invalid.Category)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (out-of-set label is not retried)", calls)
	}
}

func TestClassifyUntitledFallback(t *testing.T) {
	c := newTestClassifier(func(ctx context.Context, model, systemPrompt, userPrompt string) (string, Usage, error) {
		return `{"title": "", "category": "Articles"}`, Usage{}, nil
	})

	res, err := c.Classify(context.Background(), Request{Content: "x", Categories: []string{"Articles"}, NeedTitle: true})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.Title != "Untitled" {
		t.Fatalf("Title = %q, want Untitled", res.Title)
	}
}
