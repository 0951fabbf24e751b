package ingest

import (
	"reflect"
	"testing"
)

func TestExtractShapes(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		urls      []string
		caption   string
		content   string
		needTitle bool
	}{
		{
			name:      "pure URL",
			input:     "https://github.com/anthropics/claude-code",
			urls:      []string{"https://github.com/anthropics/claude-code"},
			caption:   "",
			content:   "https://github.com/anthropics/claude-code",
			needTitle: true,
		},
		{
			name:      "caption before URL",
			input:     "Great RAG tutorial https://example.com/rag",
			urls:      []string{"https://example.com/rag"},
			caption:   "Great RAG tutorial",
			content:   "https://example.com/rag",
			needTitle: false,
		},
		{
			name:      "pure text has no caption and needs a generated title",
			input:     "Learn about vector databases for RAG applications",
			urls:      nil,
			caption:   "",
			content:   "Learn about vector databases for RAG applications",
			needTitle: true,
		},
		{
			name:      "two URLs keeps order and first wins as content",
			input:     "compare https://a.example/one and https://b.example/two",
			urls:      []string{"https://a.example/one", "https://b.example/two"},
			caption:   "compare and",
			content:   "https://a.example/one",
			needTitle: false,
		},
		{
			name:      "short caption is residue",
			input:     "ok https://example.com/x",
			urls:      []string{"https://example.com/x"},
			caption:   "",
			content:   "https://example.com/x",
			needTitle: true,
		},
		{
			name:      "surrounding whitespace trimmed",
			input:     "  https://example.com/a  \n",
			urls:      []string{"https://example.com/a"},
			caption:   "",
			content:   "https://example.com/a",
			needTitle: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := Extract(tt.input)
			if !reflect.DeepEqual(sub.URLs, tt.urls) {
				t.Fatalf("URLs = %v, want %v", sub.URLs, tt.urls)
			}
			if sub.Caption != tt.caption {
				t.Fatalf("Caption = %q, want %q", sub.Caption, tt.caption)
			}
			if got := sub.Content(); got != tt.content {
				t.Fatalf("Content() = %q, want %q", got, tt.content)
			}
			if got := sub.NeedTitle(); got != tt.needTitle {
				t.Fatalf("NeedTitle() = %v, want %v", got, tt.needTitle)
			}
		})
	}
}

func TestExtractStripsShareBoilerplate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		caption string
	}{
		{
			name:    "douyin copy-open blurb",
			input:   "看看这个视频，复制打开抖音搜索 https://v.douyin.com/abc123/",
			caption: "看看这个视频",
		},
		{
			name:    "xiaohongshu english blurb",
			input:   "nice notes, Copy and open Xiaohongshu to view https://xhslink.com/xyz",
			caption: "nice notes",
		},
		{
			name:    "tap-link prompt",
			input:   "年度总结模板，点击链接查看 https://example.com/doc",
			caption: "年度总结模板",
		},
		{
			name:    "boilerplate only degrades to pure URL",
			input:   "复制此链接到浏览器打开 https://example.com/share",
			caption: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := Extract(tt.input)
			if sub.Caption != tt.caption {
				t.Fatalf("Caption = %q, want %q", sub.Caption, tt.caption)
			}
			if len(sub.URLs) != 1 {
				t.Fatalf("URLs = %v, want exactly one", sub.URLs)
			}
		})
	}
}

func TestExtractEmpty(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t"} {
		sub := Extract(input)
		if !sub.Empty() {
			t.Fatalf("Extract(%q).Empty() = false, want true", input)
		}
	}
}
