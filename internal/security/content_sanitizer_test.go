package security

import (
	"strings"
	"testing"
)

func TestSanitizeText_StripsAllMarkup(t *testing.T) {
	s := NewContentSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "プレーンテキストはそのまま",
			input: "Beach cleanup at the harbor",
			want:  "Beach cleanup at the harbor",
		},
		{
			name:  "scriptタグを除去",
			input: `Bring gloves<script>alert("xss")</script>`,
			want:  "Bring gloves",
		},
		{
			name:  "整形タグもテキストのみ残す",
			input: "<p>Meet at <strong>9am</strong></p>",
			want:  "Meet at 9am",
		},
		{
			name:  "イベント属性付きタグを除去",
			input: `<img src="x" onerror="alert(1)">Help needed`,
			want:  "Help needed",
		},
		{
			name:  "前後の空白を除去",
			input: "  food drive  ",
			want:  "food drive",
		},
		{
			name:  "空文字列は空文字列",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.SanitizeText(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeText_Idempotent(t *testing.T) {
	s := NewContentSanitizer()

	input := `<b>volunteer</b> <script>x</script>day`
	once := s.SanitizeText(input)
	twice := s.SanitizeText(once)
	if once != twice {
		t.Errorf("sanitize is not idempotent: %q != %q", once, twice)
	}
}

func TestSanitizeSummary_AllowsFormattingBlocksScripts(t *testing.T) {
	s := NewContentSanitizer()

	tests := []struct {
		name        string
		input       string
		wantContain []string
		wantAbsent  []string
	}{
		{
			name:        "整形タグは通過",
			input:       "<p>Local shelter seeks <strong>weekend</strong> volunteers</p>",
			wantContain: []string{"<p>", "<strong>weekend</strong>"},
		},
		{
			name:       "scriptタグは除去",
			input:      `<p>News</p><script>fetch("/steal")</script>`,
			wantAbsent: []string{"<script"},
		},
		{
			name:       "iframeとstyleは除去",
			input:      `<iframe src="https://evil.example"></iframe><style>p{}</style>text`,
			wantAbsent: []string{"<iframe", "<style"},
		},
		{
			name:       "on*イベント属性は除去",
			input:      `<p onclick="alert(1)">click me</p>`,
			wantAbsent: []string{"onclick"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.SanitizeSummary(tt.input)
			for _, want := range tt.wantContain {
				if !strings.Contains(got, want) {
					t.Errorf("SanitizeSummary(%q) = %q, missing %q", tt.input, got, want)
				}
			}
			for _, absent := range tt.wantAbsent {
				if strings.Contains(got, absent) {
					t.Errorf("SanitizeSummary(%q) = %q, must not contain %q", tt.input, got, absent)
				}
			}
		})
	}
}

func TestSanitizeSummary_LinksGetSafeAttributes(t *testing.T) {
	s := NewContentSanitizer()

	got := s.SanitizeSummary(`<a href="https://example.com/article">read more</a>`)
	if !strings.Contains(got, `href="https://example.com/article"`) {
		t.Errorf("href must survive, got %q", got)
	}
	if !strings.Contains(got, `target="_blank"`) {
		t.Errorf("target=_blank must be added, got %q", got)
	}
	if !strings.Contains(got, "noopener") || !strings.Contains(got, "noreferrer") {
		t.Errorf("rel must include noopener noreferrer, got %q", got)
	}
}
