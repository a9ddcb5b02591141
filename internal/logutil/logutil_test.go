package logutil

import (
	"strings"
	"testing"
	"unicode/utf8"

	"pgregory.net/rapid"
)

func TestTextPreview_StripsMarkup(t *testing.T) {
	t.Parallel()

	markup := `<html><head><script>var x = 1;</script></head>
<body><h1 class="content-document-header">ДМС &mdash; добровольное медицинское страхование</h1>
<p>Отправить   заявку</p></body></html>`

	got := TextPreview(markup, 0)
	if strings.Contains(got, "<") || strings.Contains(got, ">") {
		t.Fatalf("preview still contains markup: %q", got)
	}
	if !strings.Contains(got, "добровольное медицинское страхование") {
		t.Fatalf("preview lost visible text: %q", got)
	}
	if strings.Contains(got, "  ") {
		t.Fatalf("preview whitespace not collapsed: %q", got)
	}
}

func TestTruncateForLog_RuneSafe(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		value := rapid.StringMatching(`[а-яА-Яa-z ]{1,60}`).Draw(t, "value")
		limit := rapid.IntRange(1, 30).Draw(t, "limit")

		got := TruncateForLog(value, limit)
		if !utf8.ValidString(got) {
			t.Fatalf("truncation produced invalid UTF-8: %q", got)
		}
		prefix := strings.TrimSuffix(got, "... [truncated]")
		if utf8.RuneCountInString(prefix) > limit {
			t.Fatalf("prefix longer than limit %d: %q", limit, got)
		}
	})
}

func TestRedactValue(t *testing.T) {
	t.Parallel()

	cases := []struct {
		key, value, want string
	}{
		{"AWS_SECRET_ACCESS_KEY", "abc", "[REDACTED]"},
		{"AWS_ACCESS_KEY_ID", "AKIA", "[REDACTED]"},
		{"DMS_BASE_URL", "https://www.rgs.ru", "https://www.rgs.ru"},
		{"AWS_SECRET_ACCESS_KEY", "", ""},
	}
	for _, tc := range cases {
		if got := RedactValue(tc.key, tc.value); got != tc.want {
			t.Errorf("RedactValue(%q, %q) = %q, want %q", tc.key, tc.value, got, tc.want)
		}
	}
}
