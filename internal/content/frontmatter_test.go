package content

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseFrontmatter_QuotesStripped(t *testing.T) {
	raw := "---\ntitle: \"A\"\npublishedAt: '2024-01-01'\nsummary: plain\n---\nHello"

	h, body, err := ParseFrontmatter(raw)
	if err != nil {
		t.Fatalf("ParseFrontmatter: %v", err)
	}
	want := map[string]string{"title": "A", "publishedAt": "2024-01-01", "summary": "plain"}
	if diff := cmp.Diff(want, h.Map()); diff != "" {
		t.Fatalf("header mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"title", "publishedAt", "summary"}, h.Keys()); diff != "" {
		t.Fatalf("key order mismatch (-want +got):\n%s", diff)
	}
	if body != "Hello" {
		t.Fatalf("body = %q", body)
	}
}

func TestParseFrontmatter_DuplicateKeyLastWins(t *testing.T) {
	raw := "---\ntitle: first\nsummary: s\ntitle: second\n---\n"

	h, _, err := ParseFrontmatter(raw)
	if err != nil {
		t.Fatalf("ParseFrontmatter: %v", err)
	}
	if got := h.Value("title"); got != "second" {
		t.Fatalf("title = %q, want second", got)
	}
	if diff := cmp.Diff([]string{"title", "summary"}, h.Keys()); diff != "" {
		t.Fatalf("duplicate key should keep its first position (-want +got):\n%s", diff)
	}
}

func TestParseFrontmatter_BodyRoundTrip(t *testing.T) {
	body := "# Heading\n\nFirst paragraph.\n\n\nSecond paragraph\nwith two lines.\n\n```go\nfmt.Println(\"---\")\n```"
	raw := "---\ntitle: Round trip\n---\n\n" + body + "\n\n\n"

	_, got, err := ParseFrontmatter(raw)
	if err != nil {
		t.Fatalf("ParseFrontmatter: %v", err)
	}
	if got != body {
		t.Fatalf("body mismatch:\n%s", cmp.Diff(body, got))
	}
}

func TestParseFrontmatter_TextBeforeHeaderIsBody(t *testing.T) {
	raw := "preamble\n---\ntitle: x\n---\nafter"

	_, body, err := ParseFrontmatter(raw)
	if err != nil {
		t.Fatalf("ParseFrontmatter: %v", err)
	}
	if body != "preamble\nafter" {
		t.Fatalf("body = %q", body)
	}
}

func TestParseFrontmatter_LineNumbersAfterPreamble(t *testing.T) {
	raw := "intro\n\n---\ntitle: ok\nno separator\n---\n"

	_, _, err := ParseFrontmatter(raw)
	var me *MalformedContentError
	if !errors.As(err, &me) {
		t.Fatalf("err = %v, want *MalformedContentError", err)
	}
	if me.Line != 5 {
		t.Fatalf("Line = %d, want 5", me.Line)
	}
}

func TestParseFrontmatter_EmptyBlock(t *testing.T) {
	h, body, err := ParseFrontmatter("---\n---\nbody only\n")
	if err != nil {
		t.Fatalf("ParseFrontmatter: %v", err)
	}
	if h.Len() != 0 || body != "body only" {
		t.Fatalf("header=%v body=%q", h.Map(), body)
	}
}

func TestUnmarshalHeader_WrongTarget(t *testing.T) {
	var m map[string]string
	if err := unmarshalHeader([]byte("title: x"), &m); err == nil {
		t.Fatal("decoding into a map should fail")
	}
}

func TestParseFrontmatter_CRLF(t *testing.T) {
	raw := "---\r\ntitle: \"Windows\"\r\nsummary: line endings\r\n---   \r\nBody text\r\n"

	h, body, err := ParseFrontmatter(raw)
	if err != nil {
		t.Fatalf("ParseFrontmatter: %v", err)
	}
	if h.Value("title") != "Windows" || h.Value("summary") != "line endings" {
		t.Fatalf("header = %v", h.Map())
	}
	if body != "Body text" {
		t.Fatalf("body = %q", body)
	}
}

func TestParseFrontmatter_ValueKeepsLaterSeparators(t *testing.T) {
	h, _, err := ParseFrontmatter("---\ntitle: Go: the good parts\nurl: https://example.com\n---\n")
	if err != nil {
		t.Fatalf("ParseFrontmatter: %v", err)
	}
	if got := h.Value("title"); got != "Go: the good parts" {
		t.Fatalf("title = %q", got)
	}
	if got := h.Value("url"); got != "https://example.com" {
		t.Fatalf("url = %q", got)
	}
}

func TestParseFrontmatter_EmptyValueAndBlankLines(t *testing.T) {
	h, _, err := ParseFrontmatter("---\n\ntitle: T\nimage:\n\n---\n")
	if err != nil {
		t.Fatalf("ParseFrontmatter: %v", err)
	}
	v, ok := h.Get("image")
	if !ok || v != "" {
		t.Fatalf("image = %q, %v; want empty and present", v, ok)
	}
	if h.Len() != 2 {
		t.Fatalf("Len = %d, want 2", h.Len())
	}
}

func TestUnquote(t *testing.T) {
	cases := map[string]string{
		`"A"`:          "A",
		`'A'`:          "A",
		`"mixed'`:      `"mixed'`,
		`"`:            `"`,
		`""`:           "",
		`"say "hi""`:   `say "hi"`,
		`it's fine`:    `it's fine`,
		`'nested "q"'`: `nested "q"`,
	}
	for in, want := range cases {
		if got := unquote(in); got != want {
			t.Errorf("unquote(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestParseFrontmatter_Errors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		line int
	}{
		{"no header", "# Just a body\n\nNo header here.", 0},
		{"unclosed", "---\ntitle: x\nbody", 1},
		{"unclosed after blank lines", "\n\n---\ntitle: x\n", 3},
		{"dashes inside text only", "text --- more text", 0},
		{"missing separator", "---\ntitle: ok\nthis line has no separator\n---\n", 3},
		{"colon without space", "---\ntitle:value\n---\n", 2},
		{"empty key", "---\n: value\n---\n", 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ParseFrontmatter(tc.raw)
			if !errors.Is(err, ErrMalformedContent) {
				t.Fatalf("err = %v, want ErrMalformedContent", err)
			}
			var me *MalformedContentError
			if !errors.As(err, &me) {
				t.Fatalf("err is %T, want *MalformedContentError", err)
			}
			if me.Line != tc.line {
				t.Fatalf("Line = %d, want %d", me.Line, tc.line)
			}
		})
	}
}
