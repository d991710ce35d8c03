package quran

import (
	"os"
	"path/filepath"
	"testing"

	logx "wirdbot/pkg/logx"
)

func TestLinkTemplateClamping(t *testing.T) {
	t.Parallel()

	l := NewLinks("https://cdn.example.com/pages/%d.png")

	cases := []struct {
		page int
		want string
	}{
		{1, "https://cdn.example.com/pages/1.png"},
		{604, "https://cdn.example.com/pages/604.png"},
		{0, "https://cdn.example.com/pages/1.png"},
		{-3, "https://cdn.example.com/pages/1.png"},
		{605, "https://cdn.example.com/pages/604.png"},
	}
	for _, c := range cases {
		got, ok := l.Link(c.page)
		if !ok || got != c.want {
			t.Fatalf("Link(%d) = %q, %v, want %q", c.page, got, ok, c.want)
		}
	}
}

func TestLinkMissesWithoutTemplate(t *testing.T) {
	t.Parallel()

	l := NewLinks("")
	if u, ok := l.Link(42); ok || u != "" {
		t.Fatalf("Link(42) = %q, %v, want miss", u, ok)
	}

	path := filepath.Join(t.TempDir(), "links.json")
	if err := os.WriteFile(path, []byte(`[{"name": "1.jpg", "url": "https://files.example.com/a1.jpg"}]`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	l = Load(path, "", logx.Nop())
	if u, ok := l.Link(1); !ok || u != "https://files.example.com/a1.jpg" {
		t.Fatalf("Link(1) = %q, %v", u, ok)
	}
	// No template: a page outside the file has no link at all.
	if u, ok := l.Link(2); ok || u != "" {
		t.Fatalf("Link(2) = %q, %v, want miss", u, ok)
	}
}

func TestLoadLinksFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "links.json")
	body := `[
		{"name": "1.jpg", "url": "https://files.example.com/a1.jpg"},
		{"name": "23.jpg", "url": "https://files.example.com/a23.jpg"},
		{"name": "junk", "url": "https://files.example.com/skip.jpg"},
		{"name": "999.jpg", "url": "https://files.example.com/skip2.jpg"},
		{"name": "7.jpg", "url": ""}
	]`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	l := Load(path, "https://cdn.example.com/%d.png", logx.Nop())

	if u, ok := l.Link(1); !ok || u != "https://files.example.com/a1.jpg" {
		t.Fatalf("Link(1) = %q, %v", u, ok)
	}
	if u, ok := l.Link(23); !ok || u != "https://files.example.com/a23.jpg" {
		t.Fatalf("Link(23) = %q, %v", u, ok)
	}
	// Pages the file doesn't cover fall back to the template.
	if u, ok := l.Link(2); !ok || u != "https://cdn.example.com/2.png" {
		t.Fatalf("Link(2) = %q, %v", u, ok)
	}
	if u, ok := l.Link(7); !ok || u != "https://cdn.example.com/7.png" {
		t.Fatalf("empty url entry should be skipped: Link(7) = %q, %v", u, ok)
	}
}

func TestLoadMissingOrMalformedFile(t *testing.T) {
	t.Parallel()

	l := Load(filepath.Join(t.TempDir(), "nope.json"), "", logx.Nop())
	if u, ok := l.Link(42); ok || u != "" {
		t.Fatalf("missing file without template must miss, got %q, %v", u, ok)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	l = Load(bad, "https://cdn.example.com/%d.png", logx.Nop())
	if u, ok := l.Link(3); !ok || u != "https://cdn.example.com/3.png" {
		t.Fatalf("malformed file fallback = %q, %v", u, ok)
	}
}
