package urlnorm

import "testing"

func TestSanitize_Basics(t *testing.T) {
	n := New(Options{})

	tests := []struct {
		name string
		raw  string
		want string // "" means rejected
	}{
		{"plain https", "https://example.com/docs", "https://example.com/docs"},
		{"fragment stripped", "https://example.com/docs#install", "https://example.com/docs"},
		{"trailing slash collapsed", "https://example.com/docs/", "https://example.com/docs"},
		{"root slash kept", "https://example.com/", "https://example.com/"},
		{"bare host gets root", "https://example.com", "https://example.com/"},
		{"query kept by default", "https://example.com/docs?page=2", "https://example.com/docs?page=2"},
		{"ftp rejected", "ftp://example.com/file", ""},
		{"mailto rejected", "mailto:docs@example.com", ""},
		{"javascript rejected", "javascript:void(0)", ""},
		{"png rejected", "https://example.com/logo.png", ""},
		{"zip rejected", "https://example.com/release.zip", ""},
		{"pdf rejected", "https://example.com/guide.pdf", ""},
		{"empty rejected", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Sanitize(tt.raw, "")
			if tt.want == "" {
				if got != nil {
					t.Fatalf("Sanitize(%q) = %q, want rejection", tt.raw, got.URL)
				}
				return
			}
			if got == nil {
				t.Fatalf("Sanitize(%q) = nil, want %q", tt.raw, tt.want)
			}
			if got.URL != tt.want {
				t.Errorf("Sanitize(%q).URL = %q, want %q", tt.raw, got.URL, tt.want)
			}
		})
	}
}

func TestSanitize_BlockedExtensionIgnoresQuery(t *testing.T) {
	n := New(Options{})
	if got := n.Sanitize("https://example.com/logo.png?v=2", ""); got != nil {
		t.Errorf("Sanitize(png with query) = %q, want rejection", got.URL)
	}
}

func TestSanitize_RelativeResolution(t *testing.T) {
	n := New(Options{})
	got := n.Sanitize("../api/reference", "https://example.com/docs/guide")
	if got == nil {
		t.Fatal("Sanitize(relative) = nil, want resolved URL")
	}
	if got.URL != "https://example.com/api/reference" {
		t.Errorf("resolved URL = %q, want %q", got.URL, "https://example.com/api/reference")
	}
}

func TestSanitize_SameOrigin(t *testing.T) {
	n := New(Options{SameOriginOnly: true})

	if got := n.Sanitize("https://other.com/docs", "https://example.com/"); got != nil {
		t.Errorf("cross-origin URL = %q, want rejection", got.URL)
	}
	if got := n.Sanitize("https://example.com/docs", "https://example.com/"); got == nil {
		t.Error("same-origin URL rejected, want accepted")
	}
}

func TestSanitize_RemoveQueryParams(t *testing.T) {
	n := New(Options{RemoveQueryParams: true})
	got := n.Sanitize("https://example.com/docs?utm_source=x", "")
	if got == nil {
		t.Fatal("Sanitize() = nil")
	}
	if got.URL != "https://example.com/docs" {
		t.Errorf("URL = %q, want query stripped", got.URL)
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	n := New(Options{})
	urls := []string{
		"https://example.com/docs/guide/#setup",
		"https://example.com/docs/?a=1",
		"https://EXAMPLE.com/Docs",
	}
	for _, raw := range urls {
		first := n.Sanitize(raw, "")
		if first == nil {
			t.Fatalf("Sanitize(%q) = nil", raw)
		}
		second := n.Sanitize(first.URL, "")
		if second == nil {
			t.Fatalf("Sanitize(%q) = nil on second pass", first.URL)
		}
		if first.URL != second.URL {
			t.Errorf("not idempotent: %q -> %q -> %q", raw, first.URL, second.URL)
		}
	}
}

func TestSanitize_PathSegments(t *testing.T) {
	n := New(Options{})
	got := n.Sanitize("https://example.com/docs/v2/api", "")
	if got == nil {
		t.Fatal("Sanitize() = nil")
	}
	want := []string{"docs", "v2", "api"}
	if len(got.PathSegments) != len(want) {
		t.Fatalf("PathSegments = %v, want %v", got.PathSegments, want)
	}
	for i := range want {
		if got.PathSegments[i] != want[i] {
			t.Errorf("PathSegments[%d] = %q, want %q", i, got.PathSegments[i], want[i])
		}
	}
}

func TestSeenSet(t *testing.T) {
	n := New(Options{})
	u := "https://example.com/docs"
	if n.HasSeen(u) {
		t.Error("HasSeen() = true before MarkSeen")
	}
	n.MarkSeen(u)
	if !n.HasSeen(u) {
		t.Error("HasSeen() = false after MarkSeen")
	}
	if n.SeenCount() != 1 {
		t.Errorf("SeenCount() = %d, want 1", n.SeenCount())
	}
}

func TestCleanRaw(t *testing.T) {
	tests := []struct {
		raw, want string
	}{
		{"  https://example.com  ", "https://example.com"},
		{"[docs](https://example.com/docs)", "https://example.com/docs"},
		{"https://example.com,", "https://example.com"},
		{"(https://example.com)", "https://example.com"},
		{"<https://example.com>", "https://example.com"},
	}
	for _, tt := range tests {
		if got := CleanRaw(tt.raw); got != tt.want {
			t.Errorf("CleanRaw(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
