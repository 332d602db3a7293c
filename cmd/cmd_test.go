package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/flashmemo/flashmemo/pkg/storage"
)

func TestFormatNormalized(t *testing.T) {
	tests := []struct {
		raw, flags, delim string
		want              string
	}{
		{"youtube://watch?v=abc", "ca", " ", "https://youtube.com/watch?v=abc YouTube"},
		{"instagram://media?id=X1", "rca", ",", "instagram://media?id=X1,https://instagram.com/p/X1,Instagram"},
		{"https://twitter.com/a/status/1", "a", " ", "X"},
		{"mailto:someone@example.com", "ca", "\t", "mailto:someone@example.com\t-"},
		{"not a url", "c", " ", "not a url"},
	}
	for _, tt := range tests {
		if got := formatNormalized(tt.raw, tt.flags, tt.delim); got != tt.want {
			t.Errorf("formatNormalized(%q, %q) = %q, want %q", tt.raw, tt.flags, got, tt.want)
		}
	}
}

func TestValidateOutputFlags(t *testing.T) {
	for _, ok := range []string{"c", "ca", "rca", "aa"} {
		if err := validateOutputFlags(ok); err != nil {
			t.Errorf("validateOutputFlags(%q) unexpected error: %v", ok, err)
		}
	}
	for _, bad := range []string{"", "x", "cu"} {
		if err := validateOutputFlags(bad); err == nil {
			t.Errorf("validateOutputFlags(%q) expected error", bad)
		}
	}
}

func TestListOptionsFromFlags(t *testing.T) {
	set := func(name, value string) {
		t.Helper()
		f := linksListCmd.Flags().Lookup(name)
		old := f.Value.String()
		if err := linksListCmd.Flags().Set(name, value); err != nil {
			t.Fatalf("setting %s: %v", name, err)
		}
		t.Cleanup(func() {
			if name == "tag" {
				f.Value.(interface{ Replace([]string) error }).Replace(nil)
			} else {
				linksListCmd.Flags().Set(name, old)
			}
			f.Changed = false
		})
	}

	set("app", "yt")
	set("unread", "true")
	set("tag", "go,news")
	set("sort", "title")

	opts, err := listOptionsFromFlags(linksListCmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.App != "YouTube" {
		t.Errorf("App = %q, want YouTube", opts.App)
	}
	if opts.IsRead == nil || *opts.IsRead {
		t.Errorf("IsRead = %v, want false", opts.IsRead)
	}
	if strings.Join(opts.Tags, ",") != "go,news" {
		t.Errorf("Tags = %v", opts.Tags)
	}
	if opts.SortBy != storage.SortTitle {
		t.Errorf("SortBy = %q", opts.SortBy)
	}

	set("read", "true")
	if _, err := listOptionsFromFlags(linksListCmd); err == nil {
		t.Fatal("expected error for --read with --unread")
	}
}

func TestPrintLinks(t *testing.T) {
	var buf bytes.Buffer
	err := printLinks(&buf, []storage.Link{
		{ID: "1", OriginalApp: "Web", URL: "https://example.com", Title: strings.Repeat("t", 60), ReadingTime: 4, IsRead: true},
		{ID: "2", OriginalApp: "X", URL: "https://x.com/status/1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %q", buf.String())
	}
	if !strings.Contains(lines[1], strings.Repeat("t", 49)+"…") || !strings.Contains(lines[1], " 4 ") {
		t.Errorf("unexpected first row %q", lines[1])
	}
	if !strings.Contains(lines[2], "https://x.com/status/1") {
		t.Errorf("unexpected second row %q", lines[2])
	}
}
