package unfurl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flashmemo/flashmemo/pkg/storage"
	"github.com/stretchr/testify/require"
)

const articleHTML = `<!doctype html>
<html><head>
<title>  Fallback   title </title>
<meta property="og:title" content="An Article">
<meta name="description" content="Plain description">
<meta property="og:image" content="/img/cover.png">
<meta property="og:site_name" content="Example News">
<script>var ignored = "one two three";</script>
</head>
<body><p>%s</p></body></html>`

func TestExtract(t *testing.T) {
	body := fmt.Sprintf(articleHTML, strings.Repeat("word ", 450))
	m, err := Extract([]byte(body), "https://example.com/posts/1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Title != "An Article" {
		t.Errorf("title = %q", m.Title)
	}
	if m.Description != "Plain description" {
		t.Errorf("description = %q", m.Description)
	}
	if m.ThumbnailURL != "https://example.com/img/cover.png" {
		t.Errorf("thumbnail = %q", m.ThumbnailURL)
	}
	if m.Source != "Example News" {
		t.Errorf("source = %q", m.Source)
	}
	if m.ReadingTime != 3 {
		t.Errorf("reading time = %d, want 3", m.ReadingTime)
	}
}

func TestExtractFallbackTitle(t *testing.T) {
	m, err := Extract([]byte("<html><head><title>\n Only  title\n</title></head><body></body></html>"), "https://example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Title != "Only title" {
		t.Fatalf("title = %q", m.Title)
	}
	if m.ReadingTime != 0 || m.ThumbnailURL != "" {
		t.Fatalf("unexpected metadata %#v", m)
	}
}

func TestReadingTime(t *testing.T) {
	tests := map[int]int{0: 0, 1: 1, 200: 1, 201: 2, 1000: 5}
	for words, want := range tests {
		if got := ReadingTime(strings.Repeat("w ", words)); got != want {
			t.Errorf("ReadingTime(%d words) = %d, want %d", words, got, want)
		}
	}
}

func TestExtractOEmbed(t *testing.T) {
	m := ExtractOEmbed([]byte(`{"title":"Never Gonna","author_name":"Rick","provider_name":"YouTube","thumbnail_url":"https://i.ytimg.com/vi/x/hq.jpg"}`))
	require.Equal(t, storage.Metadata{
		Title:        "Never Gonna",
		Description:  "by Rick",
		ThumbnailURL: "https://i.ytimg.com/vi/x/hq.jpg",
		Source:       "YouTube",
	}, m)
}

func newTestFetcher(t *testing.T, cfg Config) *Fetcher {
	t.Helper()
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = 5 * time.Millisecond
	f, err := NewFetcher(cfg)
	require.NoError(t, err)
	return f
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		require.Contains(t, r.Header.Get("User-Agent"), "flashmemo")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<title>ok</title>")
	}))
	defer srv.Close()

	page, err := newTestFetcher(t, Config{RetryMax: 3}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, page.StatusCode)
	require.Equal(t, "<title>ok</title>", string(page.Body))
	require.EqualValues(t, 3, atomic.LoadInt32(&hits))
}

func TestFetchClientError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := newTestFetcher(t, Config{}).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	require.Contains(t, err.Error(), "404")
}

func TestFetchDecodesCharset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write([]byte("<title>Caf\xe9</title>"))
	}))
	defer srv.Close()

	page, err := newTestFetcher(t, Config{}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "<title>Café</title>", string(page.Body))
}

func TestFetchLimitsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, strings.Repeat("a", 100))
	}))
	defer srv.Close()

	page, err := newTestFetcher(t, Config{MaxBodyBytes: 10}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, page.Body, 10)
}

func TestUnfurlYouTubeUsesOEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "json", r.URL.Query().Get("format"))
		require.Equal(t, "https://youtube.com/watch?v=abc", r.URL.Query().Get("url"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"title":"A video","provider_name":"YouTube"}`)
	}))
	defer srv.Close()

	f := newTestFetcher(t, Config{OEmbedEndpoint: srv.URL + "/oembed"})
	m, err := f.Unfurl(context.Background(), storage.Link{URL: "https://youtube.com/watch?v=abc"})
	require.NoError(t, err)
	require.Equal(t, "A video", m.Title)
	require.Equal(t, "YouTube", m.Source)
}

func TestUnfurlHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, articleHTML, "short text")
	}))
	defer srv.Close()

	m, err := newTestFetcher(t, Config{}).Unfurl(context.Background(), storage.Link{URL: srv.URL + "/a"})
	require.NoError(t, err)
	require.Equal(t, "An Article", m.Title)
	require.Equal(t, srv.URL+"/img/cover.png", m.ThumbnailURL)
	require.Equal(t, 1, m.ReadingTime)
}

type fakeUnfurler struct {
	mu   sync.Mutex
	seen []string
	err  error
}

func (f *fakeUnfurler) Unfurl(_ context.Context, l storage.Link) (storage.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, l.URL)
	if f.err != nil {
		return storage.Metadata{}, f.err
	}
	return storage.Metadata{Title: "title of " + l.URL, ReadingTime: 2}, nil
}

func openDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "unfurl.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestQueueEnrichesSavedLinks(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	u := &fakeUnfurler{}
	q := NewQueue(db, u, QueueOptions{Concurrency: 2})

	var ids []string
	for i := 0; i < 5; i++ {
		l, err := db.SaveLink(ctx, "alice", storage.SaveRequest{URL: fmt.Sprintf("https://example.com/%d", i), OriginalApp: "Web"})
		require.NoError(t, err)
		ids = append(ids, l.ID)
		q.Enqueue(l.ID)
	}
	q.Close()
	// Enqueue after Close is a no-op.
	q.Enqueue(ids[0])

	for i, id := range ids {
		l, err := db.GetLink(ctx, "alice", id)
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("title of https://example.com/%d", i), l.Title)
		require.Equal(t, 2, l.ReadingTime)
		require.NotNil(t, l.UnfurledAt)
	}
	require.Len(t, u.seen, 5)
}

func TestRunPendingMarksFailuresUnfurled(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := db.SaveLink(ctx, "bob", storage.SaveRequest{URL: fmt.Sprintf("https://dead.example/%d", i), OriginalApp: "Web"})
		require.NoError(t, err)
	}

	u := &fakeUnfurler{err: errors.New("connection refused")}
	summary, err := RunPending(ctx, db, u, 2, 10, nil)
	require.NoError(t, err)
	require.Equal(t, 3, summary.Processed)
	require.Equal(t, 3, summary.Failed)

	pending, err := db.ListPendingUnfurl(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, pending)

	summary, err = RunPending(ctx, db, u, 2, 10, nil)
	require.NoError(t, err)
	require.Zero(t, summary.Processed)
}

func TestProcessMissingLink(t *testing.T) {
	db := openDB(t)
	err := Process(context.Background(), db, &fakeUnfurler{}, "nope", nil)
	require.ErrorIs(t, err, storage.ErrNotFound)
}
