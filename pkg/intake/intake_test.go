package intake

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/flashmemo/flashmemo/pkg/linkurl"
	"github.com/flashmemo/flashmemo/pkg/storage"
	"github.com/stretchr/testify/require"
)

type fakeSaver struct {
	mu    sync.Mutex
	calls []storage.SaveRequest
	err   error
}

func (f *fakeSaver) SaveLink(_ context.Context, owner string, req storage.SaveRequest) (storage.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return storage.Link{}, f.err
	}
	return storage.Link{ID: "id-1", Owner: owner, URL: req.URL, OriginalApp: req.OriginalApp, Tags: req.Tags}, nil
}

type fakeQueue struct{ ids []string }

func (q *fakeQueue) Enqueue(id string) { q.ids = append(q.ids, id) }

func TestHandleSavesCanonicalLink(t *testing.T) {
	saver := &fakeSaver{}
	queue := &fakeQueue{}
	h := NewHandler(saver, WithEnqueuer(queue))

	res, err := h.Handle(context.Background(), "alice", "flashmemo://share?url=https%3A%2F%2Fwww.youtube.com%2Fwatch%3Fv%3Dabc")
	require.NoError(t, err)
	require.Equal(t, StatusSaved, res.Status)
	require.Equal(t, MessageSaved, res.Message)
	require.Equal(t, "https://www.youtube.com/watch?v=abc", res.CanonicalURL)
	require.Equal(t, linkurl.YouTube, res.App)
	require.Equal(t, ReturnDelay, res.ReturnAfter)
	require.NotNil(t, res.Link)

	require.Len(t, saver.calls, 1)
	require.Equal(t, storage.SaveRequest{
		URL:         "https://www.youtube.com/watch?v=abc",
		OriginalApp: "YouTube",
		Tags:        []string{"shared"},
	}, saver.calls[0])
	require.Equal(t, []string{"id-1"}, queue.ids)
}

func TestHandleUnknownWebLinkIsLabelledWeb(t *testing.T) {
	saver := &fakeSaver{}
	h := NewHandler(saver)

	res, err := h.Handle(context.Background(), "alice", "https://example.com/article")
	require.NoError(t, err)
	require.Equal(t, linkurl.Web, res.App)
	require.Equal(t, "https://example.com/article", saver.calls[0].URL)
	require.Equal(t, "Web", saver.calls[0].OriginalApp)
}

func TestHandleIgnoresDevelopmentURLs(t *testing.T) {
	saver := &fakeSaver{}
	h := NewHandler(saver)

	for _, raw := range []string{
		"exp://192.168.1.10:8081",
		"exps://u.expo.dev/abc",
		"expo-development://expo-development-client/?url=http%3A%2F%2Fx",
		"flashmemo://share?url=http://localhost:3000/a",
		"https://127.0.0.1/",
	} {
		res, err := h.Handle(context.Background(), "alice", raw)
		require.ErrorIs(t, err, ErrDevelopmentURL, raw)
		require.Equal(t, StatusIgnored, res.Status)
	}
	require.Empty(t, saver.calls)
}

func TestHandleNoValidLink(t *testing.T) {
	saver := &fakeSaver{}
	h := NewHandler(saver)

	for _, raw := range []string{
		"flashmemo://share?text=hello%20world",
		"flashmemo://share?foo=bar",
		"instagram://media?id=123",
		"not-a-url",
		"",
	} {
		res, err := h.Handle(context.Background(), "alice", raw)
		require.ErrorIs(t, err, ErrNoValidLink, raw)
		require.Equal(t, StatusNoLink, res.Status)
		require.Equal(t, MessageNoLink, res.Message)
	}
	require.Empty(t, saver.calls)
}

func TestHandleSaveFailure(t *testing.T) {
	cause := errors.New("backend down")
	queue := &fakeQueue{}
	h := NewHandler(&fakeSaver{err: cause}, WithEnqueuer(queue))

	res, err := h.Handle(context.Background(), "alice", "https://x.com/status/1")
	require.ErrorIs(t, err, ErrSaveFailed)
	require.ErrorIs(t, err, cause)
	require.Equal(t, StatusFailed, res.Status)
	require.Equal(t, MessageFailed, res.Message)
	require.Equal(t, ReturnDelay, res.ReturnAfter)
	require.Empty(t, queue.ids)
}

func TestHandleWithCustomTags(t *testing.T) {
	saver := &fakeSaver{}
	h := NewHandler(saver, WithTags("later", "shared"))

	_, err := h.Handle(context.Background(), "alice", "https://instagram.com/p/1")
	require.NoError(t, err)
	require.Equal(t, []string{"later", "shared"}, saver.calls[0].Tags)
	require.Equal(t, "Instagram", saver.calls[0].OriginalApp)
}

func TestHandleBareLinks(t *testing.T) {
	saver := &fakeSaver{}
	h := NewHandler(saver)
	ctx := context.Background()

	res, err := h.Handle(ctx, "alice", PayloadFor("instagram://media?id=CxYz"))
	require.NoError(t, err)
	require.Equal(t, StatusSaved, res.Status)
	require.Equal(t, "https://instagram.com/p/CxYz", res.CanonicalURL)
	require.Equal(t, linkurl.Instagram, res.App)

	res, err = h.Handle(ctx, "alice", WrapTarget("https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42"))
	require.NoError(t, err)
	require.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42", res.CanonicalURL)
	require.Equal(t, linkurl.YouTube, res.App)

	_, err = h.Handle(ctx, "alice", WrapTarget("http://127.0.0.1:8081/?x=1"))
	require.ErrorIs(t, err, ErrDevelopmentURL)

	_, err = h.Handle(ctx, "alice", WrapTarget("not a link"))
	require.ErrorIs(t, err, ErrNoValidLink)
	require.Len(t, saver.calls, 2)
}

func TestHandleConcurrentShares(t *testing.T) {
	saver := &fakeSaver{}
	h := NewHandler(saver)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.Handle(context.Background(), "alice", "https://example.com")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	require.Len(t, saver.calls, 20)
}
