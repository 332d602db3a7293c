package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flashmemo/flashmemo/pkg/linkurl"
	"github.com/flashmemo/flashmemo/pkg/storage"
)

var (
	ErrDevelopmentURL = errors.New("development url ignored")
	ErrNoValidLink    = errors.New("no valid link found")
	ErrSaveFailed     = errors.New("failed to save link")
)

// ReturnDelay is how long a client shows the outcome before going back to
// the main view.
const ReturnDelay = 2 * time.Second

// DefaultTags are attached to every shared link.
var DefaultTags = []string{"shared"}

// Status is the terminal outcome of one share.
type Status string

const (
	StatusSaved   Status = "saved"
	StatusIgnored Status = "ignored"
	StatusNoLink  Status = "no_link"
	StatusFailed  Status = "failed"
)

// User-visible messages per outcome.
const (
	MessageSaved   = "Link saved"
	MessageNoLink  = "No valid link found"
	MessageFailed  = "Something went wrong"
	MessageIgnored = ""
)

// Saver is the save capability handed to the intake. *storage.DB satisfies it.
type Saver interface {
	SaveLink(ctx context.Context, owner string, req storage.SaveRequest) (storage.Link, error)
}

// Enqueuer receives saved link IDs for asynchronous enrichment.
type Enqueuer interface {
	Enqueue(linkID string)
}

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Result describes what happened to a shared string.
type Result struct {
	Status       Status
	Message      string
	Target       string
	CanonicalURL string
	App          linkurl.SourceApp
	Link         *storage.Link
	ReturnAfter  time.Duration
}

// Handler runs the share intake. It holds no mutable state, so one Handler
// may serve concurrent shares.
type Handler struct {
	saver    Saver
	enqueuer Enqueuer
	log      Logger
	tags     []string
}

// Option configures a Handler.
type Option func(*Handler)

// WithEnqueuer triggers enrichment for every saved link.
func WithEnqueuer(e Enqueuer) Option {
	return func(h *Handler) { h.enqueuer = e }
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(l Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// WithTags replaces the default tag set.
func WithTags(tags ...string) Option {
	return func(h *Handler) { h.tags = append([]string(nil), tags...) }
}

func NewHandler(saver Saver, opts ...Option) *Handler {
	h := &Handler{
		saver: saver,
		log:   nopLogger{},
		tags:  DefaultTags,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Handle processes one shared string for owner. The returned error is one of
// ErrDevelopmentURL, ErrNoValidLink or a wrapped ErrSaveFailed; the Result is
// always populated so callers can render it.
func (h *Handler) Handle(ctx context.Context, owner, raw string) (Result, error) {
	res := Result{ReturnAfter: ReturnDelay}

	if IsDevelopmentURL(raw) {
		h.log.Debugf("[intake] ignoring development url %q", raw)
		res.Status = StatusIgnored
		res.Message = MessageIgnored
		return res, ErrDevelopmentURL
	}

	target, ok := ExtractTarget(raw)
	if !ok || !ValidTarget(target) {
		h.log.Infof("[intake] no valid link in %q", raw)
		res.Status = StatusNoLink
		res.Message = MessageNoLink
		return res, ErrNoValidLink
	}
	res.Target = target
	res.CanonicalURL = linkurl.Normalize(target)
	res.App = linkurl.Classify(target)
	if res.App == linkurl.NoApp {
		res.App = linkurl.Web
	}

	link, err := h.saver.SaveLink(ctx, owner, storage.SaveRequest{
		URL:         res.CanonicalURL,
		OriginalApp: res.App.String(),
		Tags:        h.tags,
	})
	if err != nil {
		h.log.Errorf("[intake] saving %s for %s: %v", res.CanonicalURL, owner, err)
		res.Status = StatusFailed
		res.Message = MessageFailed
		return res, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	h.log.Infof("[intake] saved %s (%s) for %s", link.URL, res.App, owner)
	res.Status = StatusSaved
	res.Message = MessageSaved
	res.Link = &link
	if h.enqueuer != nil {
		h.enqueuer.Enqueue(link.ID)
	}
	return res, nil
}
