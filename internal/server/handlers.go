package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/flashmemo/flashmemo/internal/utils"
	"github.com/flashmemo/flashmemo/pkg/intake"
	"github.com/flashmemo/flashmemo/pkg/linkurl"
	"github.com/flashmemo/flashmemo/pkg/storage"
)

const maxShareBody = 64 << 10

// ShareResponse is the outcome of a share request.
type ShareResponse struct {
	Status        intake.Status `json:"status"`
	Message       string        `json:"message"`
	Link          *storage.Link `json:"link,omitempty"`
	ReturnAfterMS int64         `json:"return_after_ms"`
}

// shareRaw rebuilds the shared string from the request. GET requests carry
// the share payload as a query string, as a share deep link would.
func shareRaw(r *http.Request) (string, error) {
	if r.Method == http.MethodGet {
		q := r.URL.Query()
		if raw := q.Get("raw"); raw != "" {
			return raw, nil
		}
		if r.URL.RawQuery == "" {
			return "", nil
		}
		return "flashmemo://share?" + r.URL.RawQuery, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxShareBody))
	if err != nil {
		return "", err
	}
	if !gjson.ValidBytes(body) {
		return "", errors.New("request body is not valid JSON")
	}
	// raw is a full share payload; url and text carry the link itself.
	res := gjson.GetManyBytes(body, "raw", "url", "text")
	if raw := res[0].String(); raw != "" {
		return raw, nil
	}
	if u := res[1].String(); u != "" {
		return intake.WrapTarget(u), nil
	}
	if text := res[2].String(); text != "" {
		return intake.WrapTarget(text), nil
	}
	return "", nil
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	raw, err := shareRaw(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.Intake.Handle(r.Context(), ownerFrom(r.Context()), raw)
	code := http.StatusCreated
	switch {
	case err == nil:
	case errors.Is(err, intake.ErrDevelopmentURL):
		code = http.StatusAccepted
	case errors.Is(err, intake.ErrNoValidLink):
		code = http.StatusUnprocessableEntity
	default:
		utils.Log.Errorf("share failed: %v", err)
		code = http.StatusBadGateway
	}

	writeJSON(w, code, ShareResponse{
		Status:        res.Status,
		Message:       res.Message,
		Link:          res.Link,
		ReturnAfterMS: res.ReturnAfter.Milliseconds(),
	})
}

func listOptionsFromQuery(r *http.Request) (storage.ListOptions, error) {
	q := r.URL.Query()
	opts := storage.ListOptions{
		Query:  q.Get("q"),
		Tags:   q["tag"],
		App:    q.Get("app"),
		SortBy: q.Get("sort"),
	}
	if v := q.Get("read"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errors.New("read must be true or false")
		}
		opts.IsRead = &b
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, errors.New("limit must be a non-negative integer")
		}
		opts.Limit = n
	}
	return opts, nil
}

func (s *Server) handleListLinks(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptionsFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	links, err := s.DB.ListLinks(r.Context(), ownerFrom(r.Context()), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	if links == nil {
		links = []storage.Link{}
	}
	writeJSON(w, http.StatusOK, links)
}

func (s *Server) handleGetLink(w http.ResponseWriter, r *http.Request) {
	link, err := s.DB.GetLink(r.Context(), ownerFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func (s *Server) handleSetRead(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxShareBody))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	owner, id := ownerFrom(r.Context()), r.PathValue("id")
	var link storage.Link
	read := gjson.GetBytes(body, "read")
	switch {
	case !read.Exists():
		link, err = s.DB.ToggleRead(r.Context(), owner, id)
	case read.Type == gjson.True || read.Type == gjson.False:
		link, err = s.DB.SetRead(r.Context(), owner, id, read.Bool())
	default:
		http.Error(w, "read must be a boolean", http.StatusBadRequest)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func (s *Server) handleDeleteLink(w http.ResponseWriter, r *http.Request) {
	if err := s.DB.DeleteLink(r.Context(), ownerFrom(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.DB.GetStats(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.DB.ListTags(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

type normalizeResponse struct {
	CanonicalURL string `json:"canonical_url"`
	App          string `json:"app"`
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("raw")
	writeJSON(w, http.StatusOK, normalizeResponse{
		CanonicalURL: linkurl.Normalize(raw),
		App:          linkurl.Classify(raw).String(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utils.Log.Debugf("writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, storage.ErrInvalidOwner), errors.Is(err, storage.ErrInvalidURL):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		utils.Log.Errorf("request failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
