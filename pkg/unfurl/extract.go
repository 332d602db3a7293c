package unfurl

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"github.com/flashmemo/flashmemo/pkg/storage"
)

// WordsPerMinute is the reading speed used for reading-time estimates.
const WordsPerMinute = 200

// Extract reads page metadata from an HTML document. pageURL resolves
// relative image references.
func Extract(body []byte, pageURL string) (storage.Metadata, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return storage.Metadata{}, err
	}

	m := storage.Metadata{
		Title: firstNonEmpty(
			metaContent(doc, "property", "og:title"),
			metaContent(doc, "name", "twitter:title"),
			doc.Find("title").First().Text(),
		),
		Description: firstNonEmpty(
			metaContent(doc, "property", "og:description"),
			metaContent(doc, "name", "description"),
			metaContent(doc, "name", "twitter:description"),
		),
		Source: metaContent(doc, "property", "og:site_name"),
	}

	if img := firstNonEmpty(
		metaContent(doc, "property", "og:image"),
		metaContent(doc, "name", "twitter:image"),
	); img != "" {
		m.ThumbnailURL = resolve(pageURL, img)
	}

	doc.Find("script, style, noscript, template").Remove()
	m.ReadingTime = ReadingTime(doc.Find("body").Text())
	return m, nil
}

// ReadingTime estimates minutes needed to read text, rounding up.
func ReadingTime(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return (words + WordsPerMinute - 1) / WordsPerMinute
}

// ExtractOEmbed reads metadata from an oEmbed JSON response.
func ExtractOEmbed(body []byte) storage.Metadata {
	res := gjson.GetManyBytes(body, "title", "thumbnail_url", "provider_name", "author_name")
	m := storage.Metadata{
		Title:        clean(res[0].String()),
		ThumbnailURL: res[1].String(),
		Source:       res[2].String(),
	}
	if author := clean(res[3].String()); author != "" {
		m.Description = "by " + author
	}
	return m
}

func metaContent(doc *goquery.Document, attr, key string) string {
	var out string
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, ok := s.Attr(attr); ok && strings.EqualFold(v, key) {
			out = s.AttrOr("content", "")
			return false
		}
		return true
	})
	return clean(out)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = clean(v); v != "" {
			return v
		}
	}
	return ""
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func resolve(base, ref string) string {
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil || r.IsAbs() {
		return r.String()
	}
	return b.ResolveReference(r).String()
}
