package storage

import "time"

// Link is a single saved link owned by one user.
type Link struct {
	ID     string `json:"id"`
	Owner  string `json:"-"`
	URL    string `json:"url"`
	Domain string `json:"domain,omitempty"`

	// OriginalApp is the source application label (see linkurl.SourceApp).
	OriginalApp string   `json:"original_app"`
	Tags        []string `json:"tags"`
	IsRead      bool     `json:"is_read"`

	// Filled in by enrichment
	Title        string `json:"title,omitempty"`
	Description  string `json:"description,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	ReadingTime  int    `json:"reading_time,omitempty"` // minutes
	Source       string `json:"source,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	UnfurledAt *time.Time `json:"unfurled_at,omitempty"`
}

// SaveRequest is what the share intake hands to SaveLink.
type SaveRequest struct {
	URL         string
	OriginalApp string
	Title       string
	Tags        []string
}

// Metadata is the result of enriching a link.
type Metadata struct {
	Title        string
	Description  string
	ThumbnailURL string
	ReadingTime  int
	Source       string
}

// Sort orders accepted by ListLinks.
const (
	SortNewest      = "newest"
	SortOldest      = "oldest"
	SortTitle       = "title"
	SortReadingTime = "readingTime"
)

// ListOptions controls selection when listing links.
type ListOptions struct {
	Query  string   // matched against title, description and URL
	Tags   []string // any of
	IsRead *bool
	App    string
	SortBy string
	Limit  int
}

// AppStats counts links per source application.
type AppStats struct {
	App    string `json:"app"`
	Total  int    `json:"total"`
	Unread int    `json:"unread"`
}

// TagCount is a tag with the number of links carrying it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}
