package models

// Product is one listing to place on Marktplaats. It is built once by a
// reader (CSV or API) and never mutated afterwards; everything that happens
// to it during a run is expressed as a PostResult.
type Product struct {
	Title          string
	Description    string
	Price          string // locale-formatted text, the site does its own formatting
	CategoryPath   string // ">"-delimited root-to-leaf path; empty means auto-suggest
	Location       string
	Photos         []string
	ArticleNumber  string
	Condition      string
	DeliveryOption string
	// CategoryFields holds category-dependent attributes (material,
	// thickness, totalSurface, ...). There is no fixed schema; each entry is
	// applied best-effort.
	CategoryFields map[string]string
}

// Result statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// PostResult records the outcome of posting one product. One per product,
// success or failure, appended to the batch result list.
type PostResult struct {
	ArticleNumber string `json:"article_number,omitempty"`
	Title         string `json:"title"`
	Status        string `json:"status"`
	AdURL         string `json:"ad_url,omitempty"`
	AdID          string `json:"ad_id,omitempty"`
	Views         int    `json:"views"`
	Saves         int    `json:"saves"`
	PostedAt      string `json:"posted_at,omitempty"`
	Error         string `json:"error,omitempty"`
}

// AdStats are the engagement numbers scraped from a published ad page.
type AdStats struct {
	AdID     string
	Views    int
	Saves    int
	PostedAt string
}
