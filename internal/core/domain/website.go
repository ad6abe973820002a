package domain

import "time"

// Default crawl settings applied to new websites.
const (
	DefaultMaxPages   = 100
	DefaultCrawlDelay = 1000
	DefaultUserAgent  = "RAG-Bot/1.0"
)

// Website is a tenant's registered site and crawl configuration,
// identified by its broker ID.
type Website struct {
	BrokerID       string          `json:"brokerId"`
	Name           string          `json:"name"`
	Domain         string          `json:"domain"`
	BaseURL        string          `json:"baseUrl,omitempty"`
	Status         string          `json:"status,omitempty"`
	Domains        []WebsiteDomain `json:"domains,omitempty"`
	CrawlSettings  CrawlSettings   `json:"crawlSettings"`
	Metadata       WebsiteMetadata `json:"metadata"`
	NoDataResponse string          `json:"noDataResponse,omitempty"`
	OwnerID        string          `json:"ownerId,omitempty"`
	PageCount      int             `json:"pageCount,omitempty"`
	ContentCount   int             `json:"contentCount,omitempty"`
	LastCrawledAt  *time.Time      `json:"lastCrawledAt,omitempty"`
	CreatedAt      time.Time       `json:"createdAt,omitempty"`
}

// WebsiteDomain is an extra domain or subdomain crawled for a website.
type WebsiteDomain struct {
	URL           string        `json:"url"`
	Type          string        `json:"type,omitempty"`
	SpecificPages []string      `json:"specificPages,omitempty"`
	CrawlSettings CrawlSettings `json:"crawlSettings"`
}

// CrawlSettings configures how a website is crawled.
type CrawlSettings struct {
	MaxPages      int      `json:"maxPages,omitempty"`
	CrawlDelay    int      `json:"crawlDelay,omitempty"`
	RespectRobots *bool    `json:"respectRobots,omitempty"`
	AllowedPaths  []string `json:"allowedPaths,omitempty"`
	ExcludedPaths []string `json:"excludedPaths,omitempty"`
	UserAgent     string   `json:"userAgent,omitempty"`
}

// RobotsRespected reports whether robots.txt is honoured. Unset means yes.
func (cs CrawlSettings) RobotsRespected() bool {
	return cs.RespectRobots == nil || *cs.RespectRobots
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}

// WebsiteMetadata is free-form descriptive data about a website.
type WebsiteMetadata struct {
	Industry    string   `json:"industry,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// DefaultCrawlSettings returns the settings used when none are given.
func DefaultCrawlSettings() CrawlSettings {
	return CrawlSettings{
		MaxPages:      DefaultMaxPages,
		CrawlDelay:    DefaultCrawlDelay,
		RespectRobots: Bool(true),
		ExcludedPaths: []string{"/admin", "/api", "/private"},
		UserAgent:     DefaultUserAgent,
	}
}

// WebsiteStats summarises indexed content for a website.
type WebsiteStats struct {
	BrokerID     string     `json:"brokerId"`
	PageCount    int        `json:"pageCount"`
	ChunkCount   int        `json:"chunkCount"`
	QueryCount   int        `json:"queryCount"`
	LastCrawled  *time.Time `json:"lastCrawled,omitempty"`
	CrawlJobs    int        `json:"crawlJobs,omitempty"`
	StorageBytes int64      `json:"storageBytes,omitempty"`
}

// DashboardStats is the aggregate shown on the dashboard.
type DashboardStats struct {
	TotalWebsites int `json:"totalWebsites"`
	TotalPages    int `json:"totalPages"`
	TotalQueries  int `json:"totalQueries"`
	ActiveCrawls  int `json:"activeCrawls"`
	TotalUsers    int `json:"totalUsers,omitempty"`
}
