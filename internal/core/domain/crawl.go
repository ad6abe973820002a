package domain

import "time"

// CrawlStatus is the server-reported state of a crawl job.
type CrawlStatus string

// Crawl job states. StatusUnknown is local only: polling failed and the
// real state could not be determined.
const (
	CrawlQueued    CrawlStatus = "queued"
	CrawlRunning   CrawlStatus = "running"
	CrawlCompleted CrawlStatus = "completed"
	CrawlFailed    CrawlStatus = "failed"
	CrawlUnknown   CrawlStatus = "unknown"
)

// IsTerminal returns true once the server will not change the status again.
func (s CrawlStatus) IsTerminal() bool {
	return s == CrawlCompleted || s == CrawlFailed
}

// String returns the string representation.
func (s CrawlStatus) String() string {
	return string(s)
}

// CrawlJob is an asynchronous server-side crawl of one website.
type CrawlJob struct {
	// ID is the server-assigned job id.
	ID string `json:"jobId"`

	// BrokerID identifies the website being crawled.
	BrokerID string `json:"brokerId"`

	// Scope is the route family the job was started through.
	Scope Scope `json:"scope"`

	// Status is the last known status.
	Status CrawlStatus `json:"status"`

	// PagesCrawled is reported by the status endpoint while running.
	PagesCrawled int `json:"pagesCrawled,omitempty"`

	// StartedAt is when the job was started locally.
	StartedAt time.Time `json:"startedAt"`

	// FinishedAt is set once a terminal status was observed.
	FinishedAt time.Time `json:"finishedAt,omitempty"`

	// LastError holds the polling error or server failure message.
	LastError string `json:"lastError,omitempty"`
}

// CrawlStatusReport is the body of the crawl status endpoint.
type CrawlStatusReport struct {
	JobID        string      `json:"jobId"`
	Status       CrawlStatus `json:"status"`
	PagesCrawled int         `json:"pagesCrawled,omitempty"`
	TotalPages   int         `json:"totalPages,omitempty"`
	Error        string      `json:"error,omitempty"`
}

// CrawlOptions are passed through to the crawler when starting a job.
type CrawlOptions struct {
	MaxPages      int  `json:"maxPages,omitempty"`
	ForceRecrawl  bool `json:"forceRecrawl,omitempty"`
	RespectRobots bool `json:"respectRobots,omitempty"`
}

// LogLevel classifies a crawl log entry.
type LogLevel string

// Crawl log levels.
const (
	LogInfo    LogLevel = "info"
	LogWarning LogLevel = "warning"
	LogError   LogLevel = "error"
	LogSuccess LogLevel = "success"
)

// CrawlLogEntry is one line of crawl progress streamed by the server.
type CrawlLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
}

// BatchCrawlResult is the response of the batch crawl endpoint.
type BatchCrawlResult struct {
	Jobs   []BatchCrawlJob `json:"jobs"`
	Failed []string        `json:"failed,omitempty"`
}

// BatchCrawlJob pairs a website with the job started for it.
type BatchCrawlJob struct {
	BrokerID string `json:"brokerId"`
	JobID    string `json:"jobId"`
}
