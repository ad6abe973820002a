package platform

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
)

type startCrawlRequest struct {
	BrokerID string              `json:"brokerId"`
	Options  domain.CrawlOptions `json:"options"`
}

// StartCrawl starts a crawl and returns the job id.
func (c *Client) StartCrawl(ctx context.Context, scope domain.Scope, brokerID string, opts domain.CrawlOptions) (string, error) {
	var out struct {
		JobID string `json:"jobId"`
	}
	err := c.call(ctx, request{
		method: http.MethodPost,
		path:   scoped(scope, "/crawl"),
		body:   startCrawlRequest{BrokerID: brokerID, Options: opts},
	}, "", &out)
	if err != nil {
		return "", err
	}
	if out.JobID == "" {
		return "", fmt.Errorf("start crawl: %w: missing jobId", domain.ErrUnexpectedResponse)
	}
	return out.JobID, nil
}

// StartBatchCrawl starts crawls for several websites through the admin routes.
func (c *Client) StartBatchCrawl(ctx context.Context, brokerIDs []string) (*domain.BatchCrawlResult, error) {
	var result domain.BatchCrawlResult
	err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/admin/crawl/batch",
		body:   map[string][]string{"brokerIds": brokerIDs},
	}, "", &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CrawlStatus fetches the current status of a job.
func (c *Client) CrawlStatus(ctx context.Context, scope domain.Scope, jobID string) (*domain.CrawlStatusReport, error) {
	var report domain.CrawlStatusReport
	err := c.call(ctx, request{
		method: http.MethodGet,
		path:   scoped(scope, "/crawl/"+seg(jobID)+"/status"),
	}, "", &report)
	if err != nil {
		return nil, err
	}
	if report.Status == "" {
		return nil, fmt.Errorf("crawl status %s: %w: missing status", jobID, domain.ErrUnexpectedResponse)
	}
	if report.JobID == "" {
		report.JobID = jobID
	}
	return &report, nil
}

// OpenLogStream opens the server-sent event stream of a job's logs.
// Event streams cannot carry headers from a browser, so the server takes
// the token as a query parameter; the same convention is kept here.
func (c *Client) OpenLogStream(ctx context.Context, scope domain.Scope, jobID string) (io.ReadCloser, error) {
	if c.creds == nil {
		return nil, domain.ErrAuthRequired
	}
	token, err := c.creds.Token(ctx)
	if err != nil {
		return nil, err
	}

	path := "/crawl/" + seg(jobID) + "/logs"
	if scope == domain.ScopeAdmin {
		path = "/admin" + path
	}
	resp, _, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   path,
		query:  url.Values{"token": {token}},
		anon:   true,
		stream: true,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
