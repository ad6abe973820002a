package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driving"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	BrokerID  string `json:"broker_id" jsonschema:"broker ID of the website to ask"`
	Question  string `json:"question" jsonschema:"the question to answer from the website's content"`
	SessionID string `json:"session_id,omitempty" jsonschema:"session ID returned by an earlier ask, to continue that conversation"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer    string         `json:"answer"`
	Sources   []SourceOutput `json:"sources"`
	SessionID string         `json:"session_id"`
}

// SourceOutput is a document an answer was grounded on.
type SourceOutput struct {
	URL   string  `json:"url"`
	Title string  `json:"title,omitempty"`
	Score float64 `json:"score,omitempty"`
}

// ListWebsitesInput is the input schema for the list_websites tool.
type ListWebsitesInput struct{}

// ListWebsitesOutput is the output schema for the list_websites tool.
type ListWebsitesOutput struct {
	Websites []WebsiteOutput `json:"websites"`
	Count    int             `json:"count"`
}

// WebsiteOutput summarises a website.
type WebsiteOutput struct {
	BrokerID  string `json:"broker_id"`
	Name      string `json:"name"`
	Domain    string `json:"domain"`
	Status    string `json:"status,omitempty"`
	PageCount int    `json:"page_count,omitempty"`
}

// CrawlStatusInput is the input schema for the crawl_status tool.
type CrawlStatusInput struct {
	JobID string `json:"job_id" jsonschema:"ID of the crawl job"`
}

// CrawlStatusOutput is the output schema for the crawl_status tool.
type CrawlStatusOutput struct {
	JobID        string `json:"job_id"`
	BrokerID     string `json:"broker_id,omitempty"`
	Status       string `json:"status"`
	PagesCrawled int    `json:"pages_crawled,omitempty"`
	Error        string `json:"error,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Ask a question answered from a website's crawled content",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_websites",
		Description: "List the websites available to the signed-in user",
	}, s.handleListWebsites)

	if s.ports.Crawl != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "crawl_status",
			Description: "Get the current status of a crawl job",
		}, s.handleCrawlStatus)
	}
}

// handleAsk runs one chat turn and waits for the complete answer.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	brokerID := strings.TrimSpace(input.BrokerID)
	question := strings.TrimSpace(input.Question)
	if brokerID == "" || question == "" {
		return nil, AskOutput{}, fmt.Errorf("broker_id and question are required: %w", domain.ErrInvalidInput)
	}

	scope := s.ports.scope(ctx)
	var (
		session driving.ChatSession
		err     error
	)
	if input.SessionID != "" {
		session, err = s.ports.Chat.ResumeSession(ctx, scope, brokerID, input.SessionID)
	} else {
		session, err = s.ports.Chat.OpenSession(ctx, scope, brokerID)
	}
	if err != nil {
		return nil, AskOutput{}, err
	}
	defer func() { _ = session.Close() }()

	updates, err := session.Send(ctx, question)
	if err != nil {
		return nil, AskOutput{}, err
	}

	var (
		last domain.ChatMessage
		seen bool
	)
	for msg := range updates {
		last = msg
		seen = true
	}
	if !seen {
		return nil, AskOutput{}, ErrNoAnswer
	}
	if last.State == domain.MessageFailed || last.Role == domain.RoleError {
		return nil, AskOutput{}, fmt.Errorf("ask failed: %s", last.Text)
	}

	output := AskOutput{
		Answer:    last.Text,
		Sources:   make([]SourceOutput, len(last.Sources)),
		SessionID: session.ID(),
	}
	for i, src := range last.Sources {
		output.Sources[i] = SourceOutput{
			URL:   src.URL,
			Title: src.Title,
			Score: src.RelevanceScore,
		}
	}

	return nil, output, nil
}

// handleListWebsites lists websites in the resolved scope.
func (s *Server) handleListWebsites(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListWebsitesInput,
) (*mcp.CallToolResult, ListWebsitesOutput, error) {
	sites, err := s.ports.Website.List(ctx, s.ports.scope(ctx))
	if err != nil {
		return nil, ListWebsitesOutput{}, err
	}

	output := ListWebsitesOutput{
		Websites: make([]WebsiteOutput, len(sites)),
		Count:    len(sites),
	}
	for i := range sites {
		output.Websites[i] = toWebsiteOutput(&sites[i])
	}

	return nil, output, nil
}

// handleCrawlStatus fetches a crawl job's status once.
func (s *Server) handleCrawlStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CrawlStatusInput,
) (*mcp.CallToolResult, CrawlStatusOutput, error) {
	if s.ports.Crawl == nil {
		return nil, CrawlStatusOutput{}, ErrMissingCrawlService
	}
	if strings.TrimSpace(input.JobID) == "" {
		return nil, CrawlStatusOutput{}, fmt.Errorf("job_id is required: %w", domain.ErrInvalidInput)
	}

	job, err := s.ports.Crawl.Status(ctx, s.ports.scope(ctx), input.JobID)
	if err != nil {
		return nil, CrawlStatusOutput{}, err
	}

	return nil, CrawlStatusOutput{
		JobID:        job.ID,
		BrokerID:     job.BrokerID,
		Status:       job.Status.String(),
		PagesCrawled: job.PagesCrawled,
		Error:        job.LastError,
	}, nil
}

func toWebsiteOutput(site *domain.Website) WebsiteOutput {
	return WebsiteOutput{
		BrokerID:  site.BrokerID,
		Name:      site.Name,
		Domain:    site.Domain,
		Status:    site.Status,
		PageCount: site.PageCount,
	}
}
