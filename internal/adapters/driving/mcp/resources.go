package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for runit resources.
	uriScheme = "runit://"

	// crawlHistoryLimit caps the jobs returned by the crawls resource.
	crawlHistoryLimit = 50
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "websites",
		Name:        "websites",
		Description: "Websites available to the signed-in user",
		MIMEType:    "application/json",
	}, s.handleWebsitesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "websites/{brokerId}/stats",
		Name:        "website-stats",
		Description: "Indexed content statistics of a website",
		MIMEType:    "application/json",
	}, s.handleWebsiteStatsResource)

	if s.ports.Crawl != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "crawls",
			Name:        "crawls",
			Description: "Crawl jobs started from this machine, newest first",
			MIMEType:    "application/json",
		}, s.handleCrawlsResource)
	}
}

// handleWebsitesResource returns the website list.
func (s *Server) handleWebsitesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	sites, err := s.ports.Website.List(ctx, s.ports.scope(ctx))
	if err != nil {
		return nil, fmt.Errorf("listing websites: %w", err)
	}

	infos := make([]WebsiteOutput, len(sites))
	for i := range sites {
		infos[i] = toWebsiteOutput(&sites[i])
	}
	return jsonResource(req.Params.URI, infos)
}

// handleWebsiteStatsResource returns statistics for one website.
func (s *Server) handleWebsiteStatsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// runit://websites/{brokerId}/stats
	brokerID := extractBrokerID(req.Params.URI)
	if brokerID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	stats, err := s.ports.Website.Stats(ctx, s.ports.scope(ctx), brokerID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting website stats: %w", err)
	}
	return jsonResource(req.Params.URI, stats)
}

// handleCrawlsResource returns the local crawl job ledger.
func (s *Server) handleCrawlsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Crawl == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	jobs, err := s.ports.Crawl.History(ctx, crawlHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("listing crawl jobs: %w", err)
	}
	if jobs == nil {
		jobs = []domain.CrawlJob{}
	}
	return jsonResource(req.Params.URI, jobs)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractBrokerID extracts the broker ID from a URI like runit://websites/{brokerId}/stats.
func extractBrokerID(uri string) string {
	const prefix = uriScheme + "websites/"
	const suffix = "/stats"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	id := strings.TrimSuffix(uri, suffix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
