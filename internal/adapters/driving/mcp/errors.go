// Package mcp provides an MCP (Model Context Protocol) server adapter for runit.
// It lets AI assistants ask questions of a website's knowledge base and
// inspect websites and crawl jobs.
package mcp

import "errors"

// ErrMissingChatService is returned when the chat service is not provided.
var ErrMissingChatService = errors.New("mcp: chat service is required")

// ErrMissingWebsiteService is returned when the website service is not provided.
var ErrMissingWebsiteService = errors.New("mcp: website service is required")

// ErrNoAnswer is returned when a chat stream ends without an answer.
var ErrNoAnswer = errors.New("mcp: chat ended without an answer")

// ErrMissingCrawlService is returned when a crawl tool is called without a crawl service.
var ErrMissingCrawlService = errors.New("mcp: crawl service is not configured")
