// Package driving declares the operations the CLI, TUI and MCP adapters call:
// authentication, websites, crawls and their logs, chat, widget and client
// settings. internal/core/services implements every interface here.
package driving
