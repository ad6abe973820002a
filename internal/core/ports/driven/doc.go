// Package driven declares what the runit core needs from the outside world:
// the platform API, the stored session, client settings and the local
// crawl ledger. Adapters under internal/adapters/driven implement them.
//
// Platform is the union of the per-area gateways (auth, websites, crawls,
// chat, widget, dashboard); the HTTP client implements all of it, while
// services accept only the gateway they use.
//
// CrawlJobStore is the one optional port. When the SQLite ledger cannot be
// opened the memory implementation is used instead and history lasts for a
// single process.
//
// This package imports domain and nothing else from internal/.
package driven
