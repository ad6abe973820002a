// Package domain holds the runit types shared by every layer: sessions and
// scopes, websites and their crawl settings, crawl jobs and log entries,
// chat messages and stream frames, widget settings and client settings,
// plus the sentinel errors adapters map API failures onto.
//
// It imports only the standard library.
package domain
