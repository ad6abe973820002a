// Package services is the runit client core. It decodes the streamed chat
// protocol, follows and archives crawl logs, polls crawl jobs to completion,
// resolves client settings and keeps the stored session current.
//
// Services reach the network and disk only through driven ports.
package services
