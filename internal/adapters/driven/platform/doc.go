// Package platform is the HTTP adapter for the runit platform API.
//
// One Client implements every gateway port. Authenticated requests carry
// the bearer token read from a driven.CredentialProvider on each call.
// Non-streaming requests are bounded by the configured timeout; chat and
// log streams are bounded by their context only.
package platform
