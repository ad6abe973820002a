// Package file stores client state as TOML under ~/.runit: settings in
// config.toml and the signed-in session in session.toml. SessionStore
// watches its file so a login in one terminal reaches commands already
// running in another.
package file
