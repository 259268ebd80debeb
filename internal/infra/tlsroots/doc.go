// Package tlsroots manages TLS material for the HTTP API.
//
//   - roots.go: trusted roots for clients (system pool plus a custom CA)
//   - watcher.go: server certificate hot-reload via fsnotify
package tlsroots
