// Package connection provides connection management for claimledger-cli.
//
//   - manager.go: the active connection and the client built for it
//   - http.go: HTTP/HTTPS client and API envelope decoding
//
// HTTPS connections trust the system roots plus an optional CA file.
package connection
