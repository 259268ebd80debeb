// Package shutdown runs registered cleanup hooks when the process is
// asked to stop (SIGINT, SIGTERM or context cancellation), in reverse
// registration order and under a shared timeout.
package shutdown
