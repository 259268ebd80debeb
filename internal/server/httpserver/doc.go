// Package httpserver serves the claimledger HTTP API.
//
// Routes fall into four groups, each with its own middleware chain:
//
//   - public: /health, /ready, /metrics and the read-only /v1 endpoints
//   - issuer: POST /v1/claims and GET /v1/submissions/{id}
//   - admin: /admin/v1/*
//
// Every chain starts with RequestID and Recover, and records request
// metrics when a metric registry is configured.
package httpserver
