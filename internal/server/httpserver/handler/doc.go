// Package handler implements the claimledger HTTP API.
//
// Every JSON response uses the envelope
// {code, message, request_id, timestamp, data}. Domain error codes map
// to HTTP status codes by their numeric suffix (see StatusForCode).
package handler
