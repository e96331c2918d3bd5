// Package types defines the request and response shapes shared by the HTTP
// API, the WebSocket hub and the query command. Field names match the JSON
// wire format.
package types
