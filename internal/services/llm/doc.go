// Package llm provides the chat completion upstream used by the completion
// gateway.
//
// Request, Completion and Usage are shared by every provider implementation
// (this package's OpenAI-compatible HTTP client and the Azure client in
// services/azureopenai). Provider failures surface as *StatusError, which
// unwraps to the services markers: 401/403 map to ErrUpstreamAuth, 404 to
// ErrNotFound, 429 or an insufficient_quota code to ErrQuota, everything
// else to ErrTransport.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx and network timeouts with
// exponential backoff (base 1s, max 10s, 3 attempts by default), honouring
// Retry-After. Exhausted quota is never retried. Context cancellation aborts
// retries immediately.
package llm
