// Package gateway is the backend completion endpoint.
//
// POST /api/chat accepts {prompt, type, maxTokens}, picks a system role and
// temperature from the intent, forwards to the configured llm.Completer and
// answers {success, response, usage} or {success:false, error, details}.
// Upstream 401/403/404 and quota failures keep their status codes with an
// explanation; everything else is a 500. Missing credentials are reported
// on every request and never defaulted.
//
// Local exposes the same pipeline in-process so the CLI can use the
// prompt dispatcher without a running server.
package gateway
