// Package prompt maps study actions (insight, summary, commentary, chat) onto
// completion requests of the form {prompt, type, maxTokens}.
//
// The dispatcher never picks a system role or temperature; the gateway owns
// that table, keyed by Intent. Failures are reported as *Error carrying an
// operation message such as "Failed to summarize chapter" and the original
// cause. Requests are never retried here.
//
// Completer has two implementations: GatewayClient, which posts to a running
// gateway over HTTP, and gateway.Local, which runs the gateway in-process.
package prompt
