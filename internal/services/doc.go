// Package services defines shared utilities consumed by the chapter cache,
// the prompt dispatcher, the completion gateway and the upstream clients.
//
// Key responsibilities:
//   - Context helpers that stamp request IDs, completion intents and
//     translations for logging and tracing.
//   - Structured error markers plus the Wrap helper so failures can be
//     classified into HTTP statuses (validation, not found, upstream auth,
//     quota, transport) without string matching.
//
// Use these helpers when wiring new components so operational behaviour
// (error handling, observability) stays uniform across the service.
package services
