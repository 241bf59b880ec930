// Package preflight provides readiness checks for the filesystem paths,
// offline datasets and remote services biblestudy depends on.
//
// These checks run in two contexts:
//   - The server calls RunAll at startup and logs every failure as a
//     warning; the offline and remote tiers degrade gracefully, so nothing
//     here is fatal.
//   - The CLI "biblestudy doctor" command prints RunAll and, with --remote,
//     RunRemote, which spends one tiny completion on the configured backend.
package preflight
