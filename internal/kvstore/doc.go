// Package kvstore provides the durable key-value store behind the persistent
// chapter cache tier and the study memory records.
//
// SQLiteStore keeps every key in a single WAL-mode table with busy retries,
// and MemoryStore offers the same contract in process for tests. Keys are
// namespaced by prefix ("bible-cache-", "biblestudy-") so one component can
// clear its own keys with DeletePrefix without touching anyone else's.
package kvstore
