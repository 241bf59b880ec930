// Package chaptercache is the tiered chapter retrieval engine.
//
// Resolution order for Fetch:
//  1. in-process tier: fixed capacity, evicted first-in first-out
//  2. persistent tier: kvstore entries under the "bible-cache-" prefix,
//     expired entries pruned lazily on read
//  3. offline datasets, only for translations on the offline allow-list;
//     failures here are logged and fall through
//  4. the remote chapter service
//
// Both cache tiers share one retention window (seven days by default) and
// one normalized key. A chapter produced by tiers 3 or 4 is written back into
// tiers 1 and 2; a tier 2 hit is promoted into tier 1.
package chaptercache
