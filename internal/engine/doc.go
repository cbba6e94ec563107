// Package engine orchestrates the deidentification pipeline with real-time progress reporting.
//
// # Core Operations
//
// The [Engine] provides three operations:
//
//  1. [Engine.Deidentify] : obscure one document's text
//     - Runs keyword and classifier detection over the extracted text
//     - Looks up or mints a dictionary token per unique detected value
//     - Rewrites spans back to front so earlier offsets stay valid
//     - Returns the obscured text, the rewrite log, and any findings
//
//  2. [Engine.Restore] : reverse tokens in returned text
//     - Scans for token-shaped substrings, tolerating case and separator damage
//     - Resolves each exactly first, then fuzzily
//     - Leaves unknown or ambiguous tokens intact and reports them as findings
//
//  3. [Engine.BatchDeidentify] : obscure many files concurrently
//     - Worker pool with rate limiting and per-file results
//     - Cancellation aborts unprocessed files; dictionary entries already
//     minted are kept so a rerun reuses them
//
// # Progress Reporting
//
// All long operations use non-blocking channels for progress updates. The
// [ProgressUpdate] struct contains step counters and messages. Updates use
// select with default to prevent blocking.
//
// Every run writes an audit row with content hashes of its input and
// output; the text itself is never persisted.
package engine
