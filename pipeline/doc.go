// Package pipeline runs the recovery engine over a summary-statistics stream.
//
// One goroutine reads the stream and batches records into numbered SNP
// blocks. Workers recover and filter whole blocks in parallel. A single
// writer reorders finished blocks by sequence number and hands them to the
// Sink, so output is grouped by SNP in input order regardless of the number
// of workers.
//
// Cancellation is observed between blocks. On any error, including
// cancellation, the Sink is aborted and no partial output is committed.
//
// The package does not log. Progress and skipped records are reported to an
// Observer.
package pipeline
