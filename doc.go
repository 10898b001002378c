// Package costbasis provides a deterministic cost-basis accounting engine.
//
// It converts a chronological stream of asset transactions (buys, sells,
// deposits, withdrawals, rewards, ...) into tax lots, matches disposals against
// those lots under a selectable accounting method, and reconstructs point in
// time portfolio snapshots.
//
// The core functionalities include:
//   - Normalization: raw records (JSONL, CSV, or arbitrary JSON documents read
//     through JSONPath expressions) are validated into immutable
//     TransactionEvent values, classified as acquisitions or disposals and
//     sorted by (timestamp, id).
//   - Lot Ledger: one Ledger per asset keeps either an ordered queue of lots
//     (FIFO, LIFO) or a single weighted average bucket (AVERAGE_COST).
//   - Disposal Matching: each disposal consumes lots according to the method and
//     yields a DisposalRecord with proceeds, consumed cost basis and realized
//     gain or loss.
//   - Replay: ComputeGainsLosses and SnapshotAt replay the full history up to a
//     cutoff date. They are pure functions of their input.
//   - Export: results marshal to JSON with decimals as strings, and to a flat
//     CSV with one section for disposals and one for holdings.
//
// All arithmetic goes through exact decimals; divisions round half-up at
// DivisionScale fractional digits.
package costbasis
