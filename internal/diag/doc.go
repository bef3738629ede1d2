// Package diag defines the diagnostic model produced by the C# front-end and
// consumed by the diagnostics gate.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity – tri-level enum (Info, Warning, Error) defined in severity.go.
//   - Code – string identifier in compiler numbering ("CS0618"), see codes.go.
//   - Message – human oriented text; keep it short and actionable.
//   - Primary – the canonical source.Span pointing to the issue.
//   - Notes – optional secondary spans/messages for additional context.
//
// # Emitting diagnostics
//
// Producers report through a Reporter so that emission is decoupled from
// storage. BagReporter aggregates into a Bag, which supports sorting,
// deduplication and a hard cap on the number of stored entries.
//
// Package diag performs no formatting beyond the short single-line form used
// by tests and logs; colourised rendering lives in internal/diagfmt.
package diag
