// Package domain defines the core entities of the contentpipe ingestion pipeline.
//
// This package is the innermost layer of the hexagonal architecture.
// It has NO external dependencies and defines the fundamental types:
//
//   - SourceDescriptor: A configured content source and its field mapping
//   - DraftRecord: A source-native record produced by a source adapter
//   - EnhancedRecord: A draft plus AI provenance, category and quality score
//   - Taxonomy: The closed set of categories a record can be assigned
//   - RunSummary: Per-run statistics returned on both success and failure
//   - RunState: The orchestrator's run state machine
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
