// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - SourceAdapter: Fetches one source and maps its items to DraftRecords
//   - SourceRegistry: Selects the adapter for a SourceKind
//   - Fetcher: Retrieves raw payloads through the call coordinator
//   - CallCoordinator: Bounds concurrency, rate and retries of outbound calls
//   - ArtifactWriter: Persists the artifact and run summary atomically
//
// # Optional Interfaces
//
// These can be nil; the pipeline degrades gracefully:
//
//   - AIProvider: Structured generation. Without it, enhancement is skipped
//     and classification relies on source-declared categories.
//   - SchemaValidator: Validates AI responses. Required whenever AIProvider is set.
//   - ResponseCache: Conditional-request cache for source fetches.
//   - EnhancementCache: Reuses AI-authored fields across runs.
//   - TextSimilarity: Near-duplicate title matching. Without it only
//     identical normalised titles match.
//   - PromptStore: Operator-edited system prompts.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
