// Package repositories implements SQLite persistence for all domain entities.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// User and project repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [UserRepository] : Account persistence with username-based lookups
//   - [ProjectRepository] : Project persistence scoped to an owning user
//   - [EntryRepository] : Dictionary entries with transactional token allocation
//   - [KeywordRepository] : User- and project-scoped keyword rules
//   - [AuditRepository] : Append-only log of obscure/restore runs
//
// Sequence numbers provide stable, human-readable ordering (e.g., user #3, project #7) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables;
// [NextTypeIndex] does the same for per-project token counters inside the caller's transaction.
package repositories
