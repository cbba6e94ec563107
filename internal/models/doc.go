// Package models defines domain entities and persistence interfaces for the deid engine.
//
// The package contains two categories of types:
//
// 1. Value types passed between pipeline stages:
//   - [Span] : A detected sensitive character range with its entity type
//   - [Finding] : A non-fatal warning attached to a pipeline result
//   - [Document] : A transient in-memory document with its lifecycle state
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [User] : Local accounts owning projects and global keyword rules
//   - [Project] : A named scope owning one token dictionary
//   - [DictionaryEntry] : A single original ↔ token mapping
//   - [KeywordRule] : A user-authored literal detection override
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
