// Package store provides persistent storage for the relay using SQLite.
//
// # Architecture
//
// Two interfaces split the surface by consumer:
//
//   - Sink: Append-only writes used by the relay routers. AppendStatus and
//     AppendMessage assign the record ID and accepted timestamp, and a nil
//     return means the record is durable.
//   - Store: Sink plus the agent directory and history queries served by
//     the HTTP API.
//
// SQLiteStore implements both in a single struct.
//
// # Data Models
//
//   - AgentRecord: Directory entry for an agent or supervisor
//   - StatusEvent: One persisted status transition
//   - Message: A direct or team-broadcast message with read tracking
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// Timestamps are stored as UTC RFC3339 strings. Use NewSQLiteStore(":memory:")
// for tests.
//
// # Error Handling
//
// Common errors:
//
//   - ErrNotFound: Requested entity does not exist
//   - ErrDuplicateAgent: Agent code already taken
//
// All methods accept context.Context for cancellation support.
package store
