// Package store persists work packets, work items, and packet rosters in
// SQLite. Packet creation is transactional and item updates are guarded by a
// per-item version counter.
package store
