// Package filestore persists a single simple-tree container to a JSON file.
//
// Documents are stored as
//
//	{"meta": {"format_version": N}, "content": ...}
//
// # Lifecycle
//
// New loads the file once:
//
//   - missing file: created with the empty container (StateCreated)
//   - readable, valid document: migrated, then merged into the container
//     (StateLoaded)
//   - unreadable or invalid JSON: logged, container left empty, file left
//     untouched (StateDegraded)
//   - valid JSON without usable version metadata or content: New fails with
//     ErrCorruptedDocument
//
// Mutations stay in memory until Save. Save replaces the file through a
// temp file and rename, and holds a <path>.lock flock while writing.
package filestore
