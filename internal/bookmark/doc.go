// Package bookmark provides containers that carry one optional "current"
// selection.
//
// Map and DefaultMap bookmark a key; Set bookmarks an element. The bookmark
// is a composed Mark field, not a property of the stored entries, so setting
// it never checks presence and removing an entry never clears it. Validity
// is checked only when the bookmark is read, which fails with ErrNotFound if
// the bookmark is unset or dangling.
//
// Containers are not safe for concurrent use. They are owned by one caller,
// usually a store that serializes them with ToSimple and restores them with
// UpdateFromSimple.
package bookmark
