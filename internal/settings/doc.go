// Package settings holds the file-backed client settings: the known servers
// (servers.json) and the access tokens per server (tokens.json).
//
// Both files use the versioned envelope from package migrate and are loaded
// through package filestore. ServerStore exposes its servers as
// ObservableServers, which publishes an Added or Removed ServerChange for
// every identity a mutation introduces or drops. Renaming a server keeps its
// address and publishes nothing.
package settings
