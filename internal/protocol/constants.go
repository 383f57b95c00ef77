// Package protocol defines the WebSocket wire types exchanged between the
// editor shell and the collaboration server.
package protocol

// SystemUserID is the user id reserved for the server itself, as opposed
// to a connected peer. A document loaded from storage is installed as a
// snapshot (server.FromPersistedText), not replayed as operations, so no
// history entry is authored under this id.
const SystemUserID = "system"
