// Package ws provides the real-time subscription layer: websocket
// connections, session rooms, and replay of session state on join.
//
// The package implements:
//   - Hub: the subscribers that joined one session's room
//   - HubManager: every room plus the global subscriber set
//   - Handler: handshake authentication, read/write pumps, client events
//   - Service: the session.Broadcaster used by the session manager
//
// Frames are JSON objects {"event", "sessionId", "data"} in both directions.
// Clients send join_session_room, leave_session_room, request_init_session
// and ping. Joining a room replays the session's current state to the joiner.
package ws
