// Package feed carries model notifications and rendered frames between
// processes.
//
// [Server] exposes an in-process [model.Store] over HTTP and a websocket.
// Every connected peer first receives the current model as a sequence of
// add events, then every later change, and a frame message each time the
// editor renders. Peers write back with set messages, which land on the
// store exactly as a local [model.Handle.Set] would.
//
// [Client] is the other end: it dials a server (or any endpoint speaking
// the same protocol under the "cosy" subprotocol), turns incoming events
// into [model.Record] values whose Set writes back over the socket, and
// can publish new entities.
//
// # Wire format
//
// Every websocket frame is one JSON [Message]:
//
//	{"type":"event","event":{"op":"add","id":"p1","fields":{"type":"place","name":"buffer"}}}
//	{"type":"set","set":{"id":"p1","field":"selected","value":true}}
//	{"type":"frame","frame":{"nodes":[...],"links":[...],"tick":12}}
//
// Endpoint references in arc fields are always entity ids on the wire.
package feed
