// Package store persists layout snapshots.
//
// A [Snapshot] records what the model does not know about a diagram:
// where every node was left, which nodes are pinned, and which arcs have
// a locked anchor. Snapshots are keyed by diagram name and re-applied
// after the model has been loaded.
//
// # Backends
//
// Every backend implements [Store]:
//   - [FileStore]: JSON files under a directory, for the CLI
//   - [MemoryStore]: process memory, for tests and throwaway sessions
//   - [RedisStore]: msgpack values in Redis, shared between editors
//   - [MongoStore]: documents in a MongoDB collection
//
// [Open] builds a backend from a [Config] and wraps it with
// instrumentation hooks:
//
//	s, err := store.Open(ctx, store.Config{Backend: "file", Dir: dir})
//	defer s.Close()
//	snap := store.Capture("mutex", state)
//	err = s.Put(ctx, snap)
package store
