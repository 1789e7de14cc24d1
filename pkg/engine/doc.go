// Package engine assembles the diagram editor.
//
// An [Editor] owns one [diagram.State] and every component that touches
// it: the synchronizer that applies model notifications, the interaction
// machine that turns pointer input into edits, the layout simulation and
// the renderer. It is the [interact.Host] of its machine.
//
// The editor is single-threaded. Either drive it from a loop that already
// serializes events (a terminal UI's update function), or start [Editor.Run]
// and hand it work through [Editor.Post] and [Editor.Do]. Run also owns the
// layout ticker, which only fires while the simulation is running.
//
// Each tick integrates every node from the positions of the previous tick,
// then resolves every anchor, then renders:
//
//	ed := engine.New(engine.Options{Renderer: server, Publisher: store})
//	cancel := store.Subscribe(ed)
//	store.Replay(ed)
//	ed.Start()
//	go ed.Run(ctx)
package engine
