// Package pkg provides the core libraries of petrisync, a synchronization
// engine that keeps a Petri-net diagram consistent with an authoritative
// model.
//
// # Overview
//
// The model owns places, transitions, arcs and forms. The diagram owns
// layout: node positions, pins, anchors and provisional entities drawn by
// the user. Changes flow in both directions:
//
//	model notification
//	         ↓
//	    [model] (decode records into typed entities)
//	         ↓
//	    [synchronizer] (upsert or remove nodes and links)
//	         ↓
//	    [diagram] (indexed node and link tables)
//	         ↓
//	    [anchor] + [layout] (attachment points, force simulation)
//	         ↓
//	    [render] (frames for SVG, DOT, PNG and the websocket feed)
//
// User gestures travel back through [interact], which writes selections
// through model handles, and [engine], which publishes provisional
// entities to the model and reconciles them when the model echoes them.
//
// # Quick Start
//
//	m := model.NewStore()
//	ed := engine.New(engine.Options{Publisher: m})
//	cancel := m.Subscribe(ed)
//	defer cancel()
//
//	m.Add("p1", map[string]any{"type": "place", "name": "free", "position": "0,0"})
//	m.Add("t1", map[string]any{"type": "transition", "name": "enter", "position": "100,0"})
//	m.Add("a1", map[string]any{"type": "arc", "source": "p1", "target": "t1"})
//
//	svg := render.SVG(ed.Frame())
//
// # Packages
//
// Geometry and shapes: [geom], [shape], [position], [anchor].
//
// Model and diagram: [model], [diagram], [synchronizer].
//
// Editing: [interact], [layout], [engine].
//
// Output: [render] and its dot and raster sub-packages.
//
// Persistence and transport: [store] (file, memory, Redis and MongoDB
// snapshot backends) and [feed] (REST and websocket access to a model).
//
// Support: [errors], [observability], [httputil], [buildinfo].
//
// [geom]: github.com/matzehuels/petrisync/pkg/geom
// [shape]: github.com/matzehuels/petrisync/pkg/shape
// [position]: github.com/matzehuels/petrisync/pkg/position
// [anchor]: github.com/matzehuels/petrisync/pkg/anchor
// [model]: github.com/matzehuels/petrisync/pkg/model
// [diagram]: github.com/matzehuels/petrisync/pkg/diagram
// [synchronizer]: github.com/matzehuels/petrisync/pkg/synchronizer
// [interact]: github.com/matzehuels/petrisync/pkg/interact
// [layout]: github.com/matzehuels/petrisync/pkg/layout
// [engine]: github.com/matzehuels/petrisync/pkg/engine
// [render]: github.com/matzehuels/petrisync/pkg/render
// [store]: github.com/matzehuels/petrisync/pkg/store
// [feed]: github.com/matzehuels/petrisync/pkg/feed
// [errors]: github.com/matzehuels/petrisync/pkg/errors
// [observability]: github.com/matzehuels/petrisync/pkg/observability
// [httputil]: github.com/matzehuels/petrisync/pkg/httputil
// [buildinfo]: github.com/matzehuels/petrisync/pkg/buildinfo
package pkg
