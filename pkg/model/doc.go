// Package model defines the contract between the diagram core and the
// external, authoritative model.
//
// The collaborator hands the core duck-typed [Record] values (a field
// getter plus a field setter). [Decode] validates a record once, at the
// synchronizer boundary, and turns it into one case of the [Entity]
// tagged variant: [*Place], [*Transition], [*Arc] or [*Form]. Missing
// fields become [Optional] values instead of implicit truthiness checks.
//
// Writing back always goes through [Handle.Set]. A handle is a
// non-owning association: the model decides when an entity dies and the
// diagram learns about it through a remove notification.
//
// # In-process model
//
// [Store] is a complete authoritative model kept in memory. It notifies
// listeners on every add, update and remove, records every Set call in a
// journal, and can be populated from YAML or JSON documents:
//
//	doc, _ := model.LoadFile("mutex.yaml")
//	store := model.NewStore()
//	store.Subscribe(model.ListenerFunc(func(op model.Op, r model.Record) { ... }))
//	doc.Populate(store)
package model
