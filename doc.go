// Package concierge provides a durable multi-step workflow engine for
// guided conversational flows: mentor booking, submission tracking,
// resource discovery, and approval status lookups.
//
// Concierge is designed as a library, not a service. Import it, configure
// a store, register workflow definitions, and advance instances one step
// per incoming user message.
//
// # Quick Start
//
//	reg := workflow.NewRegistry()
//	reg.MustRegister(chains.NewBookMentor(dir, notifier))
//
//	eng := workflow.NewEngine(reg, store,
//	    workflow.WithLogger(logger),
//	)
//
//	inst, err := eng.Start(ctx, "book_mentor", ownerID, input)
//
// # Architecture
//
// A workflow definition is a static, ordered list of steps. Each step
// validates its input before the engine mutates anything, executes
// against external campus services, and contributes results to the
// instance's accumulating step data. Instances are persisted after
// every transition; pause and resume are pure flag flips because all
// progress is already durable.
//
// Persistence is pluggable: in-memory, PostgreSQL, SQLite, and MongoDB
// stores all implement the same workflow.Store contract, including the
// optimistic version check that serializes concurrent advances.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based,
// compile-time safe identifiers.
package concierge
