// Package workflow defines workflow definitions, steps, instances, the
// registry, the persistence contract, and the engine that advances an
// instance one step per call.
//
// A Definition is a static, ordered list of Steps loaded once at startup.
// An Instance is one run of a definition for one owner: it tracks the
// current step index, the accumulating step data, and a lifecycle state
// (running, paused, completed, cancelled).
//
// The engine enforces validate-before-mutate: a step's Validate is called
// before Execute, and a validation failure never changes the step index
// or the accumulated data. Execution failures (including timeouts) leave
// the instance at the same step so the caller can retry with corrected
// input without re-collecting earlier answers.
//
// Concurrent advances against the same instance are serialized by an
// optimistic version check in the store: the losing caller observes
// concierge.ErrConcurrentModification and must reload before retrying.
package workflow
