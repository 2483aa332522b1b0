// Package router implements the message routing policy: a user message
// either advances the owner's active workflow or, after intent
// classification, starts a new one. Conflicting advances are retried
// with backoff before the conflict surfaces.
package router
