// Package intent provides clients for the external intent/entity
// classification service. The engine never classifies anything itself;
// the router uses a Classifier to decide which workflow type a fresh
// user message should start.
package intent
