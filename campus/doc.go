// Package campus holds HTTP clients for the existing campus services
// the chains call out to: mentor directory, notifications, submissions,
// inventory, and approvals. Each client satisfies the matching
// interface from the chains package.
package campus
