// Package chains provides the built-in workflow definitions: mentor
// booking, submission tracking, resource discovery, and approval
// status. Each chain talks to its external campus service through a
// small interface defined here, so tests and alternative backends can
// swap implementations freely.
package chains
