// Package janitor sweeps abandoned workflow instances on a cron
// schedule. An owner who walks away mid-workflow would otherwise hold
// their single active-instance routing slot forever.
package janitor
