// Package sync reconciles local pantry state with the remote document
// store for one authenticated owner.
//
// A cycle runs a fixed stage sequence: preflight connectivity check,
// analytics push in bounded batches, inventory reconciliation and push,
// shopping-list push, purge of old synced analytics, and a pull-only
// foodbank refresh. Stages are fault-isolated: one stage failing is
// recorded in the cycle result and the remaining stages still run.
//
// What syncs is gated by the owner's tier. The free tier pushes
// analytics only; the paid tier additionally syncs inventory and
// shopping lists.
//
// The orchestrator never reports failure by returning an error from
// Sync for remote problems. Every cycle produces one Result carrying a
// status, pushed/purged counts and an ordered error list, delivered to
// registered observers.
package sync
