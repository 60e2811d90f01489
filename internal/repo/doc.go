// Package repo implements the typed repositories over the entity store.
//
// One repository exists per entity family. Repositories own all
// validation and every write transaction: entities stay passive data
// records, and a mutation either commits completely or not at all.
// Lifecycle rules (promotion, consumption, restore, TTL sweep) live in
// the scanned-item and inventory repositories.
//
// Reads are always served locally and never require connectivity. The
// sync orchestrator uses the same repositories to drain unsynced rows
// and to write back sync markers.
package repo
