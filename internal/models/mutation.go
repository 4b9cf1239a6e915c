package models

import "time"

// MutationKind names a single write against the store
type MutationKind string

const (
	// MutationUpsertRoster merges a roster entry by (unit, external id) and activates it
	MutationUpsertRoster MutationKind = "upsert_roster"
	// MutationUpsertCatalog merges a catalog record by (catalog, unit, code) and activates it
	MutationUpsertCatalog MutationKind = "upsert_catalog"
	// MutationDeactivate sets active=false and leaves every other field untouched
	MutationDeactivate MutationKind = "deactivate"
	// MutationSetParticipationDepartment rewrites the department label of a participation
	MutationSetParticipationDepartment MutationKind = "set_participation_department"
)

// Mutation is one write in a batch. Key is the external id, catalog code or
// person id depending on Kind; GroupName completes the participation key.
type Mutation struct {
	Kind       MutationKind
	Catalog    Catalog
	Unit       string
	Key        string
	Name       string
	Department string
	GroupName  string
}

// Collection names a store collection that emits change events
type Collection string

const (
	CollectionRoster         Collection = "roster_entries"
	CollectionCatalog        Collection = "catalog_records"
	CollectionParticipations Collection = "participations"
	CollectionLeaders        Collection = "leaders"
)

// ChangeEvent is a notification that a collection changed
type ChangeEvent struct {
	Collection Collection `json:"collection"`
	ReceivedAt time.Time  `json:"received_at"`
}
