package models

import (
	"time"
)

// Catalog identifies one of the reconcilable collections
type Catalog string

const (
	CatalogRoster  Catalog = "roster"
	CatalogSectors Catalog = "sectors"
	CatalogGroups  Catalog = "groups"
)

// ValidCatalogs defines the catalogs accepted by the import endpoints
var ValidCatalogs = map[Catalog]bool{
	CatalogRoster:  true,
	CatalogSectors: true,
	CatalogGroups:  true,
}

// RosterEntry is one row of the authoritative workforce roster (RH base).
// ExternalID is the employee id and, together with Unit, the storage key.
type RosterEntry struct {
	ExternalID     string    `json:"external_id" db:"external_id"`
	FullName       string    `json:"full_name" db:"full_name"`
	DepartmentName string    `json:"department_name" db:"department_name"`
	Unit           string    `json:"unit" db:"unit"`
	Active         bool      `json:"active" db:"active"`
	UpdatedAt      time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// Key returns the external id
func (r RosterEntry) Key() string { return r.ExternalID }

// Partition returns the unit the entry belongs to
func (r RosterEntry) Partition() string { return r.Unit }

// IsActive reports whether the entry is active
func (r RosterEntry) IsActive() bool { return r.Active }

// Matches reports whether the compared fields of both entries are identical
func (r RosterEntry) Matches(other RosterEntry) bool {
	return r.FullName == other.FullName && r.DepartmentName == other.DepartmentName
}

// Describe renders the entry as a classification row without a status
func (r RosterEntry) Describe() ChangeClassification {
	return ChangeClassification{
		ID:         r.ExternalID,
		Name:       r.FullName,
		Unit:       r.Unit,
		Department: r.DepartmentName,
	}
}

// CatalogRecord is one row of the sector (department) or group (PG) catalog.
// ID is the stable external code.
type CatalogRecord struct {
	Catalog   Catalog   `json:"catalog" db:"catalog"`
	ID        string    `json:"id" db:"code"`
	Name      string    `json:"name" db:"name"`
	Unit      string    `json:"unit" db:"unit"`
	Active    bool      `json:"active" db:"active"`
	UpdatedAt time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// Key returns the external code
func (c CatalogRecord) Key() string { return c.ID }

// Partition returns the unit the record belongs to
func (c CatalogRecord) Partition() string { return c.Unit }

// IsActive reports whether the record is active
func (c CatalogRecord) IsActive() bool { return c.Active }

// Matches reports whether the compared fields of both records are identical
func (c CatalogRecord) Matches(other CatalogRecord) bool {
	return c.Name == other.Name
}

// Describe renders the record as a classification row without a status
func (c CatalogRecord) Describe() ChangeClassification {
	return ChangeClassification{
		ID:   c.ID,
		Name: c.Name,
		Unit: c.Unit,
	}
}

// ParticipationRecord links a person to a ministry group.
// DepartmentName is the department label recorded for the person when the
// link was made; the drift corrector keeps it aligned with the roster.
type ParticipationRecord struct {
	PersonID       string    `json:"person_id" db:"person_id"`
	PersonName     string    `json:"person_name" db:"person_name"`
	Unit           string    `json:"unit" db:"unit"`
	GroupName      string    `json:"group_name" db:"group_name"`
	DepartmentName string    `json:"department_name" db:"department_name"`
	Active         bool      `json:"active" db:"active"`
	UpdatedAt      time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// Leader is the designated leader of a group. The leader directory is
// read-only for this service.
type Leader struct {
	PersonID       string `json:"person_id" db:"person_id"`
	FullName       string `json:"full_name" db:"full_name"`
	Unit           string `json:"unit" db:"unit"`
	GroupName      string `json:"group_name" db:"group_name"`
	DepartmentName string `json:"department_name" db:"department_name"`
	Active         bool   `json:"active" db:"active"`
}
