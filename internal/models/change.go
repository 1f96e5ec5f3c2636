package models

import "time"

// ChangeOp is the kind of row change reported by the change feed.
type ChangeOp string

const (
	ChangeInsert ChangeOp = "INSERT"
	ChangeUpdate ChangeOp = "UPDATE"
	ChangeDelete ChangeOp = "DELETE"
)

// Tables that publish change notifications.
const (
	TableLeads      = "leads"
	TableViewings   = "viewings"
	TableOffers     = "offers"
	TableProperties = "properties"
)

// ChangeEvent notifies subscribers that a row changed. It carries no row data;
// consumers refetch.
type ChangeEvent struct {
	At    time.Time `json:"at"`
	Table string    `json:"table"`
	Op    ChangeOp  `json:"op"`
	ID    string    `json:"id"`
}
