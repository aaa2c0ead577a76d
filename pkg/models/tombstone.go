package models

import "time"

// DeletedActivity marks an identifier that was present in an earlier
// import but is absent from the latest one. The mark is cleared the
// moment the identifier reappears anywhere.
type DeletedActivity struct {
	IATIIdentifier string    `db:"iati_identifier" json:"iati_identifier" validate:"required"`
	DeletionDate   time.Time `db:"deletion_date" json:"deletion_date"`
}
