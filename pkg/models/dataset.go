package models

import "time"

type Dataset struct {
	Name         string     `db:"name" json:"name" validate:"required"`
	Publisher    *string    `db:"publisher" json:"publisher"`
	License      *string    `db:"license" json:"license"`
	IsOpen       bool       `db:"is_open" json:"is_open"`
	LastModified *time.Time `db:"last_modified" json:"last_modified"`
	LastSeen     *time.Time `db:"last_seen" json:"last_seen"`
}
