package models

// Category is externally owned reference data used for grouping and labelling.
type Category struct {
	ID     string `db:"id" json:"id" yaml:"id"`
	Name   string `db:"name" json:"name" yaml:"name"`
	Color  string `db:"color" json:"color" yaml:"color"`
	Active bool   `db:"active" json:"active" yaml:"active"`
}
