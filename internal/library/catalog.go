// Package library checks syllabus reading lists against the library's
// discovery service.
package library

import "context"

// Query is one bibliographic lookup. Creator is optional.
type Query struct {
	Title   string
	Creator string
}

// Record is a search hit normalized at the boundary: every list field is a
// list, every scalar a string, missing values are Unknown.
type Record struct {
	Title        string
	Creator      string
	Type         string
	Date         string
	ISBN         []string
	ISSN         []string
	Publisher    []string
	Links        []Link
	CallNumber   string
	Availability Availability
}

type Link struct {
	URL   string `json:"url"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

// Availability is the judgment made for one record.
type Availability struct {
	Available        bool     `json:"available"`
	OnlineAccess     bool     `json:"online_access"`
	PhysicalCopies   int      `json:"physical_copies"`
	Locations        []string `json:"locations"`
	DeliveryCategory []string `json:"delivery_category,omitempty"`
}

// Catalog opens sessions against a discovery service.
type Catalog interface {
	Open(ctx context.Context) (Session, error)
}

// Session holds the transport for one matching run. It must be closed.
type Session interface {
	Search(ctx context.Context, q Query) ([]Record, error)
	Close() error
}
