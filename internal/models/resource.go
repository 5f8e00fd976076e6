package models

import (
	"time"

	"github.com/NoxZet/Restful/internal/resource"
)

// ResourceInfo is a row of restful.resources without its payload.
type ResourceInfo struct {
	Name        string    `db:"name"`
	ContentType string    `db:"content_type"`
	Revision    int64     `db:"revision"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Resource is a stored tree together with the type it was uploaded as.
type Resource struct {
	ResourceInfo
	Data *resource.Value `db:"data"`
}

// Tree renders the metadata as a resource tree for listings.
func (i ResourceInfo) Tree() *resource.Value {
	return resource.Map(
		resource.Pair("name", resource.String(i.Name)),
		resource.Pair("content_type", resource.String(i.ContentType)),
		resource.Pair("revision", resource.Scalar(i.Revision)),
		resource.Pair("updated_at", resource.String(i.UpdatedAt.UTC().Format(time.RFC3339))),
	)
}
