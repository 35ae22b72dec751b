package domain

import "time"

// EntryKind distinguishes files from folders in a CloudPort listing.
type EntryKind string

const (
	EntryFile   EntryKind = "file"
	EntryFolder EntryKind = "folder"
)

// Entry is a single cloud-provider filesystem node, always addressed and
// returned in the original absolute path form even when the lookup was
// routed through a workspace namespace client.
type Entry struct {
	ID          string
	Kind        EntryKind
	Name        string
	PathDisplay string
}

// IsFolder reports whether the entry is a directory.
func (e Entry) IsFolder() bool {
	return e.Kind == EntryFolder
}

// ShareLink is a durable, public link to a cloud path.
type ShareLink struct {
	URL         string
	ExpiresAt   *time.Time
	IsPublic    bool
}

// CloudLocation is the durable record of a materialized cloud path, owned
// jointly by LADE and whichever Lease references it. Identity is
// (Provider, Path); upserts are by that pair.
type CloudLocation struct {
	ID       uint
	Provider string
	Path     string

	Name          string
	IsDirectory   bool
	ShareURL      *string
	ShareExpiresAt *time.Time
	IsPublic      bool
}

// NewCloudLocation builds a CloudLocation for a directory found or created
// at path, optionally carrying a share link.
func NewCloudLocation(provider, path, name string, link *ShareLink) CloudLocation {
	loc := CloudLocation{
		Provider:    provider,
		Path:        path,
		Name:        name,
		IsDirectory: true,
	}
	if link != nil {
		url := link.URL
		loc.ShareURL = &url
		loc.ShareExpiresAt = link.ExpiresAt
		loc.IsPublic = link.IsPublic
	}
	return loc
}
