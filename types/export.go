package types

import "time"

// ExportBundle describes a catalog snapshot archive written to object storage.
//
// The archive is a gzip-compressed tarball holding restaurants.json and
// reservations.json. SHA256 covers the compressed bytes as uploaded.
type ExportBundle struct {
	// ObjectKey is the path of the archive in the configured bucket.
	ObjectKey string `json:"objectKey"`

	// SHA256 is the hex-encoded digest of the archive.
	SHA256 string `json:"sha256"`

	// Size is the archive length in bytes.
	Size int64 `json:"size"`

	// Restaurants and Reservations are the record counts in the snapshot.
	Restaurants  int `json:"restaurants"`
	Reservations int `json:"reservations"`

	CreatedAt time.Time `json:"createdAt"`
}
