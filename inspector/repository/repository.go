package repository

import "time"

// Repository describes the version-controlled tree a scanned root belongs to
type Repository struct {
	Kind   string `json:"kind" yaml:"kind"`
	Root   string `json:"root" yaml:"root"`
	Origin string `json:"origin,omitempty" yaml:"origin,omitempty"`
	Name   string `json:"name" yaml:"name"`
}

// Asset is a discovered source file
type Asset struct {
	URL          string    // absolute location, readable with afs
	RelativePath string    // slash separated path below the scanned root
	Size         int64     // bytes
	Modified     time.Time // last modification time
}
