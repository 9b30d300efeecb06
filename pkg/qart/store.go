// Package qart stores photon archives in S3-compatible storage.
package qart

import (
	"context"
	"io"
	"strings"
	"time"
)

// Artifact is a stored object with metadata.
type Artifact struct {
	Key          string            `json:"key"`           // e.g. "photons/calc-1a2b.photon"
	Bucket       string            `json:"bucket"`
	Size         int64             `json:"size"`
	ContentType  string            `json:"content_type"`
	LastModified time.Time         `json:"last_modified"`
	Metadata     map[string]string `json:"metadata"`
	URL          string            `json:"url,omitempty"` // presigned URL, when requested
}

// Store defines the artifact storage operations.
type Store interface {
	// Upload stores reader under key. size may be -1 when unknown.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string, metadata map[string]string) (*Artifact, error)

	// Download returns ErrNotFound when key does not exist.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	GetPresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)

	// List lists all artifacts with the given prefix.
	List(ctx context.Context, prefix string) ([]*Artifact, error)

	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every object under prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// EnsureBucket creates the bucket if it does not exist.
	EnsureBucket(ctx context.Context) error
}

const (
	PhotonPrefix      = "photons/"
	ArchiveSuffix     = ".photon"
	MetadataSuffix    = ".json"
	ArchiveMediaType  = "application/zip"
	MetadataMediaType = "application/json"
)

// PhotonArchiveKey returns the key of a photon's archive.
func PhotonArchiveKey(id string) string {
	return PhotonPrefix + id + ArchiveSuffix
}

// PhotonMetadataKey returns the key of the listing record stored next to
// the archive.
func PhotonMetadataKey(id string) string {
	return PhotonPrefix + id + MetadataSuffix
}

// PhotonObjectsPrefix matches both objects of one photon.
func PhotonObjectsPrefix(id string) string {
	return PhotonPrefix + id + "."
}

// PhotonIDFromKey extracts the id from a metadata key.
func PhotonIDFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, PhotonPrefix) || !strings.HasSuffix(key, MetadataSuffix) {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimPrefix(key, PhotonPrefix), MetadataSuffix), true
}
