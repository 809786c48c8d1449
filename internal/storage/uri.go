package storage

import (
	"fmt"
	"path"
	"strings"
)

// Supported URI schemes
const (
	SchemeGCS = "gs"
	SchemeS3  = "s3"
)

// URI is a parsed object storage location
type URI struct {
	Scheme string
	Bucket string
	Prefix string
}

// ParseURI parses gs://bucket/prefix or s3://bucket/prefix. The prefix may
// be empty and never carries leading or trailing slashes.
func ParseURI(raw string) (URI, error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return URI{}, fmt.Errorf("invalid storage URI %q: missing scheme", raw)
	}
	if scheme != SchemeGCS && scheme != SchemeS3 {
		return URI{}, fmt.Errorf("invalid storage URI %q: unsupported scheme %q", raw, scheme)
	}
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return URI{}, fmt.Errorf("invalid storage URI %q: no bucket", raw)
	}
	return URI{Scheme: scheme, Bucket: bucket, Prefix: strings.Trim(prefix, "/")}, nil
}

// Key joins name onto the prefix
func (u URI) Key(name ...string) string {
	parts := append([]string{u.Prefix}, name...)
	return strings.TrimPrefix(path.Join(parts...), "/")
}

// Join returns the URI of name below u
func (u URI) Join(name ...string) URI {
	return URI{Scheme: u.Scheme, Bucket: u.Bucket, Prefix: u.Key(name...)}
}

// String formats u as scheme://bucket/prefix
func (u URI) String() string {
	if u.Prefix == "" {
		return fmt.Sprintf("%s://%s", u.Scheme, u.Bucket)
	}
	return fmt.Sprintf("%s://%s/%s", u.Scheme, u.Bucket, u.Prefix)
}
