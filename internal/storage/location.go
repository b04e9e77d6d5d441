package storage

import (
	"fmt"
	"path"
	"strings"
)

const s3Scheme = "s3://"

// Location is an opaque bucket + key pair addressing one object (or, when the
// key ends in "/", a prefix) in object storage.
type Location struct {
	Bucket string `json:"bucket" dynamodbav:"bucket"`
	Key    string `json:"key" dynamodbav:"key"`
}

// ParseLocation accepts both "s3://bucket/key" and "bucket/key".
// A bare bucket ("s3://bucket" or "bucket") yields an empty key.
func ParseLocation(raw string) (Location, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, s3Scheme)
	if s == "" {
		return Location{}, fmt.Errorf("parse location %q: empty", raw)
	}
	bucket, key, _ := strings.Cut(s, "/")
	if bucket == "" {
		return Location{}, fmt.Errorf("parse location %q: missing bucket", raw)
	}
	return Location{Bucket: bucket, Key: key}, nil
}

// MustParseLocation is ParseLocation for literals known to be valid.
func MustParseLocation(raw string) Location {
	loc, err := ParseLocation(raw)
	if err != nil {
		panic(err)
	}
	return loc
}

// Join appends path elements to the key. A trailing "/" on the last element
// is preserved so prefixes stay prefixes.
func (l Location) Join(elem ...string) Location {
	parts := append([]string{l.Key}, elem...)
	key := path.Join(parts...)
	key = strings.TrimPrefix(key, "/")
	if len(elem) > 0 && strings.HasSuffix(elem[len(elem)-1], "/") {
		key += "/"
	}
	return Location{Bucket: l.Bucket, Key: key}
}

// IsPrefix reports whether the location names a prefix rather than an object.
func (l Location) IsPrefix() bool {
	return l.Key == "" || strings.HasSuffix(l.Key, "/")
}

// Base returns the last element of the key.
func (l Location) Base() string {
	return path.Base(strings.TrimSuffix(l.Key, "/"))
}

// String renders the location as "bucket/key".
func (l Location) String() string {
	if l.Key == "" {
		return l.Bucket
	}
	return l.Bucket + "/" + l.Key
}

// URI renders the location as "s3://bucket/key".
func (l Location) URI() string {
	return s3Scheme + l.String()
}
