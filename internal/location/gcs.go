package location

import "strings"

// GCSLocation is a bucket and an object prefix inside it.
type GCSLocation struct {
	Bucket string
	Prefix string
}

// NewGCSLocation normalizes the prefix so that it always ends with a slash
// unless it is empty.
func NewGCSLocation(bucket, prefix string) GCSLocation {
	prefix = strings.TrimPrefix(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return GCSLocation{Bucket: bucket, Prefix: prefix}
}

// Object returns the full object name of name under the prefix.
func (l GCSLocation) Object(name string) string {
	return l.Prefix + name
}
