package location

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const usEast1Endpoint = "s3.us-east-1.amazonaws.com"

// endpointPattern matches virtual-hosted (bucket.s3.region.amazonaws.com) and
// path-style (s3.region.amazonaws.com / s3-region.amazonaws.com) AWS hosts. The
// first group is the bucket with a trailing dot, the second the region.
var endpointPattern = regexp.MustCompile(`^(.+\.)?s3[.-]([a-z0-9-]+)\.amazonaws\.com$`)

var globalEndpointPattern = regexp.MustCompile(`(?i)s3\.amazonaws\.com`)

// S3Location is a normalized S3 backup location.
type S3Location struct {
	Bucket string
	Key    string
	Region string
}

// ParseS3URI parses a virtual-hosted, path-style or s3:// backup URI. Hosts on the
// global s3.amazonaws.com endpoint are treated as us-east-1, which is where such
// buckets live. The returned Region is empty when the URI carries no region.
func ParseS3URI(uri string) (*S3Location, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("Unable to parse URI: %s", uri)
	}

	if strings.EqualFold(u.Scheme, "s3") {
		if u.Host == "" {
			return nil, fmt.Errorf("No bucket found in URI: %s", uri)
		}
		return &S3Location{Bucket: u.Host, Key: strings.TrimPrefix(u.Path, "/")}, nil
	}

	if u.Host == "" {
		return nil, fmt.Errorf("No hostname found in URI: %s", uri)
	}
	host := strings.ToLower(globalEndpointPattern.ReplaceAllString(u.Hostname(), usEast1Endpoint))

	m := endpointPattern.FindStringSubmatch(host)
	if m == nil {
		// Custom endpoint, path style without region.
		bucket, key := splitPath(u.Path)
		return &S3Location{Bucket: bucket, Key: key}, nil
	}

	loc := &S3Location{}
	if m[1] == "" {
		loc.Bucket, loc.Key = splitPath(u.Path)
	} else {
		loc.Bucket = host[:len(m[1])-1]
		loc.Key = strings.TrimPrefix(u.Path, "/")
	}
	loc.Region = m[2]
	return loc, nil
}

// RequireRegion is ParseS3URI that also fails when no region can be determined.
func RequireRegion(uri string) (*S3Location, error) {
	loc, err := ParseS3URI(uri)
	if err != nil {
		return nil, err
	}
	if loc.Region == "" {
		return nil, fmt.Errorf("Missing region info in uri: %s", uri)
	}
	return loc, nil
}

func splitPath(p string) (bucket, key string) {
	parts := strings.SplitN(strings.TrimPrefix(p, "/"), "/", 2)
	bucket = parts[0]
	if len(parts) == 2 {
		key = parts[1]
	}
	return bucket, key
}
