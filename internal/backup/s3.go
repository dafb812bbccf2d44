package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"keboola.io/project-restore/internal/location"
)

const s3MaxRetries = 5

// S3Source implements Source for a backup stored under a key prefix of an S3 bucket.
type S3Source struct {
	client   *s3.Client
	bucket   string
	prefix   string
	endpoint string
}

// S3Option customizes the S3 client.
type S3Option func(*s3.Options)

// WithS3Endpoint points the client at an S3-compatible service (MinIO, etc.).
func WithS3Endpoint(endpoint string) S3Option {
	return func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	}
}

// NewS3Source creates an S3Source using static credentials.
func NewS3Source(loc *location.S3Location, accessKeyID, secretAccessKey, sessionToken string, opts ...S3Option) *S3Source {
	opts = append([]S3Option{
		func(o *s3.Options) {
			o.Region = loc.Region
			o.Credentials = credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, sessionToken)
			o.Retryer = retry.NewStandard(func(so *retry.StandardOptions) {
				so.MaxAttempts = s3MaxRetries + 1
			})
		},
	}, opts...)

	var o s3.Options
	for _, opt := range opts {
		opt(&o)
	}
	client := s3.New(o)

	src := &S3Source{
		client: client,
		bucket: loc.Bucket,
		prefix: loc.Key,
	}
	if o.BaseEndpoint != nil {
		src.endpoint = *o.BaseEndpoint
	}
	return src
}

// Open retrieves the object from S3.
func (s *S3Source) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := path.Join(s.prefix, name)

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			err = fmt.Errorf("%w: %v", ErrNotExist, err)
		}
		return nil, &Error{Source: s.Identifier(), Name: name, Err: err}
	}

	return result.Body, nil
}

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}

// Identifier returns the S3 URI of the backup root.
func (s *S3Source) Identifier() string {
	if s.endpoint != "" {
		return fmt.Sprintf("s3://%s/%s (endpoint: %s)", s.bucket, s.prefix, s.endpoint)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.prefix)
}
