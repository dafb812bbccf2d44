package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"keboola.io/project-restore/internal/config"
	"keboola.io/project-restore/internal/location"
)

// SignedURLsObject is the object under the backup prefix that lists a signed
// download URL for every other object of the backup.
const SignedURLsObject = "signedUrls.json"

const gcsMaxRetries = 5

// SignedURL is one entry of signedUrls.json.
type SignedURL struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// GCSSource implements Source for a GCS backup. Only signedUrls.json is read
// through the GCS API; every other object is downloaded from its signed URL.
type GCSSource struct {
	location   location.GCSLocation
	openObject func(ctx context.Context, object string) (io.ReadCloser, error)
	httpClient *http.Client
	signedURLs map[string]string
}

// NewGCSSource creates a GCS client authorized by the short-lived access token from the configuration.
func NewGCSSource(ctx context.Context, cfg *config.GCS, opts ...option.ClientOption) (*GCSSource, error) {
	token := &oauth2.Token{
		AccessToken: cfg.Credentials.Token(),
		TokenType:   cfg.Credentials.TokenType,
	}
	if cfg.Credentials.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(cfg.Credentials.ExpiresIn) * time.Second)
	}

	opts = append([]option.ClientOption{option.WithTokenSource(oauth2.StaticTokenSource(token))}, opts...)
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	loc := location.NewGCSLocation(cfg.Bucket, cfg.BackupURI)
	return &GCSSource{
		location: loc,
		openObject: func(ctx context.Context, object string) (io.ReadCloser, error) {
			r, err := client.Bucket(loc.Bucket).Object(object).NewReader(ctx)
			if errors.Is(err, storage.ErrObjectNotExist) {
				return nil, fmt.Errorf("%w: %v", ErrNotExist, err)
			}
			return r, err
		},
		httpClient: http.DefaultClient,
	}, nil
}

// Open downloads the named object from its signed URL. The URL list is loaded on first use.
func (s *GCSSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if s.signedURLs == nil {
		if err := s.loadSignedURLs(ctx); err != nil {
			return nil, &Error{Source: s.Identifier(), Name: SignedURLsObject, Err: err}
		}
	}

	u, ok := s.signedURLs[name]
	if !ok {
		return nil, &Error{Source: s.Identifier(), Name: name, Err: fmt.Errorf("%w: no signed URL", ErrNotExist)}
	}

	body, err := s.download(ctx, u)
	if err != nil {
		return nil, &Error{Source: s.Identifier(), Name: name, Err: err}
	}
	return body, nil
}

func (s *GCSSource) loadSignedURLs(ctx context.Context) error {
	r, err := s.openObject(ctx, s.location.Object(SignedURLsObject))
	if err != nil {
		return err
	}
	defer r.Close()

	var entries []SignedURL
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return fmt.Errorf("failed to parse %s: %w", SignedURLsObject, err)
	}

	urls := make(map[string]string, len(entries))
	for _, e := range entries {
		urls[e.Name] = e.URL
	}
	s.signedURLs = urls
	return nil
}

func (s *GCSSource) download(ctx context.Context, u string) (io.ReadCloser, error) {
	var body io.ReadCloser
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := s.httpClient.Do(req)
		if err != nil {
			return err
		}
		switch {
		case resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			return backoff.Permanent(ErrNotExist)
		case resp.StatusCode >= 500:
			resp.Body.Close()
			return fmt.Errorf("unexpected status %s", resp.Status)
		case resp.StatusCode >= 300:
			resp.Body.Close()
			return backoff.Permanent(fmt.Errorf("unexpected status %s", resp.Status))
		}
		body = resp.Body
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), gcsMaxRetries), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return nil, err
	}
	return body, nil
}

// Identifier returns the gs:// URI of the backup root.
func (s *GCSSource) Identifier() string {
	return fmt.Sprintf("gs://%s/%s", s.location.Bucket, s.location.Prefix)
}
