package backup

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
)

const (
	azureMaxRetries    = 5
	azureRetryDelay    = time.Second
	azureMaxRetryDelay = 30 * time.Second
)

// AzureSource implements Source for a backup stored at the root of an Azure Blob container.
type AzureSource struct {
	container *container.Client
	name      string
}

// NewAzureSource creates an AzureSource from a storage connection string. Both
// account key and SAS connection strings are supported.
func NewAzureSource(connectionString, containerName string, opts ...func(*azcore.ClientOptions)) (*AzureSource, error) {
	clientOpts := azcore.ClientOptions{
		Retry: policy.RetryOptions{
			MaxRetries:    azureMaxRetries,
			RetryDelay:    azureRetryDelay,
			MaxRetryDelay: azureMaxRetryDelay,
		},
	}
	for _, opt := range opts {
		opt(&clientOpts)
	}

	client, err := container.NewClientFromConnectionString(connectionString, containerName, &container.ClientOptions{
		ClientOptions: clientOpts,
	})
	if err != nil {
		return nil, err
	}

	return &AzureSource{container: client, name: containerName}, nil
}

// Open downloads the blob.
func (s *AzureSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	resp, err := s.container.NewBlobClient(name).DownloadStream(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			err = fmt.Errorf("%w: %v", ErrNotExist, err)
		}
		return nil, &Error{Source: s.Identifier(), Name: name, Err: err}
	}
	return resp.Body, nil
}

// Identifier returns the container URL without any SAS query.
func (s *AzureSource) Identifier() string {
	u, err := url.Parse(s.container.URL())
	if err != nil {
		return fmt.Sprintf("azure:%s", s.name)
	}
	u.RawQuery = ""
	return fmt.Sprintf("azure:%s", u)
}
