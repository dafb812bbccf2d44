package storageapi

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// UploadFile uploads the content of r as a Storage file. The body is streamed,
// so the request is sent only once.
func (c *Client) UploadFile(ctx context.Context, req UploadFileRequest, r io.Reader) (*File, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeUploadForm(mw, req, r))
	}()

	httpReq, err := c.newRequest(ctx, http.MethodPost, c.endpoint("/files/upload", nil), pr)
	if err != nil {
		pr.CloseWithError(err)
		return nil, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		pr.CloseWithError(err)
		return nil, fmt.Errorf("failed to upload file %s: %w", req.Name, err)
	}

	var file File
	if err := c.handleResponse(resp, &file); err != nil {
		pr.CloseWithError(err)
		return nil, unwrapPermanent(err)
	}
	return &file, nil
}

func writeUploadForm(mw *multipart.Writer, req UploadFileRequest, r io.Reader) error {
	fields := [][2]string{
		{"name", req.Name},
		{"isPermanent", boolField(req.IsPermanent)},
		{"isSliced", boolField(req.IsSliced)},
		{"notify", "0"},
	}
	for _, tag := range req.Tags {
		fields = append(fields, [2]string{"tags[]", tag})
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}

	part, err := mw.CreateFormFile("file", req.Name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return mw.Close()
}

func boolField(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
