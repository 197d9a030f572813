// Package netx performs the raw byte transfer to a presigned upload target.
package netx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// ProgressFunc receives the number of bytes transferred so far and the total
// payload size. Called from the uploading goroutine; implementations must be
// cheap and must not block.
type ProgressFunc func(transferred, total int64)

type progressReader struct {
	r        io.Reader
	total    int64
	read     int64
	progress ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		if p.progress != nil {
			p.progress(p.read, p.total)
		}
	}
	return n, err
}

// UploadToPresignedURL PUTs body to url with the declared content type.
// The request is bound to ctx, so cancelling it (offline transition,
// timeout) aborts the transfer mid-flight.
func UploadToPresignedURL(ctx context.Context, url string, contentType string, body []byte, progress ProgressFunc) error {
	pr := &progressReader{r: bytes.NewReader(body), total: int64(len(body)), progress: progress}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, pr)
	if err != nil {
		return err
	}
	req.ContentLength = int64(len(body))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}
	return nil
}
