package canvas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// uploadTicket is the platform's answer to an upload reservation: where to
// send the bytes and which form fields must accompany them.
type uploadTicket struct {
	UploadURL    string            `json:"upload_url"`
	UploadParams map[string]string `json:"upload_params"`
}

// UploadFile uploads a file into a course folder using the platform's
// three-step flow: reserve an upload, POST the bytes as multipart form data
// to the returned URL, then confirm via the redirect the storage backend
// hands back. The reservation's form fields must precede the file part.
func (c *Client) UploadFile(ctx context.Context, folderID int64, name string, r io.Reader, size int64) (*File, error) {
	const op = "upload file"

	var ticket uploadTicket
	body := map[string]any{"name": name, "size": size}
	path := fmt.Sprintf("/folders/%d/files", folderID)
	if err := c.do(ctx, op, http.MethodPost, path, nil, body, &ticket); err != nil {
		return nil, err
	}
	if ticket.UploadURL == "" {
		return nil, fmt.Errorf("%s: reservation returned no upload URL", op)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range ticket.UploadParams {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, fmt.Errorf("%s: read source: %w", op, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ticket.UploadURL, &buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	// The storage backend answers with either the file object directly or a
	// redirect back to the API that must be followed with auth attached, so
	// redirects are handled by hand here.
	up := &http.Client{
		Timeout: c.hc.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := up.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode/100 == 2:
		var f File
		if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
			return nil, fmt.Errorf("%s: decode response: %w", op, err)
		}
		return &f, nil
	case resp.StatusCode/100 == 3:
		loc := resp.Header.Get("Location")
		if loc == "" {
			return nil, fmt.Errorf("%s: storage redirect without location", op)
		}
		confirm, err := c.newRequest(ctx, http.MethodGet, loc, nil)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		cresp, err := c.hc.Do(confirm)
		if err != nil {
			return nil, fmt.Errorf("%s: confirm: %w", op, err)
		}
		defer cresp.Body.Close()
		if cresp.StatusCode/100 != 2 {
			return nil, apiError(op+": confirm", cresp)
		}
		var f File
		if err := json.NewDecoder(cresp.Body).Decode(&f); err != nil {
			return nil, fmt.Errorf("%s: decode response: %w", op, err)
		}
		return &f, nil
	default:
		return nil, apiError(op+": store bytes", resp)
	}
}
