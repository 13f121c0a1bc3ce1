package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// UploadObject streams an object into a storage bucket, overwriting any
// existing object at the same path, and returns its public URL. Size and
// MIME-type limits are enforced by the caller before the upload starts.
func (c *Client) UploadObject(ctx context.Context, bucket, path, contentType string, body io.Reader) (string, error) {
	u := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, bucket, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, body)
	if err != nil {
		return "", fmt.Errorf("error building upload request: %v", err)
	}
	req.Header.Set("apikey", c.anonKey)
	if token := accessToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("platform unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		perr := platformError{}
		_ = json.Unmarshal(data, &perr)
		if perr.Message == "" {
			perr.Message = http.StatusText(resp.StatusCode)
		}
		return "", &RequestError{Status: resp.StatusCode, Code: perr.Code, Message: perr.Message}
	}

	return c.PublicObjectURL(bucket, path), nil
}

func (c *Client) DeleteObject(ctx context.Context, bucket, path string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/storage/v1/object/%s/%s", bucket, path), nil, nil, nil)
}

func (c *Client) PublicObjectURL(bucket, path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, bucket, path)
}
