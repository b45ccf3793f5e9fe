package eventexport

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"google.golang.org/api/idtoken"
)

// Fetch retrieves a partial event-export document from url, attaching
// a Google-signed identity token the way the server this module grew
// out of validated identity tokens on the way in. audience is the
// expected token audience (typically the export endpoint's own URL).
func Fetch(ctx context.Context, url, audience string) (*Export, error) {
	client, err := idtoken.NewClient(ctx, audience)
	if err != nil {
		return nil, fmt.Errorf("eventexport: build authenticated client: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("eventexport: build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("eventexport: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("eventexport: fetch %s: status %d: %s", url, resp.StatusCode, body)
	}

	return Read(resp.Body)
}

// PushPatch sends a solved patch back to the upstream database's
// import endpoint, again authenticated with a signed identity token.
func PushPatch(ctx context.Context, url, audience string, patch Patch) error {
	client, err := idtoken.NewClient(ctx, audience)
	if err != nil {
		return fmt.Errorf("eventexport: build authenticated client: %w", err)
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(WritePatch(pw, patch))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		return fmt.Errorf("eventexport: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("eventexport: push patch to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("eventexport: push patch to %s: status %d: %s", url, resp.StatusCode, body)
	}
	return nil
}
