// Package fetch implements the HTTP client collaborator the pipeline's
// producers use: given an endpoint template and a fragment sequence number,
// it fetches the fragment's body and the sequence number the server
// actually annotated it with, read via a canonical header lookup.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// FragmentHeader is the response header the server annotates each fragment
// with, carrying its sequence number as a decimal integer.
const FragmentHeader = "X-Ece252-Fragment"

// HTTPFetcher implements pipeline.Fetcher against a real HTTP endpoint. The
// fragment URL is built as "{endpoint}?img={image_num}&part={k}".
type HTTPFetcher struct {
	Client   *http.Client
	Endpoint string
	// Timeout bounds each individual fetch. Zero means no per-fetch deadline
	// beyond whatever the caller's context already carries.
	Timeout time.Duration
}

// NewHTTPFetcher builds a fetcher bounding every request to timeout.
func NewHTTPFetcher(endpoint string, client *http.Client, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{Client: client, Endpoint: endpoint, Timeout: timeout}
}

// Fetch downloads the fragment named by imageNum/sequence and returns the
// sequence number the server's response header actually carries (which the
// caller must compare against the requested sequence) along with the body.
func (f *HTTPFetcher) Fetch(ctx context.Context, imageNum, sequence int) (int, []byte, error) {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	url := fmt.Sprintf("%s?img=%d&part=%d", f.Endpoint, imageNum, sequence)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, errors.Wrap(err, "building fragment request")
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return 0, nil, errors.Wrap(err, "fetching fragment")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, nil, errors.Errorf("fetching fragment: unexpected status %s", resp.Status)
	}

	seqHeader := resp.Header.Get(FragmentHeader)
	seq, err := strconv.Atoi(seqHeader)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "parsing %s header %q", FragmentHeader, seqHeader)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, errors.Wrap(err, "reading fragment body")
	}

	return seq, body, nil
}
