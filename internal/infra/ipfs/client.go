package ipfs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"subgraphd/internal/domain"
)

const (
	opCat = "ipfs.ResolveLink"

	// The HTTP client timeout is a hard transport ceiling. Per-attempt
	// deadlines come from the caller's context.
	clientTimeout = 2 * time.Minute
)

// Client fetches content from an IPFS HTTP gateway by path.
type Client struct {
	endpoint     string
	httpClient   *http.Client
	maxFileBytes int64
	logger       *zap.Logger
}

type ClientOptions struct {
	Endpoint     string
	MaxFileBytes int64
	HTTPClient   *http.Client
	Logger       *zap.Logger
}

func NewClient(opts ClientOptions) (*Client, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		endpoint = domain.DefaultGatewayEndpoint
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, domain.E(domain.CodeInvalidArgument, "ipfs.NewClient",
			fmt.Sprintf("invalid gateway endpoint %q", endpoint), err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, domain.E(domain.CodeInvalidArgument, "ipfs.NewClient",
			fmt.Sprintf("gateway endpoint %q must be http or https", endpoint), nil)
	}

	maxFileBytes := opts.MaxFileBytes
	if maxFileBytes <= 0 {
		maxFileBytes = domain.DefaultGatewayMaxFileBytes
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: clientTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		endpoint:     strings.TrimRight(endpoint, "/"),
		httpClient:   httpClient,
		maxFileBytes: maxFileBytes,
		logger:       logger.Named("ipfs"),
	}, nil
}

// ResolveLink fetches the content behind an IPFS path such as
// "/ipfs/Qm.../mapping.wasm". A bare content hash is accepted too.
func (c *Client) ResolveLink(ctx context.Context, link string) ([]byte, error) {
	path := strings.TrimPrefix(strings.TrimSpace(link), "/ipfs/")
	if path == "" {
		return nil, domain.E(domain.CodeInvalidArgument, opCat, "empty link", nil)
	}

	endpoint := fmt.Sprintf("%s/ipfs/%s", c.endpoint, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, domain.E(domain.CodeInvalidArgument, opCat,
			fmt.Sprintf("link %s", link), err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request for %s: %w", link, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, domain.E(domain.CodeNotFound, opCat,
			fmt.Sprintf("link %s", link), domain.ErrNotFound)
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		return nil, fmt.Errorf("gateway request for %s: unexpected status: %s", link, resp.Status)
	}

	data, err := readLimitedBody(resp.Body, c.maxFileBytes)
	if err != nil {
		return nil, domain.E(domain.CodeInvalidArgument, opCat,
			fmt.Sprintf("link %s", link), err)
	}
	return data, nil
}

func readLimitedBody(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("content exceeds %d bytes", limit)
	}
	return data, nil
}

var _ domain.LinkResolver = (*Client)(nil)
