package ipfs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subgraphd/internal/domain"
)

func TestClientResolvesLink(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte("dataSources: []"))
	}))
	defer server.Close()

	client, err := NewClient(ClientOptions{Endpoint: server.URL})
	require.NoError(t, err)

	data, err := client.ResolveLink(context.Background(), "/ipfs/QmManifest")
	require.NoError(t, err)
	assert.Equal(t, []byte("dataSources: []"), data)
	assert.Equal(t, "/ipfs/QmManifest", gotPath)
}

func TestClientAcceptsBareHash(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ipfs/QmBare", r.URL.Path)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client, err := NewClient(ClientOptions{Endpoint: server.URL})
	require.NoError(t, err)

	_, err = client.ResolveLink(context.Background(), "QmBare")
	require.NoError(t, err)
}

func TestClientMapsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, err := NewClient(ClientOptions{Endpoint: server.URL})
	require.NoError(t, err)

	_, err = client.ResolveLink(context.Background(), "/ipfs/QmMissing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, domain.CodeNotFound, codeOf(t, err))
}

func codeOf(t *testing.T, err error) domain.ErrorCode {
	t.Helper()
	code, ok := domain.CodeFrom(err)
	require.True(t, ok)
	return code
}

func TestClientRejectsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := NewClient(ClientOptions{Endpoint: server.URL})
	require.NoError(t, err)

	_, err = client.ResolveLink(context.Background(), "/ipfs/QmFlaky")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrNotFound))
	assert.Contains(t, err.Error(), "unexpected status")
}

func TestClientEnforcesSizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(make([]byte, 64))
	}))
	defer server.Close()

	client, err := NewClient(ClientOptions{Endpoint: server.URL, MaxFileBytes: 16})
	require.NoError(t, err)

	_, err = client.ResolveLink(context.Background(), "/ipfs/QmHuge")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 16 bytes")
}

func TestClientRejectsEmptyLink(t *testing.T) {
	client, err := NewClient(ClientOptions{Endpoint: "http://127.0.0.1:1"})
	require.NoError(t, err)

	_, err = client.ResolveLink(context.Background(), "  ")
	require.Error(t, err)
	assert.Equal(t, domain.CodeInvalidArgument, codeOf(t, err))
}

func TestNewClientValidatesEndpoint(t *testing.T) {
	_, err := NewClient(ClientOptions{Endpoint: "ftp://gateway.local"})
	require.Error(t, err)
	assert.Equal(t, domain.CodeInvalidArgument, codeOf(t, err))
}
