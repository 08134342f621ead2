package app

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subgraphd/internal/domain"
	"subgraphd/internal/infra/store/bolt"
)

const exchangeManifest = `
specVersion: 0.0.4
description: Token exchange pairs
schema:
  file:
    /: /ipfs/QmSchemaHash
dataSources:
  - kind: ethereum/contract
    name: Factory
    network: mainnet
    source:
      address: "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"
      abi: Factory
      startBlock: 10000835
    mapping:
      kind: ethereum/events
      apiVersion: 0.0.6
      language: wasm/assemblyscript
      entities:
        - Pair
        - Token
      eventHandlers:
        - event: PairCreated(indexed address,indexed address,address,uint256)
          handler: handlePairCreated
      file:
        /: /ipfs/QmFactoryMapping
`

const exchangeSchema = `
type Token @entity {
  id: ID!
  symbol: String!
}

type Pair @entity {
  id: ID!
  token0: Token!
  token1: Token!
}
`

type fakeGateway struct {
	mu    sync.Mutex
	hits  map[string]int
	files map[string]string
}

func newFakeGateway(t *testing.T) (*fakeGateway, *httptest.Server) {
	t.Helper()
	gw := &fakeGateway{
		hits: make(map[string]int),
		files: map[string]string{
			"/ipfs/QmExchange1":  exchangeManifest,
			"/ipfs/QmSchemaHash": exchangeSchema,
		},
	}
	server := httptest.NewServer(gw)
	t.Cleanup(server.Close)
	return gw, server
}

func (g *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	g.hits[r.URL.Path]++
	content, ok := g.files[r.URL.Path]
	g.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write([]byte(content))
}

func (g *fakeGateway) hitCount(path string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hits[path]
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.ReplaceAll(content, "\t", "  ")), 0o600))
	return path
}

func memoryConfig(t *testing.T, dir, endpoint string) string {
	t.Helper()
	return writeFile(t, dir, "subgraphd.yaml", fmt.Sprintf(`
gateway:
  endpoint: %s
resolver:
  timeoutSeconds: 5
  attempts: 1
store:
  backend: memory
observability:
  listenAddress: "127.0.0.1:0"
eventBufferSize: 16
`, endpoint))
}

func TestServeConvergesOnAssignments(t *testing.T) {
	gw, server := newFakeGateway(t)
	dir := t.TempDir()

	assignmentsPath := writeFile(t, dir, "assignments.yaml", `
deployments:
  - id: QmExchange1
`)
	configPath := writeFile(t, dir, "subgraphd.yaml", fmt.Sprintf(`
gateway:
  endpoint: %s
resolver:
  timeoutSeconds: 5
  attempts: 1
store:
  backend: memory
assignments:
  path: %s
  debounceMs: 10
observability:
  listenAddress: "127.0.0.1:0"
eventBufferSize: 16
`, server.URL, assignmentsPath))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- New(nil).Serve(ctx, ServeConfig{ConfigPath: configPath})
	}()

	require.Eventually(t, func() bool {
		return gw.hitCount("/ipfs/QmExchange1") > 0
	}, 5*time.Second, 50*time.Millisecond, "assignment was never resolved")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not shut down")
	}
}

func TestServeWithoutAssignmentsShutsDownCleanly(t *testing.T) {
	_, server := newFakeGateway(t)
	configPath := memoryConfig(t, t.TempDir(), server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(nil).Serve(ctx, ServeConfig{ConfigPath: configPath})
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not shut down")
	}
}

func TestServeRejectsBrokenConfig(t *testing.T) {
	configPath := writeFile(t, t.TempDir(), "subgraphd.yaml", `
gateway:
  endpoint: ""
`)

	err := New(nil).Serve(context.Background(), ServeConfig{ConfigPath: configPath})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway.endpoint is required")
}

func TestValidateConfigAcceptsCompleteSetup(t *testing.T) {
	dir := t.TempDir()
	assignmentsPath := writeFile(t, dir, "assignments.yaml", `
deployments:
  - id: QmExchange1
  - id: QmExchange2
`)
	configPath := writeFile(t, dir, "subgraphd.yaml", fmt.Sprintf(`
gateway:
  endpoint: http://127.0.0.1:8080
store:
  backend: memory
assignments:
  path: %s
`, assignmentsPath))

	require.NoError(t, New(nil).ValidateConfig(context.Background(), ValidateConfig{ConfigPath: configPath}))
}

func TestValidateConfigRejectsBadAssignments(t *testing.T) {
	dir := t.TempDir()
	assignmentsPath := writeFile(t, dir, "assignments.yaml", `
deployments:
  - id: Qm/evil
`)
	configPath := writeFile(t, dir, "subgraphd.yaml", fmt.Sprintf(`
gateway:
  endpoint: http://127.0.0.1:8080
store:
  backend: memory
assignments:
  path: %s
`, assignmentsPath))

	err := New(nil).ValidateConfig(context.Background(), ValidateConfig{ConfigPath: configPath})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-alphanumeric")
}

func TestResolveDeploymentPrintsManifest(t *testing.T) {
	_, server := newFakeGateway(t)
	configPath := memoryConfig(t, t.TempDir(), server.URL)

	var out bytes.Buffer
	err := New(nil).ResolveDeployment(context.Background(), ResolveConfig{
		ConfigPath: configPath,
		Deployment: "QmExchange1",
		Output:     &out,
	})
	require.NoError(t, err)

	rendered := out.String()
	assert.Contains(t, rendered, "deployment: QmExchange1")
	assert.Contains(t, rendered, `specVersion: 0.0.4`)
	assert.Contains(t, rendered, "- Token")
	assert.Contains(t, rendered, "name: Factory")
	assert.Contains(t, rendered, "handlers: 1")
}

func TestResolveDeploymentRejectsBadID(t *testing.T) {
	_, server := newFakeGateway(t)
	configPath := memoryConfig(t, t.TempDir(), server.URL)

	err := New(nil).ResolveDeployment(context.Background(), ResolveConfig{
		ConfigPath: configPath,
		Deployment: "",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deployment id is empty")
}

func TestDeploymentStatusReadsStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	storePath := filepath.Join(dir, "meta.db")

	seeded, err := bolt.Open(storePath)
	require.NoError(t, err)
	id := domain.DeploymentID("QmExchange1")
	require.NoError(t, seeded.ApplyFailureMarker(ctx, id, domain.FailureMarker{
		Failed:    true,
		Reason:    "resolve timeout",
		UpdatedAt: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, seeded.RecordDynamicDataSource(ctx, id, domain.DynamicDataSourceRecord{
		Name:        "Pair",
		MappingLink: "/ipfs/QmPairMapping",
		Ordinal:     0,
	}))
	require.NoError(t, seeded.Close())

	configPath := writeFile(t, dir, "subgraphd.yaml", fmt.Sprintf(`
gateway:
  endpoint: http://127.0.0.1:8080
store:
  backend: bolt
  path: %s
`, storePath))

	var out bytes.Buffer
	require.NoError(t, New(nil).DeploymentStatus(ctx, StatusConfig{
		ConfigPath: configPath,
		Deployment: "QmExchange1",
		Output:     &out,
	}))

	rendered := out.String()
	assert.Contains(t, rendered, "deployment: QmExchange1")
	assert.Contains(t, rendered, "failed: true")
	assert.Contains(t, rendered, "reason: resolve timeout")
	assert.Contains(t, rendered, "2026-03-14T10:00:00Z")
	assert.Contains(t, rendered, "dynamicDataSources: 1")
}
