package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subgraphd/internal/domain"
	"subgraphd/internal/infra/store/memory"
)

const pairMappingFragment = `
kind: ethereum/events
apiVersion: 0.0.6
language: wasm/assemblyscript
entities:
  - Swap
eventHandlers:
  - event: Swap(indexed address,uint256,uint256,uint256,uint256,indexed address)
    handler: handleSwap
file:
  /: /ipfs/QmPairMappingWasm
`

type mapResolver struct {
	files map[string][]byte
	calls int
}

func (m *mapResolver) ResolveLink(_ context.Context, link string) ([]byte, error) {
	m.calls++
	data, ok := m.files[link]
	if !ok {
		return nil, fmt.Errorf("link %s: %w", link, domain.ErrNotFound)
	}
	return data, nil
}

func seedRecords(t *testing.T, s *memory.Store, id domain.DeploymentID, records ...domain.DynamicDataSourceRecord) {
	t.Helper()
	for _, record := range records {
		require.NoError(t, s.RecordDynamicDataSource(context.Background(), id, record))
	}
}

func TestLoadDynamicDataSources(t *testing.T) {
	id := domain.DeploymentID("QmExchange1")
	store := memory.New()
	seedRecords(t, store, id,
		domain.DynamicDataSourceRecord{
			Name:          "Pair",
			Kind:          "ethereum/contract",
			Network:       "mainnet",
			Address:       "0x00000000000000000000000000000000000000aa",
			ABI:           "Pair",
			StartBlock:    12000000,
			MappingLink:   "/ipfs/QmPairMapping",
			Ordinal:       1,
			CreationBlock: 12000001,
		},
		domain.DynamicDataSourceRecord{
			Name:        "Pair",
			Kind:        "ethereum/contract",
			Network:     "mainnet",
			Address:     "0x00000000000000000000000000000000000000bb",
			ABI:         "Pair",
			MappingLink: "/ipfs/QmPairMapping",
			Ordinal:     0,
		},
	)
	files := &mapResolver{files: map[string][]byte{
		"/ipfs/QmPairMapping": []byte(pairMappingFragment),
	}}

	l := New(store, files, nil)
	dynamic, err := l.LoadDynamicDataSources(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, dynamic, 2)

	// Rows come back in ordinal order regardless of recording order.
	assert.Equal(t, 0, dynamic[0].Ordinal)
	assert.Equal(t, 1, dynamic[1].Ordinal)
	assert.Equal(t, "0x00000000000000000000000000000000000000bb", dynamic[0].Source.Address)
	assert.Equal(t, uint64(12000001), dynamic[1].CreationBlock)

	// The mapping fragment is resolved and decoded for every row.
	assert.Equal(t, 2, files.calls)
	assert.Equal(t, "/ipfs/QmPairMappingWasm", dynamic[0].Mapping.Link)
	require.Len(t, dynamic[0].Mapping.EventHandlers, 1)
	assert.Equal(t, "handleSwap", dynamic[0].Mapping.EventHandlers[0].Handler)
}

func TestLoadReturnsEmptyWithoutRows(t *testing.T) {
	l := New(memory.New(), &mapResolver{}, nil)

	dynamic, err := l.LoadDynamicDataSources(context.Background(), "QmFresh1")
	require.NoError(t, err)
	assert.Empty(t, dynamic)
}

func TestLoadFailsWhenMappingLinkMissing(t *testing.T) {
	id := domain.DeploymentID("QmExchange1")
	store := memory.New()
	seedRecords(t, store, id, domain.DynamicDataSourceRecord{
		Name:        "Pair",
		MappingLink: "/ipfs/QmVanished",
		Ordinal:     0,
	})

	l := New(store, &mapResolver{files: map[string][]byte{}}, nil)
	_, err := l.LoadDynamicDataSources(context.Background(), id)
	require.Error(t, err)

	code, ok := domain.CodeFrom(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeDataSourceLoadFailed, code)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestLoadFailsOnCorruptRow(t *testing.T) {
	id := domain.DeploymentID("QmExchange1")
	runner := &staticRunner{rows: []json.RawMessage{json.RawMessage(`{"ordinal": "zero"}`)}}

	l := New(runner, &mapResolver{}, nil)
	_, err := l.LoadDynamicDataSources(context.Background(), id)
	require.Error(t, err)

	code, ok := domain.CodeFrom(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeDataSourceLoadFailed, code)
}

func TestLoadWrapsQueryErrors(t *testing.T) {
	runner := &staticRunner{err: errors.New("connection reset")}

	l := New(runner, &mapResolver{}, nil)
	_, err := l.LoadDynamicDataSources(context.Background(), "QmFlaky1")
	require.Error(t, err)

	code, ok := domain.CodeFrom(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeDataSourceLoadFailed, code)
}

type staticRunner struct {
	rows []json.RawMessage
	err  error
}

func (s *staticRunner) RunEntityQuery(_ context.Context, _ domain.EntityQuery) ([]json.RawMessage, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}
