package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subgraphd/internal/domain"
)

const exchangeSchema = `
type Token @entity {
  id: ID!
  symbol: String!
  decimals: Int!
  tradeVolume: BigDecimal!
}

type Pair @entity {
  id: ID!
  token0: Token!
  token1: Token!
  reserve0: BigDecimal!
  createdAtBlock: BigInt!
  swaps: [Swap!]! @derivedFrom(field: "pair")
}

type Swap @entity {
  id: ID!
  pair: Pair!
  amount0In: BigDecimal!
}

type _Schema_ @fulltext(
  name: "tokenSearch"
  language: en
  algorithm: rank
  include: [{ entity: "Token", fields: [{ name: "symbol" }] }]
)
`

func TestParseSchemaExtractsEntities(t *testing.T) {
	entities, err := ParseSchema("schema.graphql", []byte(exchangeSchema))
	require.NoError(t, err)

	require.Len(t, entities, 3)
	assert.Equal(t, "Token", entities[0].Name)
	assert.Equal(t, "Pair", entities[1].Name)
	assert.Equal(t, "Swap", entities[2].Name)

	token := entities[0]
	require.Len(t, token.Attributes, 4)
	assert.Equal(t, domain.Attribute{Name: "id", Type: "ID"}, token.Attributes[0])
	assert.Equal(t, domain.Attribute{Name: "symbol", Type: "String"}, token.Attributes[1])
	assert.Equal(t, domain.Attribute{Name: "decimals", Type: "Int"}, token.Attributes[2])
	assert.Equal(t, domain.Attribute{Name: "tradeVolume", Type: "BigDecimal"}, token.Attributes[3])
}

func TestParseSchemaMarksListTypes(t *testing.T) {
	entities, err := ParseSchema("schema.graphql", []byte(exchangeSchema))
	require.NoError(t, err)

	pair := entities[1]
	var swaps *domain.Attribute
	for i := range pair.Attributes {
		if pair.Attributes[i].Name == "swaps" {
			swaps = &pair.Attributes[i]
		}
	}
	require.NotNil(t, swaps)
	assert.True(t, swaps.List)
	assert.Equal(t, "Swap", swaps.Type)
}

func TestParseSchemaSkipsReservedTypes(t *testing.T) {
	doc := `
type Query {
  token(id: ID!): Token
}

type _Meta_ {
  block: Int!
}

type Token @entity {
  id: ID!
}
`
	entities, err := ParseSchema("schema.graphql", []byte(doc))
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "Token", entities[0].Name)
}

func TestParseSchemaRejectsBadSyntax(t *testing.T) {
	_, err := ParseSchema("schema.graphql", []byte("type Token { id: "))
	require.Error(t, err)
}

func TestParseSchemaFeedsIndexDerivation(t *testing.T) {
	entities, err := ParseSchema("schema.graphql", []byte(exchangeSchema))
	require.NoError(t, err)

	defs := domain.AttributeIndexDefinitions(entities)

	// Entity references (token0, token1, pair) and the derived swaps list
	// have entity base types, which never parse as indexable values.
	for _, def := range defs {
		assert.NotEqual(t, "token0", def.AttributeName)
		assert.NotEqual(t, "pair", def.AttributeName)
		assert.NotEqual(t, "swaps", def.AttributeName)
	}

	// Token: id, symbol, decimals, tradeVolume. Pair: id, reserve0,
	// createdAtBlock. Swap: id, amount0In.
	assert.Len(t, defs, 9)
}
