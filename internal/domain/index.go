package domain

// ValueType is a storable scalar type of an entity attribute.
type ValueType string

const (
	ValueTypeBoolean    ValueType = "Boolean"
	ValueTypeInt        ValueType = "Int"
	ValueTypeBigInt     ValueType = "BigInt"
	ValueTypeBigDecimal ValueType = "BigDecimal"
	ValueTypeBytes      ValueType = "Bytes"
	ValueTypeString     ValueType = "String"
	ValueTypeID         ValueType = "ID"
)

// ValueTypeFrom maps a schema base type name to its ValueType. Reference
// types (entity names) report false and get no index.
func ValueTypeFrom(name string) (ValueType, bool) {
	switch ValueType(name) {
	case ValueTypeBoolean, ValueTypeInt, ValueTypeBigInt, ValueTypeBigDecimal,
		ValueTypeBytes, ValueTypeString, ValueTypeID:
		return ValueType(name), true
	default:
		return "", false
	}
}

// IndexDefinition describes one attribute index to build for an entity.
// Entity and attribute numbers follow schema declaration order so the
// resulting index names are stable across restarts.
type IndexDefinition struct {
	EntityNumber    int
	AttributeNumber int
	EntityName      string
	AttributeName   string
	ValueType       ValueType
}

// AttributeIndexDefinitions derives one index definition per scalar-typed
// attribute of every entity type. Attributes whose base type is another
// entity are skipped.
func AttributeIndexDefinitions(entities []EntityType) []IndexDefinition {
	var defs []IndexDefinition
	for entityNumber, entity := range entities {
		for attributeNumber, attr := range entity.Attributes {
			valueType, ok := ValueTypeFrom(attr.Type)
			if !ok {
				continue
			}
			defs = append(defs, IndexDefinition{
				EntityNumber:    entityNumber,
				AttributeNumber: attributeNumber,
				EntityName:      entity.Name,
				AttributeName:   attr.Name,
				ValueType:       valueType,
			})
		}
	}
	return defs
}
