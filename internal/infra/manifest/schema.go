package manifest

import (
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"subgraphd/internal/domain"
)

// ParseSchema extracts the entity types from a GraphQL schema document.
// Only syntax is checked; subgraph schemas have no Query root, so full
// schema validation would reject every one of them.
func ParseSchema(name string, data []byte) ([]domain.EntityType, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: string(data)})
	if err != nil {
		return nil, err
	}

	entities := make([]domain.EntityType, 0, len(doc.Definitions))
	for _, def := range doc.Definitions {
		if def.Kind != ast.Object || !isEntityName(def.Name) {
			continue
		}
		entity := domain.EntityType{Name: def.Name}
		for _, field := range def.Fields {
			base, list := baseType(field.Type)
			entity.Attributes = append(entity.Attributes, domain.Attribute{
				Name: field.Name,
				Type: base,
				List: list,
			})
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// isEntityName filters out reserved root types and meta types such as
// _Schema_, which carries fulltext directives rather than entity fields.
func isEntityName(name string) bool {
	if strings.HasPrefix(name, "_") {
		return false
	}
	switch name {
	case "Query", "Mutation", "Subscription":
		return false
	}
	return true
}

func baseType(t *ast.Type) (string, bool) {
	list := false
	for t.Elem != nil {
		list = true
		t = t.Elem
	}
	return t.NamedType, list
}
