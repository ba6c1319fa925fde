package character

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"yumeadmin/pkg/yumetypes"
)

// EncodeYAML renders a document as YAML for offline editing.
func EncodeYAML(doc yumetypes.CharacterDocument) ([]byte, error) {
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode character document: %w", err)
	}
	return out, nil
}

// DecodeYAML parses a YAML document back into structured form. Missing
// mappings are coerced to empty objects so the normalization invariants hold
// for hand-written files too.
func DecodeYAML(data []byte) (yumetypes.CharacterDocument, error) {
	doc := yumetypes.DefaultCharacterDocument()
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return yumetypes.CharacterDocument{}, fmt.Errorf("decode character document: %w", err)
	}
	if doc.Personality == nil {
		doc.Personality = map[string]string{}
	}
	if doc.Responses == nil {
		doc.Responses = map[string]any{}
	}
	if doc.Behavior == nil {
		doc.Behavior = map[string]any{}
	}
	if doc.Quotes == nil {
		doc.Quotes = []string{}
	}
	return doc, nil
}
