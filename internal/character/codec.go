// Package character converts character documents between their structured
// form and the flat text representations an operator edits. All transforms
// are pure and synchronous; nothing here touches the network.
package character

import (
	"encoding/json"
	"fmt"
	"strings"

	"yumeadmin/pkg/yumetypes"
)

// MalformedInputError reports editable text that does not parse back into the
// required structure. Field names the editing surface the text came from.
type MalformedInputError struct {
	Field  string
	Reason string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ObjectToText renders a mapping as indented JSON for editing. Absent or nil
// values become an empty-object rendering.
func ObjectToText(v any) string {
	if v == nil {
		return "{}"
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil || string(b) == "null" {
		return "{}"
	}
	return string(b)
}

// ParseObject parses edited text back into a mapping. Empty text counts as an
// empty object. Arrays and non-object scalars are rejected.
func ParseObject(field, text string) (map[string]any, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return map[string]any{}, nil
	}

	var parsed any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return nil, &MalformedInputError{Field: field, Reason: fmt.Sprintf("not valid JSON: %v", err)}
	}
	obj, ok := parsed.(map[string]any)
	if !ok || obj == nil {
		return nil, &MalformedInputError{Field: field, Reason: "must be a JSON object"}
	}
	return obj, nil
}

// ParseStringObject parses edited text into a string-to-string mapping.
// Values of other shapes are stringified, since the personality mapping is
// defined as string-to-string.
func ParseStringObject(field, text string) (map[string]string, error) {
	obj, err := ParseObject(field, text)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		out[k] = yumetypes.Stringify(v)
	}
	return out, nil
}

// QuotesToText joins quotes with newlines. No trimming happens in this
// direction; trimming only ever removes blank noise introduced by editing.
func QuotesToText(quotes []string) string {
	return strings.Join(quotes, "\n")
}

// ParseQuotes splits edited text into one quote per line, trimming each line
// and dropping blank ones.
func ParseQuotes(text string) []string {
	quotes := []string{}
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		quotes = append(quotes, line)
	}
	return quotes
}

// EditorText is the flat representation of a document's structured fields.
type EditorText struct {
	Personality string
	Responses   string
	Behavior    string
	Quotes      string
}

// ToEditorText renders the structured fields of a document for editing.
func ToEditorText(doc yumetypes.CharacterDocument) EditorText {
	return EditorText{
		Personality: ObjectToText(doc.Personality),
		Responses:   ObjectToText(doc.Responses),
		Behavior:    ObjectToText(doc.Behavior),
		Quotes:      QuotesToText(doc.Quotes),
	}
}

// BuildDocument parses the edited text back into a document, keeping the base
// document's name and description. The first malformed field aborts the build.
func BuildDocument(base yumetypes.CharacterDocument, editor EditorText) (yumetypes.CharacterDocument, error) {
	personality, err := ParseStringObject("Personality", editor.Personality)
	if err != nil {
		return yumetypes.CharacterDocument{}, err
	}
	responses, err := ParseObject("Responses", editor.Responses)
	if err != nil {
		return yumetypes.CharacterDocument{}, err
	}
	behavior, err := ParseObject("Behavior", editor.Behavior)
	if err != nil {
		return yumetypes.CharacterDocument{}, err
	}

	next := base.Clone()
	next.Personality = personality
	next.Responses = responses
	next.Behavior = behavior
	next.Quotes = ParseQuotes(editor.Quotes)
	return next, nil
}
