package yumetypes

import (
	"encoding/json"
	"fmt"
	"time"
)

// AdminConfig is the single mutable configuration record of the Yume service.
// Field names mirror the admin API wire format. AIKey is write-only: it is
// never populated from reads and only sent on save when non-empty.
type AdminConfig struct {
	AIBaseURL         string   `json:"aiBaseUrl"`
	AIModel           string   `json:"aiModel"`
	AIProfile         string   `json:"aiProfile"`
	AIProfiles        []string `json:"aiProfiles"`
	AIConfigFile      string   `json:"aiConfigFile"`
	AITemperature     float64  `json:"aiTemperature"`
	AIMaxTokens       int      `json:"aiMaxTokens"`
	AITimeout         int      `json:"aiTimeout"`
	AIRetryCount      int      `json:"aiRetryCount"`
	AIRateLimit       int      `json:"aiRateLimit"`
	AITopP            float64  `json:"aiTopP"`
	AIPromptRaw       string   `json:"aiPromptRaw"`
	Character         string   `json:"character"`
	AIKey             string   `json:"aiKey,omitempty"`
	AIKeyMasked       string   `json:"aiKeyMasked"`
	AIKeySet          bool     `json:"aiKeySet"`
	CharacterOptions  []string `json:"characterOptions"`
	EffectivePrompt   string   `json:"effectivePrompt"`
	EnvironmentConfig string   `json:"environmentConfig"`
}

// DefaultAdminConfig returns the configuration record used before the first
// successful load from the server.
func DefaultAdminConfig() AdminConfig {
	return AdminConfig{
		AIProfile:         "default",
		AIProfiles:        []string{},
		AITemperature:     1,
		AIMaxTokens:       2000,
		AITimeout:         30,
		AIRetryCount:      3,
		AIRateLimit:       20,
		AITopP:            0.9,
		CharacterOptions:  []string{},
		EnvironmentConfig: ".env",
	}
}

// Clone returns a deep copy of the configuration record.
func (c AdminConfig) Clone() AdminConfig {
	out := c
	out.AIProfiles = append([]string(nil), c.AIProfiles...)
	out.CharacterOptions = append([]string(nil), c.CharacterOptions...)
	return out
}

// CharacterDocument is a persona definition. The personality, responses and
// behavior mappings are always well-formed objects after normalization, and
// quotes is always a slice.
type CharacterDocument struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Personality map[string]string `json:"personality"`
	Responses   map[string]any    `json:"responses"`
	Behavior    map[string]any    `json:"behavior"`
	Quotes      []string          `json:"quotes"`
}

// DefaultCharacterDocument returns the "no character selected" document.
func DefaultCharacterDocument() CharacterDocument {
	return CharacterDocument{
		Personality: map[string]string{},
		Responses:   map[string]any{},
		Behavior:    map[string]any{},
		Quotes:      []string{},
	}
}

// Clone returns a deep copy of the document. Nested values inside responses
// and behavior are copied structurally via JSON round trip since they hold
// arbitrary decoded JSON.
func (d CharacterDocument) Clone() CharacterDocument {
	out := d
	out.Personality = make(map[string]string, len(d.Personality))
	for k, v := range d.Personality {
		out.Personality[k] = v
	}
	out.Responses = cloneAnyMap(d.Responses)
	out.Behavior = cloneAnyMap(d.Behavior)
	out.Quotes = append([]string(nil), d.Quotes...)
	return out
}

func cloneAnyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		b, err := json.Marshal(v)
		if err != nil {
			out[k] = v
			continue
		}
		var cp any
		if err := json.Unmarshal(b, &cp); err != nil {
			out[k] = v
			continue
		}
		out[k] = cp
	}
	return out
}

// NormalizeCharacterDocument decodes a raw character payload leniently.
// Malformed or missing mappings are coerced to empty objects, quotes to an
// empty slice, and personality values of any shape are stringified.
func NormalizeCharacterDocument(raw json.RawMessage) CharacterDocument {
	doc := DefaultCharacterDocument()
	if len(raw) == 0 {
		return doc
	}

	var aux struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Personality json.RawMessage `json:"personality"`
		Responses   json.RawMessage `json:"responses"`
		Behavior    json.RawMessage `json:"behavior"`
		Quotes      json.RawMessage `json:"quotes"`
	}
	if err := json.Unmarshal(raw, &aux); err != nil {
		return doc
	}

	doc.Name = aux.Name
	doc.Description = aux.Description
	doc.Responses = decodeObject(aux.Responses)
	doc.Behavior = decodeObject(aux.Behavior)

	for k, v := range decodeObject(aux.Personality) {
		doc.Personality[k] = Stringify(v)
	}

	var quotes []string
	if err := json.Unmarshal(aux.Quotes, &quotes); err == nil && quotes != nil {
		doc.Quotes = quotes
	}

	return doc
}

func decodeObject(raw json.RawMessage) map[string]any {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}

// Stringify renders an arbitrary decoded JSON value as a string. Strings pass
// through unchanged; every other shape is re-encoded as compact JSON.
func Stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// CharacterEnvelope is the server's character resource shape: the file that
// stores the document plus the document itself, still raw so callers can
// normalize it.
type CharacterEnvelope struct {
	File   string          `json:"file"`
	Config json.RawMessage `json:"config"`
}

// LogFileDescriptor identifies a tailable log source.
type LogFileDescriptor struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// LogContent is a bounded slice of one log file.
type LogContent struct {
	File    string `json:"file"`
	Lines   int    `json:"lines"`
	Content string `json:"content"`
}
