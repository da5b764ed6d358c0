// Package mapping resolves item identifiers out of tag payloads using a
// collection's ordered extraction rules.
//
// Rules are tried in the order given. The first rule whose record type matches
// any record in the message decides the outcome: the configured field is
// returned when the payload is a structured document containing it, otherwise
// the decoded payload text is returned as is. Later rules are never consulted
// once a type has matched.
package mapping

import (
	"bytes"
	"encoding/json"
	"io"
	"net/url"
	"strings"

	"github.com/lehigh-university-libraries/shelver/internal/models"
)

// Resolution describes how an identifier was obtained
type Resolution struct {
	Identifier string
	Rule       models.MappingRule
	// RecordIndex is the position of the matched record within the message
	RecordIndex int
	// Fallback is true when the raw payload text was used instead of a field
	Fallback bool
}

// Resolve returns the identifier for the message, or false when no rule matched any record
func Resolve(rules []models.MappingRule, msg Message) (string, bool) {
	res, ok := ResolveDetail(rules, msg)
	if !ok {
		return "", false
	}
	return res.Identifier, true
}

// ResolveDetail is Resolve with the matching rule and record reported back
func ResolveDetail(rules []models.MappingRule, msg Message) (Resolution, bool) {
	for _, rule := range rules {
		idx := findRecord(msg.Records, rule.RecordType)
		if idx < 0 {
			continue
		}
		record := msg.Records[idx]
		text := record.Decode()

		res := Resolution{Rule: rule, RecordIndex: idx}
		if value, ok := extractField(record.Kind(), text, rule.FieldPath); ok {
			res.Identifier = value
			return res, true
		}
		res.Identifier = text
		res.Fallback = true
		return res, true
	}
	return Resolution{}, false
}

func findRecord(records []TagRecord, recordType string) int {
	for i, r := range records {
		if r.Type == recordType {
			return i
		}
	}
	return -1
}

// extractField parses text as a key/value document and looks up path in it
func extractField(kind Kind, text, path string) (string, bool) {
	if doc, ok := parseObject(text); ok {
		return lookup(doc, path)
	}
	if kind == KindURL {
		u, err := url.Parse(strings.TrimSpace(text))
		if err != nil {
			return "", false
		}
		q := u.Query()
		if q.Has(path) {
			return q.Get(path), true
		}
	}
	return "", false
}

func parseObject(text string) (map[string]any, bool) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil || doc == nil {
		return nil, false
	}
	// anything after the object, closing brackets included, is not a single document
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	return doc, true
}

// lookup tries path as a literal key first, then as a dotted path through nested objects
func lookup(doc map[string]any, path string) (string, bool) {
	if v, ok := doc[path]; ok {
		return render(v)
	}
	if !strings.Contains(path, ".") {
		return "", false
	}
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		cur, ok = obj[part]
		if !ok {
			return "", false
		}
	}
	return render(cur)
}

func render(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case bool:
		if val {
			return "true", true
		}
		return "false", true
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(val); err != nil {
			return "", false
		}
		return strings.TrimSuffix(buf.String(), "\n"), true
	}
}
