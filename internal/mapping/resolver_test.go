package mapping

import (
	"testing"

	"github.com/lehigh-university-libraries/shelver/internal/models"
)

func rule(recordType, field string) models.MappingRule {
	return models.MappingRule{RecordType: recordType, FieldPath: field}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		rules    []models.MappingRule
		records  []TagRecord
		expected string
		resolved bool
	}{
		{
			name:     "extracts field from json text record",
			rules:    []models.MappingRule{rule("text", "serial")},
			records:  []TagRecord{TextRecord("text", `{"serial":"X123","other":"y"}`)},
			expected: "X123",
			resolved: true,
		},
		{
			name:     "falls back to raw text when payload is not structured",
			rules:    []models.MappingRule{rule("text", "serial")},
			records:  []TagRecord{TextRecord("text", "PLAINTEXT")},
			expected: "PLAINTEXT",
			resolved: true,
		},
		{
			name:     "falls back to raw text when field is missing",
			rules:    []models.MappingRule{rule("text", "serial"), rule("url", "serial")},
			records:  []TagRecord{TextRecord("text", `{"id":"7"}`), TextRecord("url", "https://x.test/?serial=U1")},
			expected: `{"id":"7"}`,
			resolved: true,
		},
		{
			name:     "first matching rule wins even when a later rule would extract",
			rules:    []models.MappingRule{rule("text", "serial"), rule("mime", "serial")},
			records:  []TagRecord{TextRecord("mime", `{"serial":"M1"}`), TextRecord("text", "RAW")},
			expected: "RAW",
			resolved: true,
		},
		{
			name:     "skips rules without a type match",
			rules:    []models.MappingRule{rule("url", "serial"), rule("text", "serial")},
			records:  []TagRecord{TextRecord("text", `{"serial":"T9"}`)},
			expected: "T9",
			resolved: true,
		},
		{
			name:     "uses first record of the matching type",
			rules:    []models.MappingRule{rule("text", "serial")},
			records:  []TagRecord{TextRecord("text", `{"serial":"FIRST"}`), TextRecord("text", `{"serial":"SECOND"}`)},
			expected: "FIRST",
			resolved: true,
		},
		{
			name:     "falls back to raw text on a stray closing brace",
			rules:    []models.MappingRule{rule("text", "serial")},
			records:  []TagRecord{TextRecord("text", `{"serial":"X"}}`)},
			expected: `{"serial":"X"}}`,
			resolved: true,
		},
		{
			name:     "falls back to raw text on a stray closing bracket",
			rules:    []models.MappingRule{rule("text", "serial")},
			records:  []TagRecord{TextRecord("text", `{"serial":"X"}]`)},
			expected: `{"serial":"X"}]`,
			resolved: true,
		},
		{
			name:     "falls back to raw text on trailing words",
			rules:    []models.MappingRule{rule("text", "serial")},
			records:  []TagRecord{TextRecord("text", `{"serial":"X"} junk`)},
			expected: `{"serial":"X"} junk`,
			resolved: true,
		},
		{
			name:     "accepts trailing whitespace after the document",
			rules:    []models.MappingRule{rule("text", "serial")},
			records:  []TagRecord{TextRecord("text", "{\"serial\":\"W1\"}\n")},
			expected: "W1",
			resolved: true,
		},
		{
			name:     "decodes byte payloads as utf-8",
			rules:    []models.MappingRule{rule("text", "serial")},
			records:  []TagRecord{BytesRecord("text", []byte(`{"serial":"B55"}`))},
			expected: "B55",
			resolved: true,
		},
		{
			name:     "renders numeric fields verbatim",
			rules:    []models.MappingRule{rule("text", "serial")},
			records:  []TagRecord{TextRecord("text", `{"serial":12345678901234567890}`)},
			expected: "12345678901234567890",
			resolved: true,
		},
		{
			name:     "follows dotted paths into nested objects",
			rules:    []models.MappingRule{rule("text", "panel.serial")},
			records:  []TagRecord{TextRecord("text", `{"panel":{"serial":"N1"}}`)},
			expected: "N1",
			resolved: true,
		},
		{
			name:     "prefers a literal key containing dots",
			rules:    []models.MappingRule{rule("text", "panel.serial")},
			records:  []TagRecord{TextRecord("text", `{"panel.serial":"LIT","panel":{"serial":"N1"}}`)},
			expected: "LIT",
			resolved: true,
		},
		{
			name:     "reads query parameters from url records",
			rules:    []models.MappingRule{rule("url", "sn")},
			records:  []TagRecord{TextRecord("url", "https://tags.example.com/p?sn=Q42&x=1")},
			expected: "Q42",
			resolved: true,
		},
		{
			name:     "type match is case sensitive",
			rules:    []models.MappingRule{rule("Text", "serial")},
			records:  []TagRecord{TextRecord("text", `{"serial":"X"}`)},
			resolved: false,
		},
		{
			name:     "no rules",
			records:  []TagRecord{TextRecord("text", "X")},
			resolved: false,
		},
		{
			name:     "no records",
			rules:    []models.MappingRule{rule("text", "serial")},
			resolved: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.rules, Message{Records: tt.records})
			if ok != tt.resolved {
				t.Fatalf("Expected resolved=%v, got %v (value %q)", tt.resolved, ok, got)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestResolveDetail(t *testing.T) {
	rules := []models.MappingRule{
		{ID: 1, RecordType: "url", FieldPath: "serial"},
		{ID: 2, RecordType: "text", FieldPath: "serial"},
	}
	msg := Message{Records: []TagRecord{
		TextRecord("mime", "ignored"),
		TextRecord("text", "PLAIN"),
	}}

	res, ok := ResolveDetail(rules, msg)
	if !ok {
		t.Fatal("Expected a resolution")
	}
	if res.Rule.ID != 2 {
		t.Errorf("Expected rule 2, got %d", res.Rule.ID)
	}
	if res.RecordIndex != 1 {
		t.Errorf("Expected record index 1, got %d", res.RecordIndex)
	}
	if !res.Fallback {
		t.Error("Expected fallback for unstructured payload")
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		record   TagRecord
		expected string
	}{
		{"text payload", TextRecord("text", "abc"), "abc"},
		{"utf-8 bytes", BytesRecord("text", []byte("héllo")), "héllo"},
		{"invalid utf-8 in text kind is replaced", BytesRecord("text", []byte{'a', 0xff, 'b'}), "a�b"},
		{"opaque printable bytes", BytesRecord("unknown", []byte("ok")), "ok"},
		{"opaque binary bytes are hex dumped", BytesRecord("smart-poster", []byte{0xde, 0xad, 0x01}), "de ad 01"},
		{"empty bytes", BytesRecord("text", nil), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.Decode(); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	cases := map[string]Kind{
		"text":          KindText,
		"url":           KindURL,
		"absolute-url":  KindURL,
		"mime":          KindMIME,
		"empty":         KindOpaque,
		"example.com:x": KindOpaque,
	}
	for recordType, want := range cases {
		if got := KindOf(recordType); got != want {
			t.Errorf("KindOf(%q): expected %s, got %s", recordType, want, got)
		}
	}
}
