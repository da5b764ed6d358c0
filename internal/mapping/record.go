package mapping

import (
	"encoding/hex"
	"strings"
	"unicode/utf8"
)

// Kind is the closed set of tag record kinds the resolver knows how to decode
type Kind int

const (
	KindOpaque Kind = iota
	KindText
	KindURL
	KindMIME
)

// KindOf maps an NDEF record type string onto a Kind.
// Unknown and external types are treated as opaque.
func KindOf(recordType string) Kind {
	switch recordType {
	case "text":
		return KindText
	case "url", "absolute-url":
		return KindURL
	case "mime":
		return KindMIME
	default:
		return KindOpaque
	}
}

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindURL:
		return "url"
	case KindMIME:
		return "mime"
	default:
		return "opaque"
	}
}

// TagRecord is one payload unit from a physical tag read.
// When Data is nil the payload is Text, otherwise it is the raw bytes in Data.
type TagRecord struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	Text      string `json:"text,omitempty"`
	Data      []byte `json:"data,omitempty"`
}

// TextRecord builds a record carrying a UTF-8 text payload
func TextRecord(recordType, text string) TagRecord {
	return TagRecord{Type: recordType, Text: text}
}

// BytesRecord builds a record carrying a raw byte payload
func BytesRecord(recordType string, data []byte) TagRecord {
	if data == nil {
		data = []byte{}
	}
	return TagRecord{Type: recordType, Data: data}
}

// Message is the sequence of records produced by one tag interaction
type Message struct {
	// SerialNumber is the tag's hardware UID, when the reader reports it
	SerialNumber string      `json:"serial_number,omitempty"`
	Records      []TagRecord `json:"records"`
}

// Kind returns the decoding kind for the record's type
func (r TagRecord) Kind() Kind {
	return KindOf(r.Type)
}

// Decode renders the payload as text using the decoder for the record's kind
func (r TagRecord) Decode() string {
	if r.Data == nil {
		return r.Text
	}
	return decoders[r.Kind()](r.Data)
}

var decoders = map[Kind]func([]byte) string{
	KindText:   decodeUTF8,
	KindURL:    decodeUTF8,
	KindMIME:   decodeUTF8,
	KindOpaque: decodeOpaque,
}

func decodeUTF8(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}

// decodeOpaque keeps printable payloads readable and hex-dumps everything else
func decodeOpaque(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	parts := make([]string, len(b))
	for i := range b {
		parts[i] = hex.EncodeToString(b[i : i+1])
	}
	return strings.Join(parts, " ")
}
