package kiwoom

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"quote_relay/internal/domain"
)

// Parser decodes raw Kiwoom quote frames.
//
// Decoding is tolerant: only a frame that is not a JSON object is rejected.
// Missing symbol/time become "", a missing or unparsable price becomes 0,
// so a sloppy field never takes the feed down.
type Parser struct{}

// NewParser creates a quote parser
func NewParser() *Parser {
	return &Parser{}
}

// Decode implements domain.QuoteDecoder.
func (p *Parser) Decode(raw []byte) (domain.Quote, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return domain.Quote{}, false
	}

	return domain.Quote{
		Symbol: textField(fields[fieldSymbol]),
		Price:  int64Field(fields[fieldPrice]),
		Time:   textField(fields[fieldTime]),
	}, true
}

// textField returns strings as-is and scalars in their literal form.
// null, objects and arrays yield "".
func textField(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case '{', '[', 'n':
		return ""
	default:
		return string(raw)
	}
}

// int64Field reads integers, truncates floats and parses numeric strings. Anything else is 0.
func int64Field(raw json.RawMessage) int64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}

	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		s = strings.TrimSpace(s)
	}

	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0
	}
	return int64(f)
}
