package kiwoom

import (
	"testing"

	"quote_relay/internal/domain"
)

func TestParser_Decode(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   domain.Quote
		wantOK bool
	}{
		{
			name:   "full quote",
			raw:    `{"symbol":"AAPL","price":15023,"time":"20240101090000"}`,
			want:   domain.Quote{Symbol: "AAPL", Price: 15023, Time: "20240101090000"},
			wantOK: true,
		},
		{
			name:   "not json",
			raw:    `not-json`,
			wantOK: false,
		},
		{
			name:   "missing symbol",
			raw:    `{"price":100}`,
			want:   domain.Quote{Symbol: "", Price: 100, Time: ""},
			wantOK: true,
		},
		{
			name:   "unknown fields ignored",
			raw:    `{"symbol":"005930","price":71200,"time":"090001","volume":12,"extra":{"a":1}}`,
			want:   domain.Quote{Symbol: "005930", Price: 71200, Time: "090001"},
			wantOK: true,
		},
		{
			name:   "price as numeric string",
			raw:    `{"symbol":"AAPL","price":"15023"}`,
			want:   domain.Quote{Symbol: "AAPL", Price: 15023},
			wantOK: true,
		},
		{
			name:   "price as float truncates",
			raw:    `{"symbol":"AAPL","price":150.99}`,
			want:   domain.Quote{Symbol: "AAPL", Price: 150},
			wantOK: true,
		},
		{
			name:   "unparsable price defaults to zero",
			raw:    `{"symbol":"AAPL","price":"n/a","time":"t"}`,
			want:   domain.Quote{Symbol: "AAPL", Price: 0, Time: "t"},
			wantOK: true,
		},
		{
			name:   "null fields",
			raw:    `{"symbol":null,"price":null,"time":null}`,
			want:   domain.Quote{},
			wantOK: true,
		},
		{
			name:   "numeric symbol keeps literal",
			raw:    `{"symbol":5930,"price":1}`,
			want:   domain.Quote{Symbol: "5930", Price: 1},
			wantOK: true,
		},
		{
			name:   "object symbol is absent",
			raw:    `{"symbol":{"code":"AAPL"},"price":1}`,
			want:   domain.Quote{Price: 1},
			wantOK: true,
		},
		{
			name:   "array frame",
			raw:    `[{"symbol":"AAPL"}]`,
			wantOK: false,
		},
		{
			name:   "json null frame",
			raw:    `null`,
			wantOK: false,
		},
		{
			name:   "empty frame",
			raw:    ``,
			wantOK: false,
		},
		{
			name:   "truncated frame",
			raw:    `{"symbol":"AAPL","price":`,
			wantOK: false,
		},
	}

	p := NewParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.Decode([]byte(tt.raw))
			if ok != tt.wantOK {
				t.Fatalf("Decode(%q) ok = %v, want %v", tt.raw, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Decode(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestInt64Field_Overflow(t *testing.T) {
	if got := int64Field([]byte(`1e300`)); got != 0 {
		t.Errorf("overflowing price = %d, want 0", got)
	}
}
