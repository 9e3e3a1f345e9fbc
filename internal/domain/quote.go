package domain

import "strings"

// TopicPrefix is the downstream destination prefix. One topic per symbol.
const TopicPrefix = "/topic/"

// Quote is a single real-time price update decoded from the upstream feed.
// Price is in feed-native units; no currency conversion is applied.
type Quote struct {
	Symbol string `json:"symbol"`
	Price  int64  `json:"price"`
	Time   string `json:"time"` // feed-native timestamp, e.g. "20240101090000"
}

// HasSymbol reports whether the quote can be routed to a topic.
func (q Quote) HasSymbol() bool {
	return strings.TrimSpace(q.Symbol) != ""
}

// Topic returns the downstream topic for the quote's symbol.
func (q Quote) Topic() string {
	return TopicFor(q.Symbol)
}

// TopicFor maps a symbol to its downstream topic ("/topic/<symbol>").
func TopicFor(symbol string) string {
	return TopicPrefix + symbol
}

// SymbolFromTopic is the inverse of TopicFor. ok is false for foreign topics.
func SymbolFromTopic(topic string) (string, bool) {
	if !strings.HasPrefix(topic, TopicPrefix) {
		return "", false
	}
	symbol := strings.TrimPrefix(topic, TopicPrefix)
	if strings.TrimSpace(symbol) == "" {
		return "", false
	}
	return symbol, true
}

// NormalizeSymbol trims and upper-cases a caller-supplied symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
