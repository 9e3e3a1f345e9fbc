package domain

import (
	"time"
)

// SymbolInfo is catalog metadata for a tradeable symbol.
// Streamed quotes are never stored alongside it.
type SymbolInfo struct {
	Symbol    string    `gorm:"primaryKey" json:"symbol"`
	Name      string    `json:"name"`
	Market    string    `json:"market" gorm:"index"`    // e.g. "KOSPI", "NASDAQ"
	IsActive  bool      `json:"is_active" gorm:"index"` // Accepts subscriptions
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
