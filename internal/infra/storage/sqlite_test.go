package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"quote_relay/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *Storage {
	dbName := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	s, err := Open(db)
	if err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertAndGetSymbol(t *testing.T) {
	s := setupTestDB(t)

	info := &domain.SymbolInfo{
		Symbol:    "aapl",
		Name:      "Apple",
		Market:    "NASDAQ",
		IsActive:  true,
		UpdatedAt: time.Now(),
	}

	// 1. Create
	if err := s.UpsertSymbol(info); err != nil {
		t.Fatalf("UpsertSymbol failed: %v", err)
	}

	// 2. Get
	fetched, err := s.GetSymbol("AAPL")
	if err != nil {
		t.Fatalf("GetSymbol failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("fetched symbol is nil")
	}
	if fetched.Symbol != "AAPL" || fetched.Market != "NASDAQ" {
		t.Errorf("unexpected row: %+v", fetched)
	}

	// 3. Update
	info.Name = "Apple Inc."
	if err := s.UpsertSymbol(info); err != nil {
		t.Fatalf("UpsertSymbol update failed: %v", err)
	}
	fetched, _ = s.GetSymbol("AAPL")
	if fetched.Name != "Apple Inc." {
		t.Errorf("expected updated name, got %s", fetched.Name)
	}
}

func TestGetSymbol_NotFound(t *testing.T) {
	s := setupTestDB(t)

	fetched, err := s.GetSymbol("NOPE")
	if err != nil {
		t.Fatalf("not found should not be an error: %v", err)
	}
	if fetched != nil {
		t.Errorf("expected nil, got %+v", fetched)
	}
}

func TestUpsertSymbol_Blank(t *testing.T) {
	s := setupTestDB(t)

	if err := s.UpsertSymbol(&domain.SymbolInfo{Symbol: "  "}); !errors.Is(err, domain.ErrInvalidSymbol) {
		t.Errorf("expected ErrInvalidSymbol, got %v", err)
	}
}

func TestSeedAndHasSymbol(t *testing.T) {
	s := setupTestDB(t)

	err := s.SeedSymbols([]domain.SymbolInfo{
		{Symbol: "005930", Name: "Samsung Electronics", Market: "KOSPI", IsActive: true},
		{Symbol: "msft", Name: "Microsoft", Market: "NASDAQ", IsActive: true},
		{Symbol: "DEAD", Name: "Delisted", IsActive: false},
	})
	if err != nil {
		t.Fatalf("SeedSymbols failed: %v", err)
	}

	tests := []struct {
		symbol string
		want   bool
	}{
		{"005930", true},
		{"MSFT", true},
		{"msft", true},
		{"DEAD", false},
		{"ZZZZ", false},
	}
	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			got, err := s.HasSymbol(tt.symbol)
			if err != nil {
				t.Fatalf("HasSymbol failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("HasSymbol(%q) = %v, want %v", tt.symbol, got, tt.want)
			}
		})
	}

	all, err := s.ListSymbols()
	if err != nil {
		t.Fatalf("ListSymbols failed: %v", err)
	}
	if len(all) != 3 || all[0].Symbol != "005930" {
		t.Errorf("unexpected list: %+v", all)
	}
}

func TestSeedSymbols_RollsBackOnBlank(t *testing.T) {
	s := setupTestDB(t)

	err := s.SeedSymbols([]domain.SymbolInfo{{Symbol: "AAPL"}, {Symbol: ""}})
	if !errors.Is(err, domain.ErrInvalidSymbol) {
		t.Fatalf("expected ErrInvalidSymbol, got %v", err)
	}
	if all, _ := s.ListSymbols(); len(all) != 0 {
		t.Errorf("seed should be atomic, found %d rows", len(all))
	}
}

func TestSetActiveAndDelete(t *testing.T) {
	s := setupTestDB(t)
	s.UpsertSymbol(&domain.SymbolInfo{Symbol: "TSLA", IsActive: true})

	if err := s.SetActive("TSLA", false); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}
	if ok, _ := s.HasSymbol("TSLA"); ok {
		t.Error("inactive symbol should not be accepted")
	}
	if err := s.SetActive("NOPE", true); !errors.Is(err, domain.ErrUnknownSymbol) {
		t.Errorf("expected ErrUnknownSymbol, got %v", err)
	}

	if err := s.DeleteSymbol("TSLA"); err != nil {
		t.Fatalf("DeleteSymbol failed: %v", err)
	}
	if fetched, _ := s.GetSymbol("TSLA"); fetched != nil {
		t.Error("symbol should be deleted")
	}
}

func TestNewStorage_InMemory(t *testing.T) {
	s, err := NewStorage("")
	if err != nil {
		t.Fatalf("NewStorage failed: %v", err)
	}
	defer s.Close()

	if err := s.UpsertSymbol(&domain.SymbolInfo{Symbol: "AAPL", IsActive: true}); err != nil {
		t.Fatalf("UpsertSymbol failed: %v", err)
	}
	if ok, _ := s.HasSymbol("AAPL"); !ok {
		t.Error("in-memory catalog should keep rows across calls")
	}
}

func TestNewStorage_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "catalog.db")
	s, err := NewStorage(path)
	if err != nil {
		t.Fatalf("NewStorage failed: %v", err)
	}
	s.Close()
}

func TestUpsertSymbol_KeepsCreatedAt(t *testing.T) {
	s := setupTestDB(t)

	if err := s.UpsertSymbol(&domain.SymbolInfo{Symbol: "AAPL", Name: "Apple"}); err != nil {
		t.Fatalf("UpsertSymbol failed: %v", err)
	}
	first, _ := s.GetSymbol("AAPL")

	if err := s.UpsertSymbol(&domain.SymbolInfo{Symbol: "AAPL", Name: "Apple Inc."}); err != nil {
		t.Fatalf("UpsertSymbol update failed: %v", err)
	}
	second, _ := s.GetSymbol("AAPL")

	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt changed: %v -> %v", first.CreatedAt, second.CreatedAt)
	}
	if second.Name != "Apple Inc." {
		t.Errorf("expected updated name, got %s", second.Name)
	}
}
