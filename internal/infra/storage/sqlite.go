package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"quote_relay/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// memoryDSN is used when no catalog file is configured.
const memoryDSN = ":memory:"

// Compile-time check to ensure Storage implements SymbolCatalog
var _ domain.SymbolCatalog = (*Storage)(nil)

// Storage is the symbol catalog. It never holds streamed quotes.
type Storage struct {
	db *gorm.DB
}

// NewStorage opens (or creates) the SQLite catalog at dbPath.
// An empty path keeps the catalog in memory for the life of the process.
func NewStorage(dbPath string) (*Storage, error) {
	dsn := memoryDSN
	if dbPath != "" {
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create DB directory: %w", err)
		}
		dsn = dbPath
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if dsn == memoryDSN {
		// every pooled connection would otherwise get its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access database pool: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return Open(db)
}

// Open migrates the schema on an existing connection.
func Open(db *gorm.DB) (*Storage, error) {
	if err := db.AutoMigrate(&domain.SymbolInfo{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Storage{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Symbol Operations
// ======================================================================================

// UpsertSymbol creates or updates symbol metadata
func (s *Storage) UpsertSymbol(info *domain.SymbolInfo) error {
	info.Symbol = domain.NormalizeSymbol(info.Symbol)
	if info.Symbol == "" {
		return domain.ErrInvalidSymbol
	}
	if info.CreatedAt.IsZero() {
		// Save writes every column, so keep the original creation time
		var prev domain.SymbolInfo
		if err := s.db.Select("created_at").First(&prev, "symbol = ?", info.Symbol).Error; err == nil {
			info.CreatedAt = prev.CreatedAt
		}
	}
	return s.db.Save(info).Error
}

// GetSymbol retrieves symbol metadata
func (s *Storage) GetSymbol(symbol string) (*domain.SymbolInfo, error) {
	var info domain.SymbolInfo
	err := s.db.First(&info, "symbol = ?", domain.NormalizeSymbol(symbol)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// ListSymbols retrieves all symbols ordered by symbol
func (s *Storage) ListSymbols() ([]domain.SymbolInfo, error) {
	var infos []domain.SymbolInfo
	err := s.db.Order("symbol").Find(&infos).Error
	return infos, err
}

// HasSymbol reports whether symbol is catalogued and active.
func (s *Storage) HasSymbol(symbol string) (bool, error) {
	var count int64
	err := s.db.Model(&domain.SymbolInfo{}).
		Where("symbol = ? AND is_active = ?", domain.NormalizeSymbol(symbol), true).
		Count(&count).Error
	return count > 0, err
}

// SetActive toggles whether a symbol accepts subscriptions
func (s *Storage) SetActive(symbol string, active bool) error {
	res := s.db.Model(&domain.SymbolInfo{}).
		Where("symbol = ?", domain.NormalizeSymbol(symbol)).
		Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrUnknownSymbol, symbol)
	}
	return nil
}

// DeleteSymbol deletes a symbol from the catalog
func (s *Storage) DeleteSymbol(symbol string) error {
	return s.db.Where("symbol = ?", domain.NormalizeSymbol(symbol)).Delete(&domain.SymbolInfo{}).Error
}

// SeedSymbols upserts the given rows in one transaction.
func (s *Storage) SeedSymbols(infos []domain.SymbolInfo) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for i := range infos {
			infos[i].Symbol = domain.NormalizeSymbol(infos[i].Symbol)
			if infos[i].Symbol == "" {
				return domain.ErrInvalidSymbol
			}
			if err := tx.Save(&infos[i]).Error; err != nil {
				return fmt.Errorf("seed %s: %w", infos[i].Symbol, err)
			}
		}
		return nil
	})
}
