package repository

import (
	"context"
	"time"

	"golang-stock-trader/internal/entity"

	"gorm.io/gorm"
)

// TradeRepository defines the interface for trade journal data operations.
type TradeRepository interface {
	Create(ctx context.Context, trade *entity.Trade) error
	FindByStockCode(ctx context.Context, stockCode string) ([]entity.Trade, error)
	FindBetween(ctx context.Context, from, to time.Time) ([]entity.Trade, error)
}

// NewTradeRepository creates a new GORM-based trade journal repository.
func NewTradeRepository(db *gorm.DB) TradeRepository {
	return &tradeRepository{db: db}
}

type tradeRepository struct {
	db *gorm.DB
}

// Create appends a trade to the journal.
func (r *tradeRepository) Create(ctx context.Context, trade *entity.Trade) error {
	return r.db.WithContext(ctx).Create(trade).Error
}

// FindByStockCode retrieves all trades for a stock, oldest first.
func (r *tradeRepository) FindByStockCode(ctx context.Context, stockCode string) ([]entity.Trade, error) {
	var trades []entity.Trade
	if err := r.db.WithContext(ctx).
		Where("stock_code = ?", stockCode).
		Order("executed_at ASC").
		Find(&trades).Error; err != nil {
		return nil, err
	}
	return trades, nil
}

// FindBetween retrieves trades executed within [from, to), oldest first.
func (r *tradeRepository) FindBetween(ctx context.Context, from, to time.Time) ([]entity.Trade, error) {
	var trades []entity.Trade
	if err := r.db.WithContext(ctx).
		Where("executed_at >= ? AND executed_at < ?", from, to).
		Order("executed_at ASC").
		Find(&trades).Error; err != nil {
		return nil, err
	}
	return trades, nil
}
