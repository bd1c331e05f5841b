package repository

import (
	"context"
	"encoding/json"

	"golang-stock-trader/internal/entity"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TradeSignalRepository defines the interface for persisted consensus signals.
type TradeSignalRepository interface {
	Create(ctx context.Context, signal *entity.TradeSignal) error
	CreateFromEvaluation(ctx context.Context, stockCode string, price float64, result entity.StrategySignal) error
	FindLatestByStockCode(ctx context.Context, stockCode string, limit int) ([]entity.TradeSignal, error)
}

// NewTradeSignalRepository creates a new GORM-based trade signal repository.
func NewTradeSignalRepository(db *gorm.DB) TradeSignalRepository {
	return &tradeSignalRepository{db: db}
}

type tradeSignalRepository struct {
	db *gorm.DB
}

func (r *tradeSignalRepository) Create(ctx context.Context, signal *entity.TradeSignal) error {
	return r.db.WithContext(ctx).Create(signal).Error
}

// CreateFromEvaluation persists one consensus evaluation with its per-voter
// breakdown serialized into the JSON column.
func (r *tradeSignalRepository) CreateFromEvaluation(ctx context.Context, stockCode string, price float64, result entity.StrategySignal) error {
	data, err := json.Marshal(result.Votes)
	if err != nil {
		return err
	}
	signal := &entity.TradeSignal{
		StockCode: stockCode,
		Signal:    string(result.Signal),
		Strength:  result.Strength,
		Price:     price,
		Data:      datatypes.JSON(data),
	}
	return r.db.WithContext(ctx).Create(signal).Error
}

// FindLatestByStockCode retrieves the most recent signals for a stock.
func (r *tradeSignalRepository) FindLatestByStockCode(ctx context.Context, stockCode string, limit int) ([]entity.TradeSignal, error) {
	var signals []entity.TradeSignal
	if err := r.db.WithContext(ctx).
		Where("stock_code = ?", stockCode).
		Order("created_at DESC").
		Limit(limit).
		Find(&signals).Error; err != nil {
		return nil, err
	}
	return signals, nil
}
