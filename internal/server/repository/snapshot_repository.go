package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/intraday-pulse/pulse/internal/server/model"
)

// SnapshotRepository reads persisted market and option-chain snapshots.
type SnapshotRepository interface {
	GetSnapshotsSince(symbol string, since time.Time) ([]model.MarketSnapshot, error)
	GetLatestSnapshot(symbol string) (*model.MarketSnapshot, error)
	GetLatestChainSnapshot(symbol string) (*model.ChainSnapshot, error)
	GetRecentChainSnapshots(symbol string, limit int) ([]model.ChainSnapshot, error)
}

type gormSnapshotRepository struct {
	db *gorm.DB
}

func NewGormSnapshotRepository(db *gorm.DB) SnapshotRepository {
	return &gormSnapshotRepository{db: db}
}

func (r *gormSnapshotRepository) GetSnapshotsSince(symbol string, since time.Time) ([]model.MarketSnapshot, error) {
	var snapshots []model.MarketSnapshot
	err := r.db.
		Where("symbol = ? AND snapshot_time >= ?", symbol, since).
		Order("snapshot_time desc").
		Find(&snapshots).Error
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (r *gormSnapshotRepository) GetLatestSnapshot(symbol string) (*model.MarketSnapshot, error) {
	var snapshot model.MarketSnapshot
	err := r.db.
		Where("symbol = ?", symbol).
		Order("snapshot_time desc").
		First(&snapshot).Error
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *gormSnapshotRepository) GetLatestChainSnapshot(symbol string) (*model.ChainSnapshot, error) {
	var snapshot model.ChainSnapshot
	err := r.db.
		Where("symbol = ?", symbol).
		Order("snapshot_time desc").
		First(&snapshot).Error
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *gormSnapshotRepository) GetRecentChainSnapshots(symbol string, limit int) ([]model.ChainSnapshot, error) {
	var snapshots []model.ChainSnapshot
	err := r.db.
		Where("symbol = ?", symbol).
		Order("snapshot_time desc").
		Limit(limit).
		Find(&snapshots).Error
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}
