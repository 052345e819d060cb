package repository

import (
	"github.com/freightbid/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CarrierProfileRepository 承运商档案数据访问接口
type CarrierProfileRepository interface {
	GetByCarrierID(carrierID uint) (*models.CarrierProfile, error)
	Upsert(profile *models.CarrierProfile) error
}

// GormCarrierProfileRepository GORM 承运商档案仓储实现
type GormCarrierProfileRepository struct {
	db *gorm.DB
}

// NewCarrierProfileRepository 创建承运商档案仓储
func NewCarrierProfileRepository(db *gorm.DB) *GormCarrierProfileRepository {
	return &GormCarrierProfileRepository{db: db}
}

// GetByCarrierID 获取承运商档案，不存在返回 nil
func (r *GormCarrierProfileRepository) GetByCarrierID(carrierID uint) (*models.CarrierProfile, error) {
	if carrierID == 0 {
		return nil, nil
	}
	// 多数承运商没有档案，用 Find 避免 gorm 打印 record not found
	var profile models.CarrierProfile
	result := r.db.Where("carrier_id = ?", carrierID).Limit(1).Find(&profile)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &profile, nil
}

// Upsert 写入或更新档案
func (r *GormCarrierProfileRepository) Upsert(profile *models.CarrierProfile) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "carrier_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "rating", "completed_loads", "on_time_rate", "updated_at"}),
	}).Create(profile).Error
}
