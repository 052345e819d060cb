package repository

import (
	"errors"
	"time"

	"github.com/freightbid/internal/constants"
	"github.com/freightbid/internal/models"

	"gorm.io/gorm"
)

// 报价排名顺序
const bidRankingOrder = "amount asc, created_at asc, id asc"

// BidRepository 报价数据访问接口
type BidRepository interface {
	Create(bid *models.Bid) error
	GetByID(id uint) (*models.Bid, error)
	ListActiveByShipment(shipmentID uint, page, pageSize int) ([]models.Bid, int64, error)
	ListActiveByCarrier(shipmentID, carrierID uint) ([]models.Bid, error)
	ListActiveExcept(shipmentID, exceptBidID uint) ([]models.Bid, error)
	CountActive(shipmentID uint) (int64, error)
	List(filter BidListFilter) ([]models.Bid, int64, error)
	CompareAndSetStatus(id, shipmentID uint, from, to string, at time.Time) (int64, error)
	TransitionActive(shipmentID uint, ids []uint, to string, at time.Time) (int64, error)
	WithTx(tx *gorm.DB) *GormBidRepository
}

// GormBidRepository GORM 报价仓储实现
type GormBidRepository struct {
	db *gorm.DB
}

// NewBidRepository 创建报价仓储
func NewBidRepository(db *gorm.DB) *GormBidRepository {
	return &GormBidRepository{db: db}
}

// WithTx 绑定事务
func (r *GormBidRepository) WithTx(tx *gorm.DB) *GormBidRepository {
	if tx == nil {
		return r
	}
	return &GormBidRepository{db: tx}
}

// Create 创建报价
func (r *GormBidRepository) Create(bid *models.Bid) error {
	return r.db.Create(bid).Error
}

// GetByID 按ID获取报价，不存在返回 nil
func (r *GormBidRepository) GetByID(id uint) (*models.Bid, error) {
	if id == 0 {
		return nil, nil
	}
	var bid models.Bid
	if err := r.db.First(&bid, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &bid, nil
}

// ListActiveByShipment 按排名分页查询有效报价
func (r *GormBidRepository) ListActiveByShipment(shipmentID uint, page, pageSize int) ([]models.Bid, int64, error) {
	query := r.db.Model(&models.Bid{}).
		Where("shipment_id = ? AND status = ?", shipmentID, constants.BidStatusActive)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, page, pageSize)

	var bids []models.Bid
	if err := query.Order(bidRankingOrder).Find(&bids).Error; err != nil {
		return nil, 0, err
	}
	return bids, total, nil
}

// ListActiveByCarrier 承运商在某运单上的有效报价
func (r *GormBidRepository) ListActiveByCarrier(shipmentID, carrierID uint) ([]models.Bid, error) {
	var bids []models.Bid
	err := r.db.Where("shipment_id = ? AND carrier_id = ? AND status = ?", shipmentID, carrierID, constants.BidStatusActive).
		Order("id asc").
		Find(&bids).Error
	return bids, err
}

// ListActiveExcept 运单上除指定报价外的全部有效报价
func (r *GormBidRepository) ListActiveExcept(shipmentID, exceptBidID uint) ([]models.Bid, error) {
	var bids []models.Bid
	err := r.db.Where("shipment_id = ? AND status = ? AND id <> ?", shipmentID, constants.BidStatusActive, exceptBidID).
		Order(bidRankingOrder).
		Find(&bids).Error
	return bids, err
}

// CountActive 统计有效报价数
func (r *GormBidRepository) CountActive(shipmentID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Bid{}).
		Where("shipment_id = ? AND status = ?", shipmentID, constants.BidStatusActive).
		Count(&count).Error
	return count, err
}

// List 分页查询报价
func (r *GormBidRepository) List(filter BidListFilter) ([]models.Bid, int64, error) {
	query := r.db.Model(&models.Bid{})
	if filter.CarrierID != 0 {
		query = query.Where("carrier_id = ?", filter.CarrierID)
	}
	if filter.ShipmentID != 0 {
		query = query.Where("shipment_id = ?", filter.ShipmentID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var bids []models.Bid
	if err := query.Order("id desc").Find(&bids).Error; err != nil {
		return nil, 0, err
	}
	return bids, total, nil
}

// CompareAndSetStatus 单条报价状态 CAS，返回影响行数
func (r *GormBidRepository) CompareAndSetStatus(id, shipmentID uint, from, to string, at time.Time) (int64, error) {
	result := r.db.Model(&models.Bid{}).
		Where("id = ? AND shipment_id = ? AND status = ?", id, shipmentID, from).
		Updates(statusUpdates(to, at))
	return result.RowsAffected, result.Error
}

// TransitionActive 将指定的有效报价批量改为 to；ids 为空时作用于运单全部有效报价
func (r *GormBidRepository) TransitionActive(shipmentID uint, ids []uint, to string, at time.Time) (int64, error) {
	query := r.db.Model(&models.Bid{}).
		Where("shipment_id = ? AND status = ?", shipmentID, constants.BidStatusActive)
	if ids != nil {
		if len(ids) == 0 {
			return 0, nil
		}
		query = query.Where("id IN ?", ids)
	}
	result := query.Updates(statusUpdates(to, at))
	return result.RowsAffected, result.Error
}

func statusUpdates(to string, at time.Time) map[string]interface{} {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": at,
	}
	if to != constants.BidStatusActive {
		updates["resolved_at"] = at
	}
	return updates
}
