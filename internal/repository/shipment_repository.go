package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/freightbid/internal/constants"
	"github.com/freightbid/internal/models"

	"gorm.io/gorm"
)

// ShipmentRepository 运单数据访问接口
type ShipmentRepository interface {
	Create(shipment *models.Shipment) error
	GetByID(id uint) (*models.Shipment, error)
	GetByIDForUpdate(id uint) (*models.Shipment, error)
	GetByShipmentNo(shipmentNo string) (*models.Shipment, error)
	List(filter ShipmentListFilter) ([]models.Shipment, int64, error)
	Update(shipment *models.Shipment) error
	CompareAndSetStatus(id uint, from []string, updates map[string]interface{}) (int64, error)
	UpdateWhileOpen(id uint, updates map[string]interface{}) (int64, error)
	SetSettlementRef(id uint, ref string) (bool, error)
	ListExpiryCandidates(filter ExpiryCandidateFilter) ([]models.Shipment, error)
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormShipmentRepository
}

// GormShipmentRepository GORM 运单仓储实现
type GormShipmentRepository struct {
	db *gorm.DB
}

// NewShipmentRepository 创建运单仓储
func NewShipmentRepository(db *gorm.DB) *GormShipmentRepository {
	return &GormShipmentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormShipmentRepository) WithTx(tx *gorm.DB) *GormShipmentRepository {
	if tx == nil {
		return r
	}
	return &GormShipmentRepository{db: tx}
}

// Transaction 在同一事务内执行 fn
func (r *GormShipmentRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	db := r.db
	if ctx != nil {
		db = db.WithContext(ctx)
	}
	return db.Transaction(fn)
}

// Create 创建运单
func (r *GormShipmentRepository) Create(shipment *models.Shipment) error {
	return r.db.Create(shipment).Error
}

// GetByID 按ID获取运单，不存在返回 nil
func (r *GormShipmentRepository) GetByID(id uint) (*models.Shipment, error) {
	return r.first(r.db, "id = ?", id)
}

// GetByIDForUpdate 加锁获取运单
func (r *GormShipmentRepository) GetByIDForUpdate(id uint) (*models.Shipment, error) {
	return r.first(forUpdate(r.db), "id = ?", id)
}

// GetByShipmentNo 按运单编号获取
func (r *GormShipmentRepository) GetByShipmentNo(shipmentNo string) (*models.Shipment, error) {
	shipmentNo = strings.TrimSpace(shipmentNo)
	if shipmentNo == "" {
		return nil, nil
	}
	return r.first(r.db, "shipment_no = ?", shipmentNo)
}

func (r *GormShipmentRepository) first(db *gorm.DB, cond string, arg interface{}) (*models.Shipment, error) {
	var shipment models.Shipment
	if err := db.Where(cond, arg).First(&shipment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &shipment, nil
}

// List 分页查询运单
func (r *GormShipmentRepository) List(filter ShipmentListFilter) ([]models.Shipment, int64, error) {
	query := r.db.Model(&models.Shipment{})
	if filter.ShipperID != 0 {
		query = query.Where("shipper_id = ?", filter.ShipperID)
	}
	if filter.BrokerID != 0 {
		query = query.Where("broker_id = ?", filter.BrokerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.OnlyMarketplace {
		query = query.Where("marketplace_visible = ? AND status = ?", true, constants.ShipmentStatusOpenForBidding)
	}
	if strings.TrimSpace(filter.Search) != "" {
		condition, args := likeCondition(r.db, []string{"shipment_no", "title", "origin_city", "destination_city"}, filter.Search)
		query = query.Where(condition, args...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var shipments []models.Shipment
	if err := query.Order("id desc").Find(&shipments).Error; err != nil {
		return nil, 0, err
	}
	return shipments, total, nil
}

// Update 保存运单（仅用于草稿编辑等非竞争写入）
func (r *GormShipmentRepository) Update(shipment *models.Shipment) error {
	return r.db.Save(shipment).Error
}

// CompareAndSetStatus 仅当当前状态属于 from 时更新，返回影响行数
func (r *GormShipmentRepository) CompareAndSetStatus(id uint, from []string, updates map[string]interface{}) (int64, error) {
	if id == 0 || len(from) == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.Shipment{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// UpdateWhileOpen 运单仍处于竞价中时更新（出价延时等）
func (r *GormShipmentRepository) UpdateWhileOpen(id uint, updates map[string]interface{}) (int64, error) {
	return r.CompareAndSetStatus(id, []string{constants.ShipmentStatusOpenForBidding}, updates)
}

// SetSettlementRef 写入结算流水号，已有流水号时不覆盖
func (r *GormShipmentRepository) SetSettlementRef(id uint, ref string) (bool, error) {
	ref = strings.TrimSpace(ref)
	if id == 0 || ref == "" {
		return false, nil
	}
	result := r.db.Model(&models.Shipment{}).
		Where("id = ? AND (settlement_ref IS NULL OR settlement_ref = '')", id).
		Update("settlement_ref", ref)
	return result.RowsAffected > 0, result.Error
}

// ListExpiryCandidates 截标时间已过且仍在竞价中的运单
func (r *GormShipmentRepository) ListExpiryCandidates(filter ExpiryCandidateFilter) ([]models.Shipment, error) {
	activeBids := r.db.Model(&models.Bid{}).
		Select("1").
		Where("bids.shipment_id = shipments.id AND bids.status = ?", constants.BidStatusActive)

	query := r.db.Model(&models.Shipment{}).
		Where("status = ? AND bid_expires_at IS NOT NULL", constants.ShipmentStatusOpenForBidding)
	due := r.db.Where("bid_expires_at <= ? AND NOT EXISTS (?)", filter.ClosedBefore, activeBids)
	if filter.StaleBefore != nil {
		due = due.Or("bid_expires_at <= ?", *filter.StaleBefore)
	}
	query = query.Where(due).Order("bid_expires_at asc, id asc")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var shipments []models.Shipment
	if err := query.Find(&shipments).Error; err != nil {
		return nil, err
	}
	return shipments, nil
}
