package service

import (
	"context"
	"time"

	"github.com/freightbid/internal/cache"
	"github.com/freightbid/internal/logger"
	"github.com/freightbid/internal/models"
	"github.com/freightbid/internal/repository"
)

// ProfileLookup 承运商档案读取接口
type ProfileLookup interface {
	GetCarrierProfile(ctx context.Context, carrierID uint) (*models.CarrierProfile, error)
}

// CarrierProfileService 承运商档案读模型，优先读缓存
type CarrierProfileService struct {
	profileRepo repository.CarrierProfileRepository
}

// NewCarrierProfileService 创建档案服务
func NewCarrierProfileService(profileRepo repository.CarrierProfileRepository) *CarrierProfileService {
	return &CarrierProfileService{profileRepo: profileRepo}
}

// GetCarrierProfile 读取档案，不存在返回 nil
func (s *CarrierProfileService) GetCarrierProfile(ctx context.Context, carrierID uint) (*models.CarrierProfile, error) {
	if carrierID == 0 {
		return nil, nil
	}
	cached, err := cache.GetCarrierProfile(ctx, carrierID)
	if err != nil {
		logger.Debugw("carrier_profile_cache_get_failed", "carrier_id", carrierID, "error", err)
	}
	if cached != nil {
		return cached, nil
	}

	profile, err := s.profileRepo.GetByCarrierID(carrierID)
	if err != nil || profile == nil {
		return nil, err
	}
	if err := cache.SetCarrierProfile(ctx, profile); err != nil {
		logger.Debugw("carrier_profile_cache_set_failed", "carrier_id", carrierID, "error", err)
	}
	return profile, nil
}

// UpsertCarrierProfile 同步外部档案并清理缓存
func (s *CarrierProfileService) UpsertCarrierProfile(ctx context.Context, profile *models.CarrierProfile) error {
	if profile == nil || profile.CarrierID == 0 {
		return nil
	}
	profile.UpdatedAt = time.Now().UTC()
	if err := s.profileRepo.Upsert(profile); err != nil {
		return err
	}
	if err := cache.InvalidateCarrierProfile(ctx, profile.CarrierID); err != nil {
		logger.Debugw("carrier_profile_cache_invalidate_failed", "carrier_id", profile.CarrierID, "error", err)
	}
	return nil
}
