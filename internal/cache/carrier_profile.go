package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/freightbid/internal/models"
)

const carrierProfileCacheTTL = 5 * time.Minute

func carrierProfileKey(carrierID uint) string {
	return fmt.Sprintf("carrier:profile:%d", carrierID)
}

// GetCarrierProfile 读取承运商档案快照，未命中返回 nil
func GetCarrierProfile(ctx context.Context, carrierID uint) (*models.CarrierProfile, error) {
	if carrierID == 0 {
		return nil, nil
	}
	var profile models.CarrierProfile
	ok, err := GetJSON(ctx, carrierProfileKey(carrierID), &profile)
	if err != nil || !ok {
		return nil, err
	}
	return &profile, nil
}

// SetCarrierProfile 写入承运商档案快照
func SetCarrierProfile(ctx context.Context, profile *models.CarrierProfile) error {
	if profile == nil || profile.CarrierID == 0 {
		return nil
	}
	return SetJSON(ctx, carrierProfileKey(profile.CarrierID), profile, carrierProfileCacheTTL)
}

// InvalidateCarrierProfile 删除承运商档案快照
func InvalidateCarrierProfile(ctx context.Context, carrierID uint) error {
	if carrierID == 0 {
		return nil
	}
	return Del(ctx, carrierProfileKey(carrierID))
}
