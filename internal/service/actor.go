package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/freightbid/internal/constants"
	"github.com/freightbid/internal/models"
)

// Actor 发起操作的用户
type Actor struct {
	UserID uint
	Role   string
}

// IsAdmin 是否管理员
func (a Actor) IsAdmin() bool {
	return a.Role == constants.RoleAdmin
}

// ownsShipment 货主本人或管理员
func (a Actor) ownsShipment(shipment *models.Shipment) bool {
	if shipment == nil {
		return false
	}
	return a.IsAdmin() || (a.UserID != 0 && shipment.ShipperID == a.UserID)
}

// 运单状态流转表
var shipmentTransitions = map[string]map[string]bool{
	constants.ShipmentStatusDraft: {
		constants.ShipmentStatusOpenForBidding: true,
		constants.ShipmentStatusCancelled:      true,
	},
	constants.ShipmentStatusOpenForBidding: {
		constants.ShipmentStatusBidAwarded: true,
		constants.ShipmentStatusCancelled:  true,
		constants.ShipmentStatusExpired:    true,
	},
	constants.ShipmentStatusBidAwarded: {
		constants.ShipmentStatusInTransit: true,
	},
	constants.ShipmentStatusInTransit: {
		constants.ShipmentStatusDelivered: true,
	},
}

func isShipmentTransitionAllowed(current, target string) bool {
	nexts, ok := shipmentTransitions[current]
	if !ok {
		return false
	}
	return nexts[target]
}

// shipmentSourcesFor 可以流转到 target 的全部来源状态
func shipmentSourcesFor(target string) []string {
	sources := make([]string, 0, 2)
	for _, from := range []string{
		constants.ShipmentStatusDraft,
		constants.ShipmentStatusOpenForBidding,
		constants.ShipmentStatusBidAwarded,
		constants.ShipmentStatusInTransit,
	} {
		if isShipmentTransitionAllowed(from, target) {
			sources = append(sources, from)
		}
	}
	return sources
}

func generateShipmentNo(now time.Time) string {
	return fmt.Sprintf("SH%s%s", now.Format("20060102150405"), randDigits(6))
}

func randDigits(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(n.String())
	}
	return b.String()
}

// 列表分页默认与上限
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// NormalizePagination 页码从 1 开始，每页条数落在 [1, MaxPageSize]
func NormalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

func bidIDs(bids []models.Bid) []uint {
	ids := make([]uint, 0, len(bids))
	for _, bid := range bids {
		ids = append(ids, bid.ID)
	}
	return ids
}
