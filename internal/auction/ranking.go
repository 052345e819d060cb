package auction

import (
	"sort"

	"github.com/freightbid/internal/models"
)

// LessBid 排名顺序：金额升序，提交时间升序，ID 升序
func LessBid(a, b *models.Bid) bool {
	if cmp := a.Amount.Cmp(b.Amount.Decimal); cmp != 0 {
		return cmp < 0
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// RankBids 原地排序报价
func RankBids(bids []models.Bid) {
	sort.SliceStable(bids, func(i, j int) bool {
		return LessBid(&bids[i], &bids[j])
	})
}

// LowestBid 返回排名第一的报价，空列表返回 nil
func LowestBid(bids []models.Bid) *models.Bid {
	var best *models.Bid
	for i := range bids {
		if best == nil || LessBid(&bids[i], best) {
			best = &bids[i]
		}
	}
	return best
}
