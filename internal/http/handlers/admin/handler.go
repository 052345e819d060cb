package admin

import "github.com/freightbid/internal/provider"

// Handler 后台管理接口处理器入口
// 说明：仅供管理端 API 使用，写操作统一记录审计日志。
type Handler struct {
	*provider.Container
}

// New 创建后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
