package public

import "github.com/freightbid/internal/provider"

// Handler 业务接口处理器入口
// 说明：托运方、承运商、经纪人共用，角色差异由 RBAC 与服务层校验。
type Handler struct {
	*provider.Container
}

// New 创建业务接口处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
