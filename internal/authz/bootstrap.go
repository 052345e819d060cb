package authz

import (
	"fmt"

	"github.com/freightbid/internal/constants"
)

// RoleSeed 预置角色定义，Immutable 的角色不允许通过管理接口删除
type RoleSeed struct {
	Role      string
	Inherits  []string
	Policies  []Policy
	Immutable bool
}

// BuiltinRoleSeeds 与令牌中的四种角色一一对应，经纪人继承托运人，管理员放行全部路由
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: constants.RoleCarrier,
			Policies: []Policy{
				{Object: "/shipments", Action: "GET"},
				{Object: "/shipments/:id", Action: "GET"},
				{Object: "/shipments/:id/bids", Action: "*"},
				{Object: "/shipments/:id/in-transit", Action: "POST"},
				{Object: "/shipments/:id/delivered", Action: "POST"},
				{Object: "/bids/:id/withdraw", Action: "POST"},
				{Object: "/me/bids", Action: "GET"},
				{Object: "/ws", Action: "GET"},
			},
			Immutable: true,
		},
		{
			Role: constants.RoleShipper,
			Policies: []Policy{
				{Object: "/shipments", Action: "*"},
				{Object: "/shipments/:id", Action: "GET"},
				{Object: "/shipments/:id/bids", Action: "GET"},
				{Object: "/shipments/:id/publish", Action: "POST"},
				{Object: "/shipments/:id/cancel", Action: "POST"},
				{Object: "/shipments/:id/award", Action: "POST"},
				{Object: "/shipments/:id/in-transit", Action: "POST"},
				{Object: "/shipments/:id/delivered", Action: "POST"},
				{Object: "/ws", Action: "GET"},
			},
			Immutable: true,
		},
		{
			Role:     constants.RoleBroker,
			Inherits: []string{constants.RoleShipper},
			Policies: []Policy{
				{Object: "/broker/matching-rules", Action: "*"},
				{Object: "/broker/matching-rules/:id", Action: "*"},
			},
			Immutable: true,
		},
		{
			Role:     constants.RoleAdmin,
			Inherits: []string{constants.RoleBroker, constants.RoleCarrier},
			Policies: []Policy{
				{Object: "/*", Action: "*"},
			},
			Immutable: true,
		},
	}
}

// BootstrapBuiltinRoles 写入预置角色、继承关系与默认策略，重复执行不会产生重复规则
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}

	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.EnsureRole(seed.Role)
		if err != nil {
			return fmt.Errorf("create builtin role %s failed: %w", seed.Role, err)
		}
		for _, parent := range seed.Inherits {
			parentRole, err := NormalizeRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}
		for _, policy := range seed.Policies {
			if err := s.GrantRolePolicy(role, policy.Object, policy.Action); err != nil {
				return fmt.Errorf("add builtin policy %s %s failed: %w", policy.Action, policy.Object, err)
			}
		}
	}
	return nil
}
