package authz

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/util"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

const (
	apiV1Prefix     = "/api/v1"
	casbinTableName = "casbin_rule"
	userSubjectFmt  = "user:%d"
	rolePrefix      = "role:"
	// 每个角色挂一条指向登记节点的 g 规则，没有任何策略的角色也能被列出
	roleRegistry = "role:__registry__"
)

// 授权错误
var (
	ErrUnavailable    = errors.New("authz service unavailable")
	ErrRoleRequired   = errors.New("role is required")
	ErrActionRequired = errors.New("action is required")
	ErrReservedRole   = errors.New("reserved role is not allowed")
	ErrBuiltinRole    = errors.New("builtin role cannot be deleted")
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (g(r.sub, p.sub) || r.sub == p.sub) && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

// Policy 权限策略
type Policy struct {
	Subject string `json:"subject"`
	Object  string `json:"object"`
	Action  string `json:"action"`
}

// Service Casbin 授权服务
// 主体为令牌角色（role:carrier 等）或单个用户（user:42），资源为 /api/v1 下的路由模板
type Service struct {
	enforcer *casbin.SyncedEnforcer
	builtin  map[string]bool
}

// NewService 创建授权服务，策略持久化在 casbin_rule 表
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("authz db is nil")
	}

	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", casbinTableName)
	if err != nil {
		return nil, fmt.Errorf("create authz adapter failed: %w", err)
	}
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load authz model failed: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("init authz enforcer failed: %w", err)
	}
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load authz policy failed: %w", err)
	}

	builtin := make(map[string]bool)
	for _, seed := range BuiltinRoleSeeds() {
		if seed.Immutable {
			builtin[rolePrefix+seed.Role] = true
		}
	}
	return &Service{enforcer: enforcer, builtin: builtin}, nil
}

func (s *Service) ready() error {
	if s == nil || s.enforcer == nil {
		return ErrUnavailable
	}
	return nil
}

// Enforce 执行授权判断
func (s *Service) Enforce(sub, obj, act string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	return s.enforcer.Enforce(strings.TrimSpace(sub), NormalizeObject(obj), NormalizeAction(act))
}

// EnforceRole 按令牌中的角色判定授权
func (s *Service) EnforceRole(role, obj, act string) (bool, error) {
	normalized, err := NormalizeRole(role)
	if err != nil {
		return false, err
	}
	return s.Enforce(normalized, obj, act)
}

// EnforceUser 先按角色判定，未放行时再查用户直连策略
func (s *Service) EnforceUser(userID uint, role, obj, act string) (bool, error) {
	allow, err := s.EnforceRole(role, obj, act)
	if err != nil || allow || userID == 0 {
		return allow, err
	}
	return s.Enforce(SubjectForUser(userID), obj, act)
}

// IsBuiltinRole 是否为不可删除的预置角色
func (s *Service) IsBuiltinRole(role string) bool {
	normalized, err := NormalizeRole(role)
	if err != nil || s == nil {
		return false
	}
	return s.builtin[normalized]
}

// EnsureRole 登记角色，已存在时直接返回
func (s *Service) EnsureRole(role string) (string, error) {
	normalized, err := NormalizeRole(role)
	if err != nil {
		return "", err
	}
	if normalized == roleRegistry {
		return "", ErrReservedRole
	}
	if err := s.ready(); err != nil {
		return "", err
	}
	if _, err := s.enforcer.AddNamedGroupingPolicy("g", normalized, roleRegistry); err != nil {
		return "", fmt.Errorf("create role failed: %w", err)
	}
	return normalized, nil
}

// ListRoles 列出所有登记过或出现在继承关系里的角色
func (s *Service) ListRoles() ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rules, err := s.enforcer.GetFilteredNamedGroupingPolicy("g", 0)
	if err != nil {
		return nil, fmt.Errorf("list roles failed: %w", err)
	}
	seen := make(map[string]struct{})
	for _, rule := range rules {
		for _, subject := range rule {
			if strings.HasPrefix(subject, rolePrefix) && subject != roleRegistry {
				seen[subject] = struct{}{}
			}
		}
	}
	roles := make([]string, 0, len(seen))
	for role := range seen {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles, nil
}

// DeleteRole 删除自定义角色及其策略与继承关系
func (s *Service) DeleteRole(role string) error {
	normalized, err := NormalizeRole(role)
	if err != nil {
		return err
	}
	if normalized == roleRegistry {
		return ErrReservedRole
	}
	if err := s.ready(); err != nil {
		return err
	}
	if s.builtin[normalized] {
		return ErrBuiltinRole
	}

	if _, err := s.enforcer.RemoveFilteredPolicy(0, normalized); err != nil {
		return fmt.Errorf("remove role policy failed: %w", err)
	}
	if _, err := s.enforcer.RemoveFilteredNamedGroupingPolicy("g", 0, normalized); err != nil {
		return fmt.Errorf("remove role link failed: %w", err)
	}
	if _, err := s.enforcer.RemoveFilteredNamedGroupingPolicy("g", 1, normalized); err != nil {
		return fmt.Errorf("remove role incoming link failed: %w", err)
	}
	return nil
}

// GrantRolePolicy 为角色授予策略，角色不存在时自动登记
func (s *Service) GrantRolePolicy(role, object, action string) error {
	normalizedRole, err := s.EnsureRole(role)
	if err != nil {
		return err
	}
	normalizedAction := NormalizeAction(action)
	if normalizedAction == "" {
		return ErrActionRequired
	}
	if _, err := s.enforcer.AddPolicy(normalizedRole, NormalizeObject(object), normalizedAction); err != nil {
		return fmt.Errorf("grant policy failed: %w", err)
	}
	return nil
}

// RevokeRolePolicy 撤销角色策略
func (s *Service) RevokeRolePolicy(role, object, action string) error {
	normalizedRole, err := NormalizeRole(role)
	if err != nil {
		return err
	}
	normalizedAction := NormalizeAction(action)
	if normalizedAction == "" {
		return ErrActionRequired
	}
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.enforcer.RemovePolicy(normalizedRole, NormalizeObject(object), normalizedAction); err != nil {
		return fmt.Errorf("revoke policy failed: %w", err)
	}
	return nil
}

// GetRolePolicies 查询直接挂在角色上的策略
func (s *Service) GetRolePolicies(role string) ([]Policy, error) {
	normalizedRole, err := NormalizeRole(role)
	if err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	rules, err := s.enforcer.GetFilteredPolicy(0, normalizedRole)
	if err != nil {
		return nil, fmt.Errorf("get role policies failed: %w", err)
	}
	return convertPolicies(rules), nil
}

// EffectivePolicies 沿继承链汇总角色实际拥有的策略，例如经纪人继承托运人的运单权限
func (s *Service) EffectivePolicies(role string) ([]Policy, error) {
	normalizedRole, err := NormalizeRole(role)
	if err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	var policies []Policy
	visited := map[string]bool{}
	queue := []string{normalizedRole}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] || current == roleRegistry {
			continue
		}
		visited[current] = true

		rules, err := s.enforcer.GetFilteredPolicy(0, current)
		if err != nil {
			return nil, fmt.Errorf("get role policies failed: %w", err)
		}
		policies = append(policies, convertPolicies(rules)...)

		parents, err := s.enforcer.GetFilteredNamedGroupingPolicy("g", 0, current)
		if err != nil {
			return nil, fmt.Errorf("get role parents failed: %w", err)
		}
		for _, link := range parents {
			if len(link) >= 2 {
				queue = append(queue, link[1])
			}
		}
	}
	return policies, nil
}

// GrantUserPolicy 为单个用户授予直连策略，例如给指定承运商开放额外接口
func (s *Service) GrantUserPolicy(userID uint, object, action string) error {
	if userID == 0 {
		return fmt.Errorf("user id is required")
	}
	normalizedAction := NormalizeAction(action)
	if normalizedAction == "" {
		return ErrActionRequired
	}
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.enforcer.AddPolicy(SubjectForUser(userID), NormalizeObject(object), normalizedAction); err != nil {
		return fmt.Errorf("grant user policy failed: %w", err)
	}
	return nil
}

func convertPolicies(rules [][]string) []Policy {
	policies := make([]Policy, 0, len(rules))
	for _, rule := range rules {
		if len(rule) < 3 {
			continue
		}
		policies = append(policies, Policy{
			Subject: strings.TrimSpace(rule[0]),
			Object:  NormalizeObject(rule[1]),
			Action:  NormalizeAction(rule[2]),
		})
	}
	return policies
}

// SubjectForUser 生成用户主体标识
func SubjectForUser(userID uint) string {
	return fmt.Sprintf(userSubjectFmt, userID)
}

// NormalizeRole 统一为 role: 前缀，空格替换为下划线
func NormalizeRole(role string) (string, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(role), " ", "_")
	normalized = strings.TrimPrefix(normalized, rolePrefix)
	if normalized == "" {
		return "", ErrRoleRequired
	}
	return rolePrefix + normalized, nil
}

// NormalizeObject 去掉 /api/v1 前缀，策略与路由模板按同一形式比较
func NormalizeObject(object string) string {
	normalized := strings.TrimSpace(object)
	if normalized == "" {
		return "/"
	}
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if normalized == apiV1Prefix {
		return "/"
	}
	if strings.HasPrefix(normalized, apiV1Prefix+"/") {
		return strings.TrimPrefix(normalized, apiV1Prefix)
	}
	return normalized
}

// NormalizeAction 统一授权动作
func NormalizeAction(action string) string {
	return strings.ToUpper(strings.TrimSpace(action))
}
