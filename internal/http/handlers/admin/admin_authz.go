package admin

import (
	"errors"
	"net/url"
	"strings"

	"github.com/freightbid/internal/authz"
	handlershared "github.com/freightbid/internal/http/handlers/shared"
	"github.com/freightbid/internal/http/response"
	"github.com/freightbid/internal/logger"
	"github.com/freightbid/internal/service"

	"github.com/gin-gonic/gin"
)

type authzRolePayload struct {
	Role string `json:"role" binding:"required"`
}

type authzPolicyPayload struct {
	Role   string `json:"role" binding:"required"`
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

type authzUserPolicyPayload struct {
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

// GetAuthzMe 获取当前操作者的角色及其策略
func (h *Handler) GetAuthzMe(c *gin.Context) {
	operator, ok := getOperator(c)
	if !ok {
		return
	}
	policies, err := h.AuthzService.EffectivePolicies(operator.Role)
	if err != nil {
		respondError(c, response.CodeInternal, "error.authz_failed", err)
		return
	}
	response.Success(c, gin.H{
		"user_id":  operator.UserID,
		"role":     operator.Role,
		"policies": policies,
	})
}

// ListAuthzRoles 获取角色列表
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "error.authz_failed", err)
		return
	}
	response.Success(c, roles)
}

// CreateAuthzRole 创建角色
func (h *Handler) CreateAuthzRole(c *gin.Context) {
	var req authzRolePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	role, err := h.AuthzService.EnsureRole(req.Role)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	h.recordAudit(c, service.AuditRecordInput{
		Action: "role_create",
		Role:   role,
		Detail: map[string]interface{}{"role": role},
	})
	response.Success(c, gin.H{"role": role})
}

// DeleteAuthzRole 删除角色
func (h *Handler) DeleteAuthzRole(c *gin.Context) {
	role := decodeRoleParam(c.Param("role"))
	if role == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	if err := h.AuthzService.DeleteRole(role); err != nil {
		if errors.Is(err, authz.ErrBuiltinRole) {
			respondError(c, response.CodeConflict, "error.role_builtin", err)
			return
		}
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	h.recordAudit(c, service.AuditRecordInput{
		Action: "role_delete",
		Role:   role,
		Detail: map[string]interface{}{"role": role},
	})
	response.Success(c, nil)
}

// GetAuthzRolePolicies 获取角色策略
func (h *Handler) GetAuthzRolePolicies(c *gin.Context) {
	role := decodeRoleParam(c.Param("role"))
	if role == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	policies, err := h.AuthzService.GetRolePolicies(role)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	response.Success(c, policies)
}

// GrantAuthzPolicy 授予角色策略
func (h *Handler) GrantAuthzPolicy(c *gin.Context) {
	var req authzPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if err := h.AuthzService.GrantRolePolicy(req.Role, req.Object, req.Action); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	h.recordAudit(c, service.AuditRecordInput{
		Action: "policy_grant",
		Role:   req.Role,
		Object: req.Object,
		Method: req.Action,
	})
	response.Success(c, nil)
}

// RevokeAuthzPolicy 撤销角色策略
func (h *Handler) RevokeAuthzPolicy(c *gin.Context) {
	var req authzPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if err := h.AuthzService.RevokeRolePolicy(req.Role, req.Object, req.Action); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	h.recordAudit(c, service.AuditRecordInput{
		Action: "policy_revoke",
		Role:   req.Role,
		Object: req.Object,
		Method: req.Action,
	})
	response.Success(c, nil)
}

// GrantAuthzUserPolicy 给单个用户追加策略，例如为指定承运商开放额外接口
func (h *Handler) GrantAuthzUserPolicy(c *gin.Context) {
	userID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req authzUserPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if err := h.AuthzService.GrantUserPolicy(userID, req.Object, req.Action); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	h.recordAudit(c, service.AuditRecordInput{
		Action:       "user_policy_grant",
		TargetUserID: &userID,
		Object:       req.Object,
		Method:       req.Action,
	})
	response.Success(c, nil)
}

// recordAudit 补全操作者信息后写入审计日志，失败只告警
func (h *Handler) recordAudit(c *gin.Context, input service.AuditRecordInput) {
	if h == nil || h.AuditService == nil {
		return
	}
	if operator, ok := c.Get(handlershared.ContextUserIDKey); ok {
		if id, typeOK := operator.(uint); typeOK {
			input.OperatorUserID = id
		}
	}
	if role, ok := c.Get(handlershared.ContextUserRoleKey); ok {
		if text, typeOK := role.(string); typeOK {
			input.OperatorRole = text
		}
	}
	input.RequestID = currentRequestID(c)
	if err := h.AuditService.Record(input); err != nil {
		logger.Warnw("admin_audit_record_failed",
			"error", err,
			"action", input.Action,
			"operator_user_id", input.OperatorUserID,
		)
		return
	}
	requestLog(c).Infow("admin_audit_recorded",
		"action", input.Action,
		"operator_user_id", input.OperatorUserID,
		"role", input.Role,
		"object", input.Object,
	)
}

func decodeRoleParam(value string) string {
	decoded, err := url.QueryUnescape(value)
	if err != nil {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(decoded)
}
