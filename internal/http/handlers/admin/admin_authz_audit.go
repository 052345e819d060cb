package admin

import (
	"strings"

	handlershared "github.com/freightbid/internal/http/handlers/shared"
	"github.com/freightbid/internal/http/response"
	"github.com/freightbid/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListAuditLogs 获取管理操作审计日志列表
func (h *Handler) ListAuditLogs(c *gin.Context) {
	page, pageSize := handlershared.ParsePage(c)

	operatorUserID, ok := parseOptionalUintQuery(c, "operator_user_id")
	if !ok {
		return
	}
	targetUserID, ok := parseOptionalUintQuery(c, "target_user_id")
	if !ok {
		return
	}
	createdFrom, err := parseTimeNullable(strings.TrimSpace(c.Query("created_from")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	createdTo, err := parseTimeNullable(strings.TrimSpace(c.Query("created_to")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	items, total, err := h.AuditService.List(repository.AuditLogListFilter{
		Page:           page,
		PageSize:       pageSize,
		OperatorUserID: operatorUserID,
		TargetUserID:   targetUserID,
		Action:         strings.TrimSpace(c.Query("action")),
		Role:           strings.TrimSpace(c.Query("role")),
		CreatedFrom:    createdFrom,
		CreatedTo:      createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.audit_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, items, response.BuildPagination(page, pageSize, total))
}
