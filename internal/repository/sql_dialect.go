package repository

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// dbDialectName 获取数据库方言名称，默认按 sqlite 处理。
func dbDialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	name := strings.ToLower(strings.TrimSpace(db.Dialector.Name()))
	if name == "" {
		return "sqlite"
	}
	return name
}

func isPostgres(dialect string) bool {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		return true
	}
	return false
}

// jsonTextExpr 构建 JSON 字段文本提取表达式，兼容 sqlite 与 postgres。
func jsonTextExpr(db *gorm.DB, column, key string) string {
	return jsonTextExprByDialect(dbDialectName(db), column, key)
}

func jsonTextExprByDialect(dialect, column, key string) string {
	if isPostgres(dialect) {
		return fmt.Sprintf("(%s::jsonb ->> '%s')", column, key)
	}
	return fmt.Sprintf("json_extract(%s, '$.\"%s\"')", column, key)
}

// likeOperatorByDialect postgres 使用 ILIKE 保持大小写不敏感
func likeOperatorByDialect(dialect string) string {
	if isPostgres(dialect) {
		return "ILIKE"
	}
	return "LIKE"
}

// likeCondition 构建多列 LIKE 条件并返回参数列表
func likeCondition(db *gorm.DB, columns []string, keyword string) (string, []interface{}) {
	operator := likeOperatorByDialect(dbDialectName(db))
	like := "%" + strings.TrimSpace(keyword) + "%"
	parts := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	for _, column := range columns {
		trimmed := strings.TrimSpace(column)
		if trimmed == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s ?", trimmed, operator))
		args = append(args, like)
	}
	return strings.Join(parts, " OR "), args
}

// forUpdate 行锁；sqlite 为单写者模型，不支持 FOR UPDATE
func forUpdate(db *gorm.DB) *gorm.DB {
	if !isPostgres(dbDialectName(db)) {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
