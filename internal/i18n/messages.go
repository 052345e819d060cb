package i18n

var messages = map[string]map[string]string{
	LocaleZH: {
		"error.unauthorized":           "未登录或登录已失效",
		"error.forbidden":              "无权访问",
		"error.jwt_secret_missing":     "服务端未配置令牌密钥",
		"error.auth_header_missing":    "缺少 Authorization 请求头",
		"error.auth_header_invalid":    "Authorization 格式错误",
		"error.token_invalid":          "令牌无效",
		"error.user_id_invalid":        "用户 ID 无效",
		"error.user_id_type_invalid":   "用户 ID 类型错误",
		"error.bad_request":            "请求参数错误",
		"error.rate_limit_unavailable": "限流服务暂不可用",
		"error.rate_limited":           "请求过于频繁，请 %d 秒后重试",
		"error.bid_too_frequent":       "出价过于频繁，请 %d 秒后重试",
		"error.internal":               "服务内部错误",

		"error.shipment_not_found":      "运单不存在",
		"error.shipment_invalid":        "运单信息不完整",
		"error.shipment_forbidden":      "无权操作该运单",
		"error.auction_config_invalid":  "竞价配置无效",
		"error.auction_closed":          "竞价已截止",
		"error.invalid_amount":          "报价金额无效",
		"error.bid_invalid":             "报价信息无效",
		"error.bid_forbidden":           "无权对该运单出价",
		"error.bid_not_found":           "报价不存在",
		"error.bid_not_active":          "报价已失效",
		"error.already_awarded":         "运单已授标给其他报价",
		"error.state_transition":        "当前状态不允许该操作",
		"error.award_trigger_invalid":   "授标方式无效",
		"error.matching_rule_invalid":   "匹配规则无效",
		"error.matching_rule_not_found": "匹配规则不存在",
		"error.shipment_fetch_failed":   "获取运单失败",
		"error.shipment_create_failed":  "创建运单失败",
		"error.shipment_update_failed":  "更新运单失败",
		"error.bid_create_failed":       "出价失败",
		"error.bid_fetch_failed":        "获取报价失败",
		"error.award_failed":            "授标失败",
		"error.matching_rule_failed":    "处理匹配规则失败",
		"error.realtime_unavailable":    "实时推送不可用",

		"error.authz_failed":              "处理权限配置失败",
		"error.role_builtin":              "预置角色不可删除",
		"error.audit_fetch_failed":        "获取审计日志失败",
		"error.carrier_profile_invalid":   "承运商档案数据无效",
		"error.carrier_profile_not_found": "承运商档案不存在",
		"error.carrier_profile_failed":    "处理承运商档案失败",
		"error.sweep_failed":              "过期扫描失败",
	},
	LocaleEN: {
		"error.unauthorized":           "Not signed in or session expired",
		"error.forbidden":              "Access denied",
		"error.jwt_secret_missing":     "Token secret is not configured",
		"error.auth_header_missing":    "Missing Authorization header",
		"error.auth_header_invalid":    "Malformed Authorization header",
		"error.token_invalid":          "Invalid token",
		"error.user_id_invalid":        "Invalid user id",
		"error.user_id_type_invalid":   "Invalid user id type",
		"error.bad_request":            "Invalid request",
		"error.rate_limit_unavailable": "Rate limiter unavailable",
		"error.rate_limited":           "Too many requests, retry in %d seconds",
		"error.bid_too_frequent":       "Bidding too fast, retry in %d seconds",
		"error.internal":               "Internal server error",

		"error.shipment_not_found":      "Shipment not found",
		"error.shipment_invalid":        "Shipment details are incomplete",
		"error.shipment_forbidden":      "Not allowed to manage this shipment",
		"error.auction_config_invalid":  "Invalid auction configuration",
		"error.auction_closed":          "Bidding is closed",
		"error.invalid_amount":          "Invalid bid amount",
		"error.bid_invalid":             "Invalid bid",
		"error.bid_forbidden":           "Not allowed to bid on this shipment",
		"error.bid_not_found":           "Bid not found",
		"error.bid_not_active":          "Bid is no longer active",
		"error.already_awarded":         "Shipment already awarded to another bid",
		"error.state_transition":        "Operation not allowed in the current state",
		"error.award_trigger_invalid":   "Invalid award trigger",
		"error.matching_rule_invalid":   "Invalid matching rule",
		"error.matching_rule_not_found": "Matching rule not found",
		"error.shipment_fetch_failed":   "Failed to load shipment",
		"error.shipment_create_failed":  "Failed to create shipment",
		"error.shipment_update_failed":  "Failed to update shipment",
		"error.bid_create_failed":       "Failed to place bid",
		"error.bid_fetch_failed":        "Failed to load bids",
		"error.award_failed":            "Failed to award shipment",
		"error.matching_rule_failed":    "Failed to process matching rule",
		"error.realtime_unavailable":    "Realtime feed unavailable",

		"error.authz_failed":              "Failed to process access policy",
		"error.role_builtin":              "Builtin roles cannot be deleted",
		"error.audit_fetch_failed":        "Failed to load audit logs",
		"error.carrier_profile_invalid":   "Invalid carrier profile",
		"error.carrier_profile_not_found": "Carrier profile not found",
		"error.carrier_profile_failed":    "Failed to process carrier profile",
		"error.sweep_failed":              "Expiry sweep failed",
	},
}
