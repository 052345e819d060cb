package service

import (
	"errors"
	"strings"
	"time"

	"github.com/freightbid/internal/constants"

	"github.com/golang-jwt/jwt/v5"
)

// ErrAccessTokenInvalid 令牌无法通过校验
var ErrAccessTokenInvalid = errors.New("access token invalid")

// AccessClaims 外部身份服务签发的访问令牌声明
type AccessClaims struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// IsKnownRole 是否为平台支持的角色
func IsKnownRole(role string) bool {
	switch role {
	case constants.RoleShipper, constants.RoleCarrier, constants.RoleBroker, constants.RoleAdmin:
		return true
	}
	return false
}

// IssueAccessToken 签发访问令牌，仅用于本地联调与种子数据
func IssueAccessToken(secret, issuer string, userID uint, role string, ttl time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(secret) == "" {
		return "", time.Time{}, errors.New("jwt secret is required")
	}
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := AccessClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseAccessToken 校验签名、有效期与签发方，返回令牌中的身份
func ParseAccessToken(secret, issuer, tokenString string) (*AccessClaims, error) {
	options := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if strings.TrimSpace(issuer) != "" {
		options = append(options, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(options...)
	claims := &AccessClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, errors.Join(ErrAccessTokenInvalid, err)
	}
	if !token.Valid || claims.UserID == 0 || !IsKnownRole(claims.Role) {
		return nil, ErrAccessTokenInvalid
	}
	return claims, nil
}
