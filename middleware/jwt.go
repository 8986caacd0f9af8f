package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"menuboard/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie 管理员会话 Cookie 名
const SessionCookie = "menuboard_session"

const (
	ctxAdminID    = "adminID"
	ctxAdminEmail = "adminEmail"
)

var jwtSecret []byte

// Claims 管理员会话声明
type Claims struct {
	AdminID uint   `json:"admin_id"`
	Email   string `json:"email"`
	jwt.RegisteredClaims
}

// InitJWT 初始化签名密钥
func InitJWT(cfg *config.Config) {
	jwtSecret = []byte(cfg.JWT.Secret)
}

// GenerateToken 签发管理员会话 token
func GenerateToken(adminID uint, email string, ttl time.Duration) (string, error) {
	if len(jwtSecret) == 0 {
		return "", errors.New("jwt 未初始化")
	}
	now := time.Now()
	claims := Claims{
		AdminID: adminID,
		Email:   email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "menuboard",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret)
}

// ParseToken 校验并解析 token，仅接受 HS256
func ParseToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("token 为空")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("token 无效")
	}
	return claims, nil
}

// TokenFromRequest 依次从 Authorization: Bearer 与会话 Cookie 读取 token
func TokenFromRequest(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie
	}
	return ""
}

// JWTAuth 要求管理员登录
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := ParseToken(TokenFromRequest(c))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "未登录或登录已过期"})
			return
		}
		c.Set(ctxAdminID, claims.AdminID)
		c.Set(ctxAdminEmail, claims.Email)
		c.Next()
	}
}

// GetCurrentAdminID 当前登录管理员 ID，未登录为 0
func GetCurrentAdminID(c *gin.Context) uint {
	if v, ok := c.Get(ctxAdminID); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// GetCurrentAdminEmail 当前登录管理员邮箱
func GetCurrentAdminEmail(c *gin.Context) string {
	return c.GetString(ctxAdminEmail)
}
