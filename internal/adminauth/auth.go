// Package adminauth 为管理接口提供单管理员密码校验与 JWT 签发
package adminauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	// RoleAdmin 是管理接口唯一的角色
	RoleAdmin = "admin"

	issuer          = "PlugShell"
	defaultTokenTTL = 24 * time.Hour
)

// ErrInvalidToken 表示 JWT 无效、过期或解析失败
var ErrInvalidToken = errors.New("invalid or expired token")

// Claim 定义 JWT 的载荷结构
type Claim struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator 持有管理员密码哈希与签名密钥
type Authenticator struct {
	passwordHash []byte
	hmacKey      []byte
	ttl          time.Duration
	now          func() time.Time
}

// New 创建 Authenticator。passwordHash 为 bcrypt 哈希，可由 HashPassword 生成。
func New(passwordHash, secret string, ttl time.Duration) (*Authenticator, error) {
	if passwordHash == "" || secret == "" {
		return nil, errors.New("管理接口需要密码哈希与 JWT 密钥")
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, fmt.Errorf("无效的 bcrypt 密码哈希: %w", err)
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Authenticator{
		passwordHash: []byte(passwordHash),
		hmacKey:      []byte(secret),
		ttl:          ttl,
		now:          time.Now,
	}, nil
}

// HashPassword 生成适合写入配置 admin.password_hash 的 bcrypt 哈希
func HashPassword(pass string) (string, error) {
	if pass == "" {
		return "", errors.New("密码不能为空")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("生成密码哈希失败: %w", err)
	}
	return string(hash), nil
}

// CheckPassword 校验管理员密码
func (a *Authenticator) CheckPassword(pass string) bool {
	return bcrypt.CompareHashAndPassword(a.passwordHash, []byte(pass)) == nil
}

// GenToken 签发管理员令牌，返回令牌与过期时间
func (a *Authenticator) GenToken() (string, time.Time, error) {
	now := a.now()
	expires := now.Add(a.ttl)
	claims := Claim{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.hmacKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("签名 JWT 失败: %w", err)
	}
	return signed, expires, nil
}

// ParseToken 解析并验证 JWT 字符串
func (a *Authenticator) ParseToken(tokenString string) (*Claim, error) {
	claims := &Claim{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("非预期的签名方法: %v", token.Header["alg"])
		}
		return a.hmacKey, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(a.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, jwt.ErrTokenExpired)
		}
		return nil, fmt.Errorf("%w (detail: %v)", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
