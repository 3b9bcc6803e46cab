package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Options 控制签名与TTL等参数。
type Options struct {
	Secret []byte        // HMAC 密钥（生产用ENV/KMS）
	Alg    string        // HS256/HS384/HS512（默认 HS256）
	TTL    time.Duration // 令牌有效期（默认 2h）
}

func DefaultOptions(secret []byte) Options {
	return Options{Secret: secret, Alg: "HS256", TTL: 2 * time.Hour}
}

// Identity 上游认证结果：握手只消费这三个字段。
type Identity struct {
	UserID      string
	OrgID       string
	DisplayName string
}

// Generate 签发带 sub/org/name 声明的令牌（管理面与测试工具使用）。
func Generate(opts Options, userID, orgID, displayName string) (string, error) {
	method, err := signingMethod(opts.Alg)
	if err != nil {
		return "", err
	}
	if opts.TTL <= 0 {
		opts.TTL = 2 * time.Hour
	}
	now := time.Now()

	claims := jwtlib.MapClaims{
		"sub":  userID,
		"org":  orgID,
		"name": displayName,
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"exp":  now.Add(opts.TTL).Unix(),
	}

	return jwtlib.NewWithClaims(method, claims).SignedString(opts.Secret)
}

// Parse 校验令牌并抽取身份；认证本身在上游完成，这里只还原身份。
func Parse(opts Options, token string) (*Identity, error) {
	if token == "" {
		return nil, errors.New("empty token")
	}
	parsed, err := jwtlib.Parse(token, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return opts.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}

	id := &Identity{}
	if v, ok := claims["sub"].(string); ok {
		id.UserID = v
	}
	if v, ok := claims["org"].(string); ok {
		id.OrgID = v
	}
	if v, ok := claims["name"].(string); ok {
		id.DisplayName = v
	}
	if id.UserID == "" {
		return nil, errors.New("token missing sub claim")
	}
	return id, nil
}

func signingMethod(alg string) (jwtlib.SigningMethod, error) {
	switch strings.ToUpper(alg) {
	case "", "HS256":
		return jwtlib.SigningMethodHS256, nil
	case "HS384":
		return jwtlib.SigningMethodHS384, nil
	case "HS512":
		return jwtlib.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported alg: %s", alg)
	}
}
