package security

import (
	"net/http"
	"strings"

	config "DProject/global/config"
	sec "DProject/tools/security"

	"github.com/gin-gonic/gin"
)

// —— context key ——
// 管理面 handler 统一用这俩 key 读取
const (
	CtxUserKey = "authUser" // string
	CtxOrgKey  = "authOrg"  // string
)

type Options struct {
	// 读取哪个请求头
	HeaderToken               string // 默认 "authorization"
	EnableAuthorizationBearer bool   // 默认 true
}

func DefaultOptions() *Options {
	return &Options{
		HeaderToken:               "authorization",
		EnableAuthorizationBearer: true,
	}
}

// Middleware 管理面鉴权：上游签发的 JWT，缺失/无效直接 401。
func Middleware(opts *Options) gin.HandlerFunc {
	if opts == nil {
		opts = DefaultOptions()
	}
	return func(c *gin.Context) {
		token := c.GetHeader(opts.HeaderToken)
		if opts.EnableAuthorizationBearer {
			token = strings.TrimPrefix(token, "Bearer ")
			token = strings.TrimPrefix(token, "bearer ")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "missing token"})
			return
		}
		id, err := sec.Parse(sec.DefaultOptions(config.GetJwtSecret()), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "invalid token"})
			return
		}
		c.Set(CtxUserKey, id.UserID)
		c.Set(CtxOrgKey, id.OrgID)
		c.Next()
	}
}
