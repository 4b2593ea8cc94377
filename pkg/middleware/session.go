package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// SessionCookieName はセッショントークンを保持するCookie名。
const SessionCookieName = "session"

// ロールクレームの取りうる値。
const (
	// RoleBuyer はバイヤー（購入希望を投稿する側）のロール。
	RoleBuyer = "buyer"
	// RoleSeller はセラー（商品を出品する側）のロール。
	RoleSeller = "seller"
)

// SessionClaims はセッショントークンのクレーム（ペイロード）を表す。
// ロールはオンボーディング前のユーザーでは未設定（空文字列）になる。
type SessionClaims struct {
	jwt.RegisteredClaims
	// Email はユーザーのメールアドレス。
	Email string `json:"email"`
	// Role はユーザーのロール。"buyer"・"seller"・未設定のいずれか。
	Role string `json:"role,omitempty"`
}

// GenerateSessionToken はユーザー情報からセッショントークンを生成する。
// ログイン成功時とロール変更時に呼び出され、Cookieとしてクライアントに渡される。
func GenerateSessionToken(secret, userID, email, role string, ttl time.Duration) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "mirrormart",
		},
		Email: email,
		Role:  role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("セッショントークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// ParseSessionToken はセッショントークンの署名を検証してクレームを取り出す。
// 署名検証を省略した読み取りは行わない。検証失敗・期限切れはエラーを返す。
func ParseSessionToken(secret, tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("セッショントークンの検証に失敗: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("セッショントークンが無効")
	}
	return claims, nil
}

// sessionClaimsFromCookie はリクエストのCookieからクレームを取り出す。
// Cookie欠落・検証失敗はいずれもnilを返す（呼び出し側で未認証として扱う）。
func sessionClaimsFromCookie(c *gin.Context, secret string) *SessionClaims {
	cookie, err := c.Cookie(SessionCookieName)
	if err != nil || cookie == "" {
		return nil
	}
	claims, err := ParseSessionToken(secret, cookie)
	if err != nil {
		return nil
	}
	return claims
}

// SessionGate はページ系の保護ルートを判定するGinミドルウェアを返す。
// セッションCookieを検証し、Decideの判定に従ってリダイレクトまたは通過させる。
// API系と異なりJSONエラーは返さず、すべての失敗はリダイレクトで終端する。
func SessionGate(secret string, cfg GateConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := sessionClaimsFromCookie(c, secret)
		decision := Decide(cfg, c.Request.URL.Path, claims, time.Now())
		if decision.Redirect != "" {
			c.Redirect(http.StatusTemporaryRedirect, decision.Redirect)
			c.Abort()
			return
		}
		c.Next()
	}
}

// SessionAuth はセッションCookieを検証するGinミドルウェアを返す。
// JSON APIで使用し、検証に成功した場合はコンテキストに
// "user_id"・"email"・"role" を設定する。失敗時は401を返す。
func SessionAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := sessionClaimsFromCookie(c, secret)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "有効なセッションがありません",
			})
			return
		}

		c.Set("user_id", claims.Subject)
		c.Set("email", claims.Email)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// RequireRole は指定ロールを持たないリクエストを拒否するGinミドルウェアを返す。
// SessionAuthミドルウェアが事前に適用されている必要がある。
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetRole(c) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "このAPIを利用する権限がありません",
			})
			return
		}
		c.Next()
	}
}

// GetUserID はGinコンテキストからユーザーIDを取得する。
// SessionAuthミドルウェアが事前に適用されている必要がある。
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// GetRole はGinコンテキストからロールを取得する。
// SessionAuthミドルウェアが事前に適用されている必要がある。
func GetRole(c *gin.Context) string {
	role, _ := c.Get("role")
	if r, ok := role.(string); ok {
		return r
	}
	return ""
}
