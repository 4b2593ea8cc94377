package marketplace

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nao1215/mirrormart/pkg/middleware"
)

// loginRequest はログインリクエストのJSON構造。
type loginRequest struct {
	// Email はメールアドレス。
	Email string `json:"email" binding:"required,email"`
	// DisplayName は表示名。初回ログイン時のみ使用する。
	DisplayName string `json:"display_name"`
}

// setRoleRequest はロール設定リクエストのJSON構造。
type setRoleRequest struct {
	// Role は設定するロール。buyerまたはseller。
	Role string `json:"role" binding:"required,oneof=buyer seller"`
}

// setSessionCookie はセッショントークンをCookieとしてレスポンスに設定する。
// HttpOnly・SameSite=Lax・Path=/ で発行し、リリースモードではSecureを付与する。
func (s *Server) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	secure := gin.Mode() == gin.ReleaseMode
	c.SetCookie(middleware.SessionCookieName, token, int(sessionTTL.Seconds()), "/", "", secure, true)
}

// clearSessionCookie はセッションCookieを削除する。
func (s *Server) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	secure := gin.Mode() == gin.ReleaseMode
	c.SetCookie(middleware.SessionCookieName, "", -1, "/", "", secure, true)
}

// handleLogin はログインを処理するハンドラを返す。
// ユーザーが存在しなければ作成し、セッションCookieを発行する。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		user, err := s.queries.GetUserByEmail(c.Request.Context(), req.Email)
		if err == sql.ErrNoRows {
			user = User{
				ID:          uuid.New().String(),
				Email:       req.Email,
				DisplayName: req.DisplayName,
			}
			if err := s.queries.CreateUser(c.Request.Context(), CreateUserParams{
				ID:          user.ID,
				Email:       user.Email,
				DisplayName: user.DisplayName,
			}); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザー作成に失敗しました"})
				log.Printf("ユーザー作成エラー: %v", err)
				return
			}
		} else if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザー取得に失敗しました"})
			log.Printf("ユーザー取得エラー: %v", err)
			return
		} else {
			_ = s.queries.UpdateLastLogin(c.Request.Context(), user.ID)
		}

		token, err := middleware.GenerateSessionToken(s.sessionSecret, user.ID, user.Email, user.Role, sessionTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "セッショントークンの生成に失敗しました"})
			log.Printf("セッショントークン生成エラー: %v", err)
			return
		}
		s.setSessionCookie(c, token)

		c.JSON(http.StatusOK, gin.H{
			"user_id": user.ID,
			"email":   user.Email,
			"role":    user.Role,
		})
	}
}

// handleSetRole はロール設定を処理するハンドラを返す。
// ロールを永続化した上で、新しいロールクレームを含むセッションCookieを
// 発行し直す。クライアント側での再ログインは不要になる。
func (s *Server) handleSetRole() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req setRoleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		userID := middleware.GetUserID(c)
		user, err := s.queries.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "ユーザーが見つかりません"})
			return
		}

		if err := s.queries.UpdateUserRole(c.Request.Context(), userID, req.Role); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ロールの更新に失敗しました"})
			log.Printf("ロール更新エラー: %v", err)
			return
		}

		token, err := middleware.GenerateSessionToken(s.sessionSecret, userID, user.Email, req.Role, sessionTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "セッショントークンの生成に失敗しました"})
			log.Printf("セッショントークン生成エラー: %v", err)
			return
		}
		s.setSessionCookie(c, token)

		redirect := s.gateConfig.BuyerPrefix
		if req.Role == middleware.RoleSeller {
			redirect = s.gateConfig.SellerPrefix
		}
		c.JSON(http.StatusOK, gin.H{
			"role":     req.Role,
			"redirect": redirect,
		})
	}
}

// handleLogout はログアウトを処理するハンドラを返す。
func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.clearSessionCookie(c)
		c.JSON(http.StatusOK, gin.H{"message": "ログアウトしました"})
	}
}

// handleMe は認証済みユーザーの情報を返すハンドラを返す。
func (s *Server) handleMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := s.queries.GetUserByID(c.Request.Context(), middleware.GetUserID(c))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "ユーザーが見つかりません"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"id":           user.ID,
			"email":        user.Email,
			"display_name": user.DisplayName,
			"role":         user.Role,
		})
	}
}

// updateProfileRequest はプロフィール更新リクエストのJSON構造。
type updateProfileRequest struct {
	// DisplayName は表示名。
	DisplayName string `json:"display_name" binding:"required"`
	// PhotoBase64 はプロフィール画像。
	PhotoBase64 string `json:"photo_base64"`
}

// handleGetProfile はプロフィール取得を処理するハンドラを返す。
func (s *Server) handleGetProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := s.queries.GetUserByID(c.Request.Context(), middleware.GetUserID(c))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "ユーザーが見つかりません"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"id":           user.ID,
			"email":        user.Email,
			"display_name": user.DisplayName,
			"role":         user.Role,
			"photo_base64": user.PhotoBase64,
		})
	}
}

// handleUpdateProfile はプロフィール更新を処理するハンドラを返す。
func (s *Server) handleUpdateProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		if err := s.queries.UpdateUserProfile(c.Request.Context(), UpdateUserProfileParams{
			ID:          middleware.GetUserID(c),
			DisplayName: req.DisplayName,
			PhotoBase64: req.PhotoBase64,
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "プロフィールの更新に失敗しました"})
			log.Printf("プロフィール更新エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "プロフィールを更新しました"})
	}
}
