package marketplace

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/mirrormart/internal/mirror"
)

// mirrorRequest は試着合成のリクエスト。画像はBase64エンコード済み。
type mirrorRequest struct {
	// PersonImage はユーザーの写真（Base64）
	PersonImage string `json:"person_image" binding:"required"`
	// PersonMimeType はユーザー写真のMIMEタイプ
	PersonMimeType string `json:"person_mime_type"`
	// ProductImage は商品の画像（Base64）
	ProductImage string `json:"product_image" binding:"required"`
	// ProductMimeType は商品画像のMIMEタイプ
	ProductMimeType string `json:"product_mime_type"`
	// Prompt は合成指示。省略時は標準プロンプトを使用する
	Prompt string `json:"prompt"`
}

// handleMirror は試着合成を処理するハンドラを返す。
// 合成バックエンドが未設定の場合は503を返す。
func (s *Server) handleMirror() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.mirrorClient == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "試着合成は現在利用できません"})
			return
		}

		var req mirrorRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストボディが不正です"})
			return
		}

		result, err := s.mirrorClient.Compose(c.Request.Context(), mirror.ComposeInput{
			PersonImage:     req.PersonImage,
			PersonMimeType:  req.PersonMimeType,
			ProductImage:    req.ProductImage,
			ProductMimeType: req.ProductMimeType,
			Prompt:          req.Prompt,
		})
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "試着画像の合成に失敗しました"})
			log.Printf("試着合成エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"result": result})
	}
}
