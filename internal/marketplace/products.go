package marketplace

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nao1215/mirrormart/pkg/middleware"
)

// createProductRequest は商品出品リクエストのJSON構造。
type createProductRequest struct {
	// Name は商品名。
	Name string `json:"name" binding:"required"`
	// Description は商品説明。
	Description string `json:"description"`
	// Price は価格。数値または数値文字列。
	Price decimal.Decimal `json:"price" binding:"required"`
	// ImageBase64 は商品画像。
	ImageBase64 string `json:"image_base64"`
	// Category はカテゴリ。
	Category string `json:"category"`
}

// productResponse は商品のJSONレスポンス構造。
type productResponse struct {
	// ID は商品の一意識別子。
	ID string `json:"id"`
	// SellerID は出品したセラーのユーザーID。
	SellerID string `json:"seller_id"`
	// Name は商品名。
	Name string `json:"name"`
	// Description は商品説明。
	Description string `json:"description"`
	// Price は価格の10進文字列表現。
	Price string `json:"price"`
	// ImageBase64 は商品画像。
	ImageBase64 string `json:"image_base64"`
	// Category はカテゴリ。
	Category string `json:"category"`
	// CreatedAt は作成日時。
	CreatedAt string `json:"created_at"`
}

// toProductResponse はDB行をJSONレスポンスに変換する。
func toProductResponse(p Product) productResponse {
	return productResponse{
		ID:          p.ID,
		SellerID:    p.SellerID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.String(),
		ImageBase64: p.ImageBase64,
		Category:    p.Category,
		CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// handleCreateProduct は商品出品を処理するハンドラを返す。
func (s *Server) handleCreateProduct() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}
		if !req.Price.IsPositive() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "価格は0より大きい値を指定してください"})
			return
		}

		productID := uuid.New().String()
		if err := s.queries.CreateProduct(c.Request.Context(), CreateProductParams{
			ID:          productID,
			SellerID:    middleware.GetUserID(c),
			Name:        req.Name,
			Description: req.Description,
			Price:       req.Price,
			ImageBase64: req.ImageBase64,
			Category:    req.Category,
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "商品の出品に失敗しました"})
			log.Printf("商品出品エラー: %v", err)
			return
		}

		created, err := s.queries.GetProductByID(c.Request.Context(), productID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "出品した商品の取得に失敗しました"})
			log.Printf("商品取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusCreated, toProductResponse(created))
	}
}

// handleListProducts は商品一覧取得を処理するハンドラを返す。
// 認証不要の公開APIであり、新しい順にすべての商品を返す。
func (s *Server) handleListProducts() gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := s.queries.ListProducts(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "商品一覧の取得に失敗しました"})
			log.Printf("商品一覧取得エラー: %v", err)
			return
		}

		responses := make([]productResponse, 0, len(products))
		for _, p := range products {
			responses = append(responses, toProductResponse(p))
		}
		c.JSON(http.StatusOK, responses)
	}
}

// handleGetProduct は商品詳細取得を処理するハンドラを返す。
func (s *Server) handleGetProduct() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := s.queries.GetProductByID(c.Request.Context(), c.Param("id"))
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "商品が見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "商品の取得に失敗しました"})
			log.Printf("商品取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, toProductResponse(p))
	}
}

// handleDeleteProduct は商品削除を処理するハンドラを返す。
// 出品者本人のみが削除できる。
func (s *Server) handleDeleteProduct() gin.HandlerFunc {
	return func(c *gin.Context) {
		productID := c.Param("id")
		p, err := s.queries.GetProductByID(c.Request.Context(), productID)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "商品が見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "商品の取得に失敗しました"})
			log.Printf("商品取得エラー: %v", err)
			return
		}

		if p.SellerID != middleware.GetUserID(c) {
			c.JSON(http.StatusForbidden, gin.H{"error": "この商品を削除する権限がありません"})
			return
		}

		if err := s.queries.DeleteProduct(c.Request.Context(), productID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "商品の削除に失敗しました"})
			log.Printf("商品削除エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "商品を削除しました"})
	}
}
