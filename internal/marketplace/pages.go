package marketplace

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/mirrormart/pkg/middleware"
)

// ページ系ハンドラ。UIの描画はフロントエンドの責務であり、
// ここではページに表示するデータのみをJSONで返す。

// handleBuyerDashboard はバイヤーダッシュボードを処理するハンドラを返す。
// 自分が投稿した購入希望の一覧を返す。
func (s *Server) handleBuyerDashboard() gin.HandlerFunc {
	return func(c *gin.Context) {
		requests, err := s.queries.ListRequestsByBuyer(c.Request.Context(), middleware.GetUserID(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "購入希望一覧の取得に失敗しました"})
			log.Printf("購入希望一覧取得エラー: %v", err)
			return
		}

		items := make([]requestResponse, 0, len(requests))
		for _, r := range requests {
			items = append(items, toRequestResponse(r))
		}
		c.JSON(http.StatusOK, gin.H{
			"page":     "buyer-dashboard",
			"requests": items,
		})
	}
}

// handleSellerDashboard はセラーダッシュボードを処理するハンドラを返す。
// 自分が出品した商品の一覧を返す。
func (s *Server) handleSellerDashboard() gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := s.queries.ListProductsBySeller(c.Request.Context(), middleware.GetUserID(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "商品一覧の取得に失敗しました"})
			log.Printf("商品一覧取得エラー: %v", err)
			return
		}

		items := make([]productResponse, 0, len(products))
		for _, p := range products {
			items = append(items, toProductResponse(p))
		}
		c.JSON(http.StatusOK, gin.H{
			"page":     "seller-dashboard",
			"products": items,
		})
	}
}

// handleMarketPage はセラー向けマーケットページを処理するハンドラを返す。
// オファー受付中の購入希望の一覧を返す。
func (s *Server) handleMarketPage() gin.HandlerFunc {
	return func(c *gin.Context) {
		requests, err := s.queries.ListOpenRequests(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "購入希望一覧の取得に失敗しました"})
			log.Printf("購入希望一覧取得エラー: %v", err)
			return
		}

		items := make([]requestResponse, 0, len(requests))
		for _, r := range requests {
			items = append(items, toRequestResponse(r))
		}
		c.JSON(http.StatusOK, gin.H{
			"page":     "market",
			"requests": items,
		})
	}
}

// handleOnboardingPage はオンボーディングページを処理するハンドラを返す。
// ロール設定済みのユーザーはアクセスゲートがダッシュボードへ誘導するため、
// ここに到達するのはロール未設定のユーザーのみ。
func (s *Server) handleOnboardingPage() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"page":    "onboarding",
			"message": "ロールを選択してください",
			"roles":   []string{middleware.RoleBuyer, middleware.RoleSeller},
		})
	}
}
