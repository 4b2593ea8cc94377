package marketplace

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nao1215/mirrormart/pkg/ecocash"
	"github.com/nao1215/mirrormart/pkg/middleware"
)

// createPurchaseRequest は決済開始リクエストのJSON構造。
type createPurchaseRequest struct {
	// ProductID は購入する商品のID。
	ProductID string `json:"product_id" binding:"required"`
	// CustomerMsisdn は決済元となる顧客の電話番号。
	CustomerMsisdn string `json:"customer_msisdn" binding:"required"`
}

// purchaseResponse は決済試行のJSONレスポンス構造。
type purchaseResponse struct {
	// ID は決済試行の一意識別子。
	ID string `json:"id"`
	// ProductID は対象商品のID。
	ProductID string `json:"product_id"`
	// Amount は決済金額の10進文字列表現。
	Amount string `json:"amount"`
	// Currency は通貨コード。
	Currency string `json:"currency"`
	// SourceReference はプロバイダの重複排除用参照値。
	SourceReference string `json:"source_reference"`
	// Result は決済プロバイダの正規化済み結果。
	Result ecocash.Result `json:"result"`
}

// handleCreatePurchase は決済開始を処理するハンドラを返す。
// 金額と電話番号の妥当性検証はここで行い、決済クライアントには検証済みの
// 値のみを渡す。決済結果は成否に関わらず記録して呼び出し元へ返す。
func (s *Server) handleCreatePurchase() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.payClient == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "決済APIが設定されていません"})
			return
		}

		var req createPurchaseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		product, err := s.queries.GetProductByID(c.Request.Context(), req.ProductID)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "商品が見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "商品の取得に失敗しました"})
			log.Printf("商品取得エラー: %v", err)
			return
		}
		if !product.Price.IsPositive() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "この商品は購入できません"})
			return
		}

		// 試行ごとに新しい参照値を採番する。トランスポート層での再送時に
		// 同じ参照値を使うかどうかはプロバイダの重複排除に委ねる。
		sourceReference := ecocash.NewSourceReference()
		result := s.payClient.Pay(c.Request.Context(), ecocash.Request{
			CustomerMsisdn:  req.CustomerMsisdn,
			Amount:          product.Price,
			Reason:          product.Name,
			SourceReference: sourceReference,
		})

		purchaseID := uuid.New().String()
		if err := s.queries.CreatePurchase(c.Request.Context(), CreatePurchaseParams{
			ID:              purchaseID,
			BuyerID:         middleware.GetUserID(c),
			ProductID:       product.ID,
			Amount:          product.Price,
			Currency:        "USD",
			SourceReference: sourceReference,
			StatusCode:      result.StatusCode,
			Succeeded:       result.Succeeded,
			Message:         result.Message,
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "決済記録の保存に失敗しました"})
			log.Printf("決済記録保存エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, purchaseResponse{
			ID:              purchaseID,
			ProductID:       product.ID,
			Amount:          product.Price.String(),
			Currency:        "USD",
			SourceReference: sourceReference,
			Result:          result,
		})
	}
}

// handleListMyPurchases はバイヤー自身の決済履歴取得を処理するハンドラを返す。
func (s *Server) handleListMyPurchases() gin.HandlerFunc {
	return func(c *gin.Context) {
		purchases, err := s.queries.ListPurchasesByBuyer(c.Request.Context(), middleware.GetUserID(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "決済履歴の取得に失敗しました"})
			log.Printf("決済履歴取得エラー: %v", err)
			return
		}

		responses := make([]gin.H, 0, len(purchases))
		for _, p := range purchases {
			responses = append(responses, gin.H{
				"id":               p.ID,
				"product_id":       p.ProductID,
				"amount":           p.Amount.String(),
				"currency":         p.Currency,
				"source_reference": p.SourceReference,
				"status_code":      p.StatusCode,
				"succeeded":        p.Succeeded,
				"message":          p.Message,
				"created_at":       p.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		c.JSON(http.StatusOK, responses)
	}
}
