package marketplace

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nao1215/mirrormart/pkg/middleware"
)

// createRequestRequest は購入希望投稿リクエストのJSON構造。
type createRequestRequest struct {
	// Title は品名。
	Title string `json:"title" binding:"required"`
	// Description は希望の詳細。
	Description string `json:"description" binding:"required"`
	// ImageBase64 は参考画像。
	ImageBase64 string `json:"image_base64" binding:"required"`
}

// createResponseRequest はオファー送信リクエストのJSON構造。
type createResponseRequest struct {
	// Message はオファー内容（価格や条件）。
	Message string `json:"message" binding:"required"`
}

// requestResponse は購入希望のJSONレスポンス構造。
type requestResponse struct {
	// ID は購入希望の一意識別子。
	ID string `json:"id"`
	// BuyerID は投稿したバイヤーのユーザーID。
	BuyerID string `json:"buyer_id"`
	// Title は品名。
	Title string `json:"title"`
	// Description は希望の詳細。
	Description string `json:"description"`
	// ImageBase64 は参考画像。
	ImageBase64 string `json:"image_base64"`
	// Status はステータス。
	Status string `json:"status"`
	// CreatedAt は作成日時。
	CreatedAt string `json:"created_at"`
}

// offerResponse はオファーのJSONレスポンス構造。
type offerResponse struct {
	// ID はオファーの一意識別子。
	ID string `json:"id"`
	// RequestID は対象の購入希望ID。
	RequestID string `json:"request_id"`
	// SupplierID はオファーしたセラーのユーザーID。
	SupplierID string `json:"supplier_id"`
	// SupplierName はオファー時点のセラー表示名。
	SupplierName string `json:"supplier_name"`
	// Message はオファー内容。
	Message string `json:"message"`
	// CreatedAt は作成日時。
	CreatedAt string `json:"created_at"`
}

// toRequestResponse はDB行をJSONレスポンスに変換する。
func toRequestResponse(r Request) requestResponse {
	return requestResponse{
		ID:          r.ID,
		BuyerID:     r.BuyerID,
		Title:       r.Title,
		Description: r.Description,
		ImageBase64: r.ImageBase64,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// toOfferResponse はDB行をJSONレスポンスに変換する。
func toOfferResponse(r Response) offerResponse {
	return offerResponse{
		ID:           r.ID,
		RequestID:    r.RequestID,
		SupplierID:   r.SupplierID,
		SupplierName: r.SupplierName,
		Message:      r.Message,
		CreatedAt:    r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// handleCreateRequest は購入希望の投稿を処理するハンドラを返す。
func (s *Server) handleCreateRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createRequestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		requestID := uuid.New().String()
		if err := s.queries.CreateRequest(c.Request.Context(), CreateRequestParams{
			ID:          requestID,
			BuyerID:     middleware.GetUserID(c),
			Title:       req.Title,
			Description: req.Description,
			ImageBase64: req.ImageBase64,
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "購入希望の投稿に失敗しました"})
			log.Printf("購入希望投稿エラー: %v", err)
			return
		}

		created, err := s.queries.GetRequestByID(c.Request.Context(), requestID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "投稿した購入希望の取得に失敗しました"})
			log.Printf("購入希望取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusCreated, toRequestResponse(created))
	}
}

// handleListMyRequests はバイヤー自身の購入希望一覧取得を処理するハンドラを返す。
func (s *Server) handleListMyRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		requests, err := s.queries.ListRequestsByBuyer(c.Request.Context(), middleware.GetUserID(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "購入希望一覧の取得に失敗しました"})
			log.Printf("購入希望一覧取得エラー: %v", err)
			return
		}

		responses := make([]requestResponse, 0, len(requests))
		for _, r := range requests {
			responses = append(responses, toRequestResponse(r))
		}
		c.JSON(http.StatusOK, responses)
	}
}

// handleListOpenRequests はオファー受付中の購入希望一覧取得を処理するハンドラを返す。
// セラーがマーケットを閲覧するために使用する。
func (s *Server) handleListOpenRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		requests, err := s.queries.ListOpenRequests(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "購入希望一覧の取得に失敗しました"})
			log.Printf("購入希望一覧取得エラー: %v", err)
			return
		}

		responses := make([]requestResponse, 0, len(requests))
		for _, r := range requests {
			responses = append(responses, toRequestResponse(r))
		}
		c.JSON(http.StatusOK, responses)
	}
}

// handleFulfillRequest は購入希望のクローズを処理するハンドラを返す。
// 投稿者本人のみがオファー受付中の購入希望をクローズできる。
func (s *Server) handleFulfillRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.Param("id")
		r, err := s.queries.GetRequestByID(c.Request.Context(), requestID)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "購入希望が見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "購入希望の取得に失敗しました"})
			log.Printf("購入希望取得エラー: %v", err)
			return
		}

		if r.BuyerID != middleware.GetUserID(c) {
			c.JSON(http.StatusForbidden, gin.H{"error": "この購入希望をクローズする権限がありません"})
			return
		}
		if r.Status != RequestStatusOpen {
			c.JSON(http.StatusConflict, gin.H{"error": "この購入希望はすでにクローズされています"})
			return
		}

		if err := s.queries.UpdateRequestStatus(c.Request.Context(), requestID, RequestStatusFulfilled); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "購入希望の更新に失敗しました"})
			log.Printf("購入希望更新エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "購入希望をクローズしました"})
	}
}

// handleCreateResponse はオファー送信を処理するハンドラを返す。
// オファー受付中の購入希望にのみ送信でき、セラーの表示名をプロフィールから
// 引いて記録する。
func (s *Server) handleCreateResponse() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createResponseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		requestID := c.Param("id")
		r, err := s.queries.GetRequestByID(c.Request.Context(), requestID)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "購入希望が見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "購入希望の取得に失敗しました"})
			log.Printf("購入希望取得エラー: %v", err)
			return
		}
		if r.Status != RequestStatusOpen {
			c.JSON(http.StatusConflict, gin.H{"error": "この購入希望はオファーを受け付けていません"})
			return
		}

		supplierID := middleware.GetUserID(c)
		supplierName := ""
		if user, err := s.queries.GetUserByID(c.Request.Context(), supplierID); err == nil {
			supplierName = user.DisplayName
			if supplierName == "" {
				supplierName = user.Email
			}
		}

		responseID := uuid.New().String()
		if err := s.queries.CreateResponse(c.Request.Context(), CreateResponseParams{
			ID:           responseID,
			RequestID:    requestID,
			SupplierID:   supplierID,
			SupplierName: supplierName,
			Message:      req.Message,
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "オファーの送信に失敗しました"})
			log.Printf("オファー送信エラー: %v", err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"id": responseID})
	}
}

// handleListResponses はオファー一覧取得を処理するハンドラを返す。
// バイヤーは自分の購入希望のオファーのみ閲覧できる。セラーは制限なし。
func (s *Server) handleListResponses() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.Param("id")
		r, err := s.queries.GetRequestByID(c.Request.Context(), requestID)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "購入希望が見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "購入希望の取得に失敗しました"})
			log.Printf("購入希望取得エラー: %v", err)
			return
		}

		// 閲覧できるのは投稿者本人とセラーのみ。ロール未設定のユーザーも拒否する
		if middleware.GetRole(c) != middleware.RoleSeller && r.BuyerID != middleware.GetUserID(c) {
			c.JSON(http.StatusForbidden, gin.H{"error": "この購入希望のオファーを閲覧する権限がありません"})
			return
		}

		offers, err := s.queries.ListResponsesByRequest(c.Request.Context(), requestID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "オファー一覧の取得に失敗しました"})
			log.Printf("オファー一覧取得エラー: %v", err)
			return
		}

		responses := make([]offerResponse, 0, len(offers))
		for _, o := range offers {
			responses = append(responses, toOfferResponse(o))
		}
		c.JSON(http.StatusOK, responses)
	}
}
