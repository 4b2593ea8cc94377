package marketplace

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nao1215/mirrormart/pkg/ecocash"
	"github.com/nao1215/mirrormart/pkg/middleware"
)

// setupPaymentServer は決済プロバイダのモックと決済クライアントを構築する。
// モックは指定されたステータスコードとボディを常に返す。
func setupPaymentServer(t *testing.T, s *Server, statusCode int, body string) {
	t.Helper()

	mock := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(func() { mock.Close() })

	client, err := ecocash.New("test-api-key", ecocash.WithEndpoint(mock.URL))
	if err != nil {
		t.Fatalf("決済クライアントの生成に失敗: %v", err)
	}
	s.payClient = client
}

// TestHandleCreatePurchase は決済開始ハンドラのテスト。
func TestHandleCreatePurchase(t *testing.T) {
	t.Parallel()

	t.Run("決済が受理されると記録して結果を返す", func(t *testing.T) {
		t.Parallel()
		s, router := setupTestServer(t)
		setupPaymentServer(t, s, http.StatusOK, `{"status":"accepted"}`)
		createTestUser(t, s, "buyer-1", "buyer@example.com", "購入者", middleware.RoleBuyer)
		createTestUser(t, s, "seller-1", "seller@example.com", "販売者", middleware.RoleSeller)
		createTestProduct(t, s, "product-1", "seller-1", "シャツ", "12.50")

		cookie := sessionCookie(t, "buyer-1", "buyer@example.com", middleware.RoleBuyer)
		body := map[string]string{
			"product_id":      "product-1",
			"customer_msisdn": "263771234567",
		}
		w := doRequest(router, http.MethodPost, "/api/v1/purchases", cookie, body)

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
		}

		var result purchaseResponse
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("JSONのデコードに失敗: %v", err)
		}
		if !result.Result.Succeeded {
			t.Error("Succeededがfalseです")
		}
		if result.Result.StatusCode != http.StatusOK {
			t.Errorf("StatusCode: got %d, want %d", result.Result.StatusCode, http.StatusOK)
		}
		if result.Amount != "12.50" {
			t.Errorf("Amount: got %v, want 12.50", result.Amount)
		}
		if result.SourceReference == "" {
			t.Error("SourceReferenceが空です")
		}

		purchases, err := s.queries.ListPurchasesByBuyer(t.Context(), "buyer-1")
		if err != nil {
			t.Fatalf("決済履歴取得に失敗: %v", err)
		}
		if len(purchases) != 1 {
			t.Fatalf("決済記録数: got %d, want 1", len(purchases))
		}
		if !purchases[0].Succeeded {
			t.Error("記録されたSucceededがfalseです")
		}
	})

	t.Run("プロバイダがエラーを返しても失敗として記録し200で返す", func(t *testing.T) {
		t.Parallel()
		s, router := setupTestServer(t)
		setupPaymentServer(t, s, http.StatusInternalServerError, `{"message":"db down"}`)
		createTestUser(t, s, "buyer-1", "buyer@example.com", "購入者", middleware.RoleBuyer)
		createTestUser(t, s, "seller-1", "seller@example.com", "販売者", middleware.RoleSeller)
		createTestProduct(t, s, "product-1", "seller-1", "シャツ", "12.50")

		cookie := sessionCookie(t, "buyer-1", "buyer@example.com", middleware.RoleBuyer)
		body := map[string]string{
			"product_id":      "product-1",
			"customer_msisdn": "263771234567",
		}
		w := doRequest(router, http.MethodPost, "/api/v1/purchases", cookie, body)

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
		}

		var result purchaseResponse
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("JSONのデコードに失敗: %v", err)
		}
		if result.Result.Succeeded {
			t.Error("Succeededがtrueです")
		}
		if result.Result.StatusCode != http.StatusInternalServerError {
			t.Errorf("StatusCode: got %d, want %d", result.Result.StatusCode, http.StatusInternalServerError)
		}
		if result.Result.Message != "Server error on the provider's end. (db down)" {
			t.Errorf("Message: got %q", result.Result.Message)
		}

		purchases, err := s.queries.ListPurchasesByBuyer(t.Context(), "buyer-1")
		if err != nil {
			t.Fatalf("決済履歴取得に失敗: %v", err)
		}
		if len(purchases) != 1 || purchases[0].Succeeded {
			t.Error("失敗した決済が正しく記録されていません")
		}
	})

	t.Run("決済APIが未設定の場合はServiceUnavailable", func(t *testing.T) {
		t.Parallel()
		s, router := setupTestServer(t)
		createTestUser(t, s, "buyer-1", "buyer@example.com", "購入者", middleware.RoleBuyer)

		cookie := sessionCookie(t, "buyer-1", "buyer@example.com", middleware.RoleBuyer)
		body := map[string]string{
			"product_id":      "product-1",
			"customer_msisdn": "263771234567",
		}
		w := doRequest(router, http.MethodPost, "/api/v1/purchases", cookie, body)

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusServiceUnavailable)
		}
	})

	t.Run("存在しない商品はNotFound", func(t *testing.T) {
		t.Parallel()
		s, router := setupTestServer(t)
		setupPaymentServer(t, s, http.StatusOK, `{}`)
		createTestUser(t, s, "buyer-1", "buyer@example.com", "購入者", middleware.RoleBuyer)

		cookie := sessionCookie(t, "buyer-1", "buyer@example.com", middleware.RoleBuyer)
		body := map[string]string{
			"product_id":      "nonexistent",
			"customer_msisdn": "263771234567",
		}
		w := doRequest(router, http.MethodPost, "/api/v1/purchases", cookie, body)

		if w.Code != http.StatusNotFound {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("電話番号が未指定の場合はBadRequest", func(t *testing.T) {
		t.Parallel()
		s, router := setupTestServer(t)
		setupPaymentServer(t, s, http.StatusOK, `{}`)
		createTestUser(t, s, "buyer-1", "buyer@example.com", "購入者", middleware.RoleBuyer)

		cookie := sessionCookie(t, "buyer-1", "buyer@example.com", middleware.RoleBuyer)
		body := map[string]string{"product_id": "product-1"}
		w := doRequest(router, http.MethodPost, "/api/v1/purchases", cookie, body)

		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("セラーは決済を開始できない", func(t *testing.T) {
		t.Parallel()
		s, router := setupTestServer(t)
		setupPaymentServer(t, s, http.StatusOK, `{}`)
		createTestUser(t, s, "seller-1", "seller@example.com", "販売者", middleware.RoleSeller)

		cookie := sessionCookie(t, "seller-1", "seller@example.com", middleware.RoleSeller)
		body := map[string]string{
			"product_id":      "product-1",
			"customer_msisdn": "263771234567",
		}
		w := doRequest(router, http.MethodPost, "/api/v1/purchases", cookie, body)

		if w.Code != http.StatusForbidden {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusForbidden)
		}
	})
}

// TestHandleListMyPurchases は決済履歴取得ハンドラのテスト。
func TestHandleListMyPurchases(t *testing.T) {
	t.Parallel()

	s, router := setupTestServer(t)
	setupPaymentServer(t, s, http.StatusOK, `{}`)
	createTestUser(t, s, "buyer-1", "buyer@example.com", "購入者", middleware.RoleBuyer)
	createTestUser(t, s, "seller-1", "seller@example.com", "販売者", middleware.RoleSeller)
	createTestProduct(t, s, "product-1", "seller-1", "シャツ", "12.50")

	cookie := sessionCookie(t, "buyer-1", "buyer@example.com", middleware.RoleBuyer)
	body := map[string]string{
		"product_id":      "product-1",
		"customer_msisdn": "263771234567",
	}
	if w := doRequest(router, http.MethodPost, "/api/v1/purchases", cookie, body); w.Code != http.StatusOK {
		t.Fatalf("決済開始のステータスコード: got %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	w := doRequest(router, http.MethodGet, "/api/v1/purchases", cookie, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("ステータスコード: got %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	result := parseJSONArray(t, w)
	if len(result) != 1 {
		t.Fatalf("決済履歴数: got %d, want 1", len(result))
	}
	if result[0]["product_id"] != "product-1" {
		t.Errorf("product_id: got %v, want product-1", result[0]["product_id"])
	}
	if result[0]["succeeded"] != true {
		t.Errorf("succeeded: got %v, want true", result[0]["succeeded"])
	}
}
