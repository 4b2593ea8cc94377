package ecocash

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
)

// TestNew はクライアント生成を検証する。
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("APIキーが空の場合はエラーを返すこと", func(t *testing.T) {
		t.Parallel()

		if _, err := New(""); err != ErrAPIKeyRequired {
			t.Errorf("New(\"\") = %v, want %v", err, ErrAPIKeyRequired)
		}
	})

	t.Run("APIキーが設定されていればクライアントを生成できること", func(t *testing.T) {
		t.Parallel()

		c, err := New("test-api-key")
		if err != nil {
			t.Fatalf("New()でエラーが発生: %v", err)
		}
		if c == nil {
			t.Fatal("New()がnilを返した")
		}
	})
}

// TestNewSourceReference は参照値のUUID生成を検証する。
func TestNewSourceReference(t *testing.T) {
	t.Parallel()

	t.Run("RFC-4122 v4形式の36文字のUUIDを返すこと", func(t *testing.T) {
		t.Parallel()

		pattern := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
		for range 100 {
			ref := NewSourceReference()
			if len(ref) != 36 {
				t.Fatalf("len(NewSourceReference()) = %d, want 36", len(ref))
			}
			if !pattern.MatchString(ref) {
				t.Fatalf("NewSourceReference() = %q がUUID v4形式ではない", ref)
			}
		}
	})

	t.Run("連続して呼び出しても同じ値を返さないこと", func(t *testing.T) {
		t.Parallel()

		if a, b := NewSourceReference(), NewSourceReference(); a == b {
			t.Errorf("連続した呼び出しが同じ値 %q を返した", a)
		}
	})
}

// TestStatusMessage はステータスコードの変換表を検証する。
func TestStatusMessage(t *testing.T) {
	t.Parallel()

	t.Run("表に含まれるコードが固定メッセージに変換されること", func(t *testing.T) {
		t.Parallel()

		tests := map[int]string{
			200: "Everything worked as expected.",
			400: "Bad Request: the request was unacceptable, often due to a missing required parameter.",
			401: "Unauthorized: no valid API key provided.",
			402: "Request failed: the parameters were valid but the request failed.",
			403: "Forbidden: the API key lacks permission for this request.",
			404: "Not found: the requested resource does not exist.",
			409: "Conflict: the request conflicts with another request.",
			429: "Too many requests: rate limit exceeded.",
			500: "Server error on the provider's end.",
		}
		for code, want := range tests {
			// 同じコードでの2回の呼び出しが完全に同一の文字列を返すこと
			if got := statusMessage(code); got != want || got != statusMessage(code) {
				t.Errorf("statusMessage(%d) = %q, want %q", code, got, want)
			}
		}
	})

	t.Run("表に無いコードは汎用メッセージに変換されること", func(t *testing.T) {
		t.Parallel()

		if got := statusMessage(418); got != "Unexpected status code: 418" {
			t.Errorf("statusMessage(418) = %q, want %q", got, "Unexpected status code: 418")
		}
	})
}

// payTestClient は指定ハンドラのモックサーバーに向けたクライアントを生成する。
func payTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := New("test-api-key", WithEndpoint(server.URL))
	if err != nil {
		t.Fatalf("New()でエラーが発生: %v", err)
	}
	return c
}

// TestClientPay はPayメソッドを検証する。
func TestClientPay(t *testing.T) {
	t.Parallel()

	t.Run("200レスポンスで成功の結果が返ること", func(t *testing.T) {
		t.Parallel()

		c := payTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"transactionId":"tx-1"}`)
		})

		result := c.Pay(context.Background(), Request{
			CustomerMsisdn: "263771234567",
			Amount:         decimal.NewFromFloat(10.50),
		})

		if !result.Succeeded {
			t.Error("Succeeded = false, want true")
		}
		if result.StatusCode != http.StatusOK {
			t.Errorf("StatusCode = %d, want %d", result.StatusCode, http.StatusOK)
		}
		if result.Message != "Everything worked as expected." {
			t.Errorf("Message = %q, want %q", result.Message, "Everything worked as expected.")
		}
		if result.Body["transactionId"] != "tx-1" {
			t.Errorf("Body[transactionId] = %v, want %q", result.Body["transactionId"], "tx-1")
		}
	})

	t.Run("リクエストボディにデフォルト値とAPIキーが設定されること", func(t *testing.T) {
		t.Parallel()

		var gotAPIKey string
		var gotBody map[string]any
		c := payTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotAPIKey = r.Header.Get("X-API-KEY")
			if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
				t.Errorf("リクエストボディの解析に失敗: %v", err)
			}
			w.WriteHeader(http.StatusOK)
		})

		c.Pay(context.Background(), Request{
			CustomerMsisdn: "263771234567",
			Amount:         decimal.NewFromFloat(2.5),
		})

		if gotAPIKey != "test-api-key" {
			t.Errorf("X-API-KEY = %q, want %q", gotAPIKey, "test-api-key")
		}
		if gotBody["customerMsisdn"] != "263771234567" {
			t.Errorf("customerMsisdn = %v, want %q", gotBody["customerMsisdn"], "263771234567")
		}
		if gotBody["reason"] != "Payment" {
			t.Errorf("reason = %v, want %q", gotBody["reason"], "Payment")
		}
		if gotBody["currency"] != "USD" {
			t.Errorf("currency = %v, want %q", gotBody["currency"], "USD")
		}
		// 金額は引用符なしの数値として送信される
		if amount, ok := gotBody["amount"].(float64); !ok || amount != 2.5 {
			t.Errorf("amount = %v, want 2.5（数値）", gotBody["amount"])
		}
		ref, ok := gotBody["sourceReference"].(string)
		if !ok || len(ref) != 36 {
			t.Errorf("sourceReference = %v, want 36文字のUUID", gotBody["sourceReference"])
		}
	})

	t.Run("指定したSourceReferenceがそのまま送信されること", func(t *testing.T) {
		t.Parallel()

		var gotBody map[string]any
		c := payTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
				t.Errorf("リクエストボディの解析に失敗: %v", err)
			}
			w.WriteHeader(http.StatusOK)
		})

		c.Pay(context.Background(), Request{
			CustomerMsisdn:  "263771234567",
			Amount:          decimal.NewFromInt(1),
			SourceReference: "my-reference",
		})

		if gotBody["sourceReference"] != "my-reference" {
			t.Errorf("sourceReference = %v, want %q", gotBody["sourceReference"], "my-reference")
		}
	})

	t.Run("500レスポンスのmessageフィールドが説明文に付記されること", func(t *testing.T) {
		t.Parallel()

		c := payTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"message":"db down"}`)
		})

		result := c.Pay(context.Background(), Request{
			CustomerMsisdn: "263771234567",
			Amount:         decimal.NewFromInt(5),
		})

		if result.Succeeded {
			t.Error("Succeeded = true, want false")
		}
		if result.StatusCode != http.StatusInternalServerError {
			t.Errorf("StatusCode = %d, want %d", result.StatusCode, http.StatusInternalServerError)
		}
		want := "Server error on the provider's end. (db down)"
		if result.Message != want {
			t.Errorf("Message = %q, want %q", result.Message, want)
		}
	})

	t.Run("JSONでないボディはRawBodyに保持されること", func(t *testing.T) {
		t.Parallel()

		c := payTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, "missing amount")
		})

		result := c.Pay(context.Background(), Request{
			CustomerMsisdn: "263771234567",
			Amount:         decimal.NewFromInt(5),
		})

		if result.Body != nil {
			t.Errorf("Body = %v, want nil", result.Body)
		}
		if result.RawBody != "missing amount" {
			t.Errorf("RawBody = %q, want %q", result.RawBody, "missing amount")
		}
		if result.Message != "Bad Request: the request was unacceptable, often due to a missing required parameter." {
			t.Errorf("Message = %q が想定と異なる", result.Message)
		}
	})

	t.Run("表に無いステータスコードは汎用メッセージになること", func(t *testing.T) {
		t.Parallel()

		c := payTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})

		result := c.Pay(context.Background(), Request{
			CustomerMsisdn: "263771234567",
			Amount:         decimal.NewFromInt(5),
		})

		if result.Message != "Unexpected status code: 418" {
			t.Errorf("Message = %q, want %q", result.Message, "Unexpected status code: 418")
		}
	})

	t.Run("通信エラーの場合はStatusCodeが0の失敗結果が返ること", func(t *testing.T) {
		t.Parallel()

		// サーバーを即座に閉じて通信エラーを発生させる
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		server.Close()

		c, err := New("test-api-key", WithEndpoint(server.URL))
		if err != nil {
			t.Fatalf("New()でエラーが発生: %v", err)
		}

		result := c.Pay(context.Background(), Request{
			CustomerMsisdn: "263771234567",
			Amount:         decimal.NewFromInt(5),
		})

		if result.Succeeded {
			t.Error("Succeeded = true, want false")
		}
		if result.StatusCode != 0 {
			t.Errorf("StatusCode = %d, want 0", result.StatusCode)
		}
		if result.Message == "" {
			t.Error("Message が空文字列")
		}
	})
}
