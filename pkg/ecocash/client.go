package ecocash

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// defaultEndpoint はEcoCash Instant C2B決済（サンドボックス）のエンドポイント。
const defaultEndpoint = "https://developers.ecocash.co.zw/api/ecocash_pay/api/v2/payment/instant/c2b/sandbox"

// ErrAPIKeyRequired はAPIキー未設定のままクライアントを生成した場合のエラー。
// キーが無い状態でプロバイダを呼び出すことはない（フェイルクローズ）。
var ErrAPIKeyRequired = errors.New("ecocash: APIキーが設定されていません")

// Client はEcoCash決済APIのHTTPクライアント。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
	// endpoint は決済APIのURL。
	endpoint string
	// apiKey はX-API-KEYヘッダーに設定するAPIキー。
	apiKey string
}

// Option はClientの生成オプション。
type Option func(*Client)

// WithEndpoint は決済APIのURLを差し替える。テストで使用する。
func WithEndpoint(url string) Option {
	return func(c *Client) {
		c.endpoint = url
	}
}

// WithHTTPClient は内部のHTTPクライアントを差し替える。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New は新しいEcoCash決済クライアントを生成する。
// apiKeyが空の場合はErrAPIKeyRequiredを返す。
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		endpoint: defaultEndpoint,
		apiKey:   apiKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Request は1回の決済開始リクエストを表す。
// CustomerMsisdnとAmountの妥当性検証は呼び出し側の責務であり、
// このクライアントでは行わない。
type Request struct {
	// CustomerMsisdn は決済元となる顧客の電話番号。
	CustomerMsisdn string
	// Amount は決済金額。正の値であること（検証は呼び出し側）。
	Amount decimal.Decimal
	// Reason は決済理由。未指定の場合は "Payment"。
	Reason string
	// Currency は通貨コード。未指定の場合は "USD"。
	Currency string
	// SourceReference はプロバイダが再送を重複排除するための参照値。
	// 未指定の場合は新しいUUID v4を採番する。同一の論理的な決済の再送では
	// 呼び出し側が同じ値を再利用すること。
	SourceReference string
}

// Result は決済開始の結果を表す。決済試行ごとに1つ生成される。
// Succeededが真になるのはStatusCodeが200の場合のみ。
type Result struct {
	// Succeeded は決済開始が受理されたかどうか。
	Succeeded bool `json:"succeeded"`
	// StatusCode はプロバイダが返したHTTPステータスコード。
	// 通信エラーでレスポンスを受信できなかった場合のみ0になる。
	StatusCode int `json:"status_code"`
	// Message はステータスコードに対応する説明文。
	Message string `json:"message"`
	// Body はJSONとして解析できたレスポンスボディ。無い場合はnil。
	Body map[string]any `json:"body,omitempty"`
	// RawBody はJSONとして解析できなかった場合の生のボディ。
	// Bodyと区別することで「ボディが無い」と「解析できない」を混同しない。
	RawBody string `json:"raw_body,omitempty"`
}

// NewSourceReference は決済リクエストの参照値として使うUUID v4を生成する。
func NewSourceReference() string {
	return uuid.New().String()
}

// statusMessages はプロバイダのステータスコードに対応する固定メッセージ表。
// 表に無いコードはstatusMessage関数で汎用メッセージに落ちる。
var statusMessages = map[int]string{
	http.StatusOK:                  "Everything worked as expected.",
	http.StatusBadRequest:          "Bad Request: the request was unacceptable, often due to a missing required parameter.",
	http.StatusUnauthorized:        "Unauthorized: no valid API key provided.",
	http.StatusPaymentRequired:     "Request failed: the parameters were valid but the request failed.",
	http.StatusForbidden:           "Forbidden: the API key lacks permission for this request.",
	http.StatusNotFound:            "Not found: the requested resource does not exist.",
	http.StatusConflict:            "Conflict: the request conflicts with another request.",
	http.StatusTooManyRequests:     "Too many requests: rate limit exceeded.",
	http.StatusInternalServerError: "Server error on the provider's end.",
}

// statusMessage はステータスコードを説明文に変換する。
func statusMessage(code int) string {
	if msg, ok := statusMessages[code]; ok {
		return msg
	}
	return fmt.Sprintf("Unexpected status code: %d", code)
}

// payBody はプロバイダへ送信するJSONボディ。
// amountはプロバイダの仕様に合わせて引用符なしの数値として送信する。
type payBody struct {
	CustomerMsisdn  string      `json:"customerMsisdn"`
	Amount          json.Number `json:"amount"`
	Reason          string      `json:"reason"`
	Currency        string      `json:"currency"`
	SourceReference string      `json:"sourceReference"`
}

// Pay は決済開始リクエストを1回送信し、結果をResultへ正規化する。
// 通信エラー・ボディ解析失敗を含め、常にResultを返しエラーは返さない。
// リトライは行わない。リトライ制御とSourceReferenceの再利用判断は
// 呼び出し側の責務となる。
func (c *Client) Pay(ctx context.Context, req Request) Result {
	if req.Reason == "" {
		req.Reason = "Payment"
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}
	if req.SourceReference == "" {
		req.SourceReference = NewSourceReference()
	}

	body, err := json.Marshal(payBody{
		CustomerMsisdn:  req.CustomerMsisdn,
		Amount:          json.Number(req.Amount.String()),
		Reason:          req.Reason,
		Currency:        req.Currency,
		SourceReference: req.SourceReference,
	})
	if err != nil {
		return Result{Message: err.Error()}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{Message: err.Error()}
	}
	httpReq.Header.Set("X-API-KEY", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// レスポンスを受信できなかった場合のみStatusCodeが0になる
		return Result{Message: err.Error()}
	}
	defer resp.Body.Close()

	result := Result{
		Succeeded:  resp.StatusCode == http.StatusOK,
		StatusCode: resp.StatusCode,
		Message:    statusMessage(resp.StatusCode),
	}

	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
			var parsed map[string]any
			if err := json.Unmarshal(raw, &parsed); err == nil {
				result.Body = parsed
			} else {
				result.RawBody = string(raw)
			}
		} else {
			result.RawBody = string(raw)
		}
	}

	// ボディにmessageフィールドがあれば成否に関わらず説明文へ付記する
	if msg, ok := result.Body["message"].(string); ok && msg != "" {
		result.Message = fmt.Sprintf("%s (%s)", result.Message, msg)
	}

	return result
}
