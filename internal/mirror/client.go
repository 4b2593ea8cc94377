package mirror

import (
	"context"
	"fmt"

	"github.com/nao1215/mirrormart/pkg/httpclient"
)

// DefaultPrompt は試着合成に使用する標準プロンプト。
const DefaultPrompt = "A photorealistic image of the person from the first image wearing the cloth from the second image. Keep the pose and lighting consistent."

// model は画像合成に使用するモデル名。
const model = "gemini-2.5-flash-image"

// Client は画像合成バックエンドのクライアント。
type Client struct {
	// httpClient は合成APIへのHTTPクライアント。
	httpClient *httpclient.Client
}

// New は新しい試着合成クライアントを生成する。
// baseURLには合成APIのベースURL、apiKeyにはAPIキーを指定する。
func New(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: httpclient.New(baseURL, httpclient.WithHeader("x-goog-api-key", apiKey)),
	}
}

// ComposeInput は試着合成の入力。画像はいずれもBase64エンコード済みの文字列。
type ComposeInput struct {
	// PersonImage はユーザーの写真。
	PersonImage string
	// PersonMimeType はユーザー写真のMIMEタイプ。未指定の場合はimage/png。
	PersonMimeType string
	// ProductImage は商品の画像。
	ProductImage string
	// ProductMimeType は商品画像のMIMEタイプ。未指定の場合はimage/png。
	ProductMimeType string
	// Prompt は合成指示。未指定の場合はDefaultPrompt。
	Prompt string
}

// inlineData はバックエンドAPIのインライン画像データ。
type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// part はコンテンツの1要素。テキストか画像のいずれかを持つ。
type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

// content はパーツの集合。
type content struct {
	Parts []part `json:"parts"`
}

// generateRequest は画像合成APIへのリクエストボディ。
type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

// generationConfig は合成の出力設定。
type generationConfig struct {
	ResponseModalities []string    `json:"responseModalities"`
	ImageConfig        imageConfig `json:"imageConfig"`
}

// imageConfig は出力画像の設定。
type imageConfig struct {
	AspectRatio string `json:"aspectRatio"`
}

// generateResponse は画像合成APIのレスポンスボディ。
type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Compose は2枚の画像とプロンプトから試着画像を合成する。
// 合成された画像のBase64文字列を返す。バックエンドのエラー・
// 画像データ欠落はエラーとして返す。
func (c *Client) Compose(ctx context.Context, in ComposeInput) (string, error) {
	prompt := in.Prompt
	if prompt == "" {
		prompt = DefaultPrompt
	}
	personMime := in.PersonMimeType
	if personMime == "" {
		personMime = "image/png"
	}
	productMime := in.ProductMimeType
	if productMime == "" {
		productMime = "image/png"
	}

	req := generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: prompt},
				{InlineData: &inlineData{MimeType: personMime, Data: in.PersonImage}},
				{InlineData: &inlineData{MimeType: productMime, Data: in.ProductImage}},
			},
		}},
		GenerationConfig: generationConfig{
			// 画像のみのレスポンスを強制する
			ResponseModalities: []string{"IMAGE"},
			// 縦長（ポートレート）で出力する
			ImageConfig: imageConfig{AspectRatio: "3:4"},
		},
	}

	var resp generateResponse
	path := fmt.Sprintf("/v1beta/models/%s:generateContent", model)
	if err := c.httpClient.PostJSON(ctx, path, req, &resp); err != nil {
		return "", fmt.Errorf("画像合成APIの呼び出しに失敗: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("画像合成APIが画像データを返さなかった")
	}
	result := resp.Candidates[0].Content.Parts[0].InlineData
	if result == nil || result.Data == "" {
		return "", fmt.Errorf("画像合成APIが画像データを返さなかった")
	}
	return result.Data, nil
}
