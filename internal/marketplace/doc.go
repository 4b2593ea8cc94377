// Package marketplace はマーケットプレイスサービスの内部実装を提供する。
//
// セッションCookieによる認証、ロール別アクセスゲート、商品・購入希望・
// オファーの管理、EcoCashによる決済開始、試着画像の合成を担当する。
// データはSQLiteに永続化し、金額は文字列の10進表現で保持する。
package marketplace
