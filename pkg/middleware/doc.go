// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// セッションCookieの検証とロールベースのアクセスゲート、パニックリカバリ、
// CORS設定など、マーケットプレイス全体で共通して使用するミドルウェアを含む。
// ページ系ルートはSessionGate（リダイレクト）で、JSON APIはSessionAuth（401）で
// 保護する。
package middleware
