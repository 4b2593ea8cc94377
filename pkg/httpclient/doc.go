// Package httpclient は外部サービスとのHTTP通信を行うクライアントを提供する。
//
// 画像合成バックエンドなど、JSONベースの外部APIを呼び出す際に使用する。
// ベースURL・固定ヘッダー・タイムアウトをクライアント単位で設定し、
// 呼び出しパターンを統一する。
package httpclient
