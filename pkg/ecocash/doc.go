// Package ecocash はEcoCash決済プロバイダのInstant C2B APIクライアントを提供する。
//
// 決済開始の1リクエストを送信し、プロバイダのHTTPステータスコードと
// レスポンスボディを型付きのResultへ正規化する。通信エラーやボディの
// 解析失敗を含め、呼び出し側へ例外を伝播させることはない。
package ecocash
