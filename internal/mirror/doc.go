// Package mirror はバーチャルミラー（試着画像合成）のクライアントを提供する。
//
// ユーザーの写真と商品画像の2枚とプロンプトを生成系バックエンドへ渡し、
// 合成された1枚の画像を受け取る。バックエンドの内部動作には関知しない。
package mirror
