// マーケットプレイスサービスのエントリポイント。
// セッション認証、商品・購入希望・オファー管理、EcoCash決済開始、
// 試着画像合成のAPIを提供する。
package main

import (
	"log"
	"os"

	"github.com/nao1215/mirrormart/internal/marketplace"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server, err := marketplace.NewServer(port)
	if err != nil {
		log.Fatalf("マーケットプレイスサーバーの初期化に失敗: %v", err)
	}

	log.Printf("マーケットプレイスサービスを起動します: :%s", port)
	if err := server.Run(); err != nil {
		log.Fatalf("マーケットプレイスサービスの起動に失敗: %v", err)
	}
}
