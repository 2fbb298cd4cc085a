// ローカル検証用のJWTを発行するコマンド。
// ゲートウェイと同じJWT_SECRETで署名したトークンを標準出力に書き出す。
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/nao1215/gardener/pkg/middleware"
)

func main() {
	user := flag.String("user", "local", "トークンのsubject")
	issuer := flag.String("issuer", os.Getenv("JWT_ISSUER"), "トークンの発行者")
	ttl := flag.Duration("ttl", 24*time.Hour, "有効期間")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRETが設定されていません")
	}

	token, err := middleware.GenerateJWT(secret, *issuer, *user, *ttl)
	if err != nil {
		log.Fatalf("トークンの生成に失敗: %v", err)
	}
	fmt.Println(token)
}
