package middleware

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims はgardenerが受け付けるトークンのクレーム。
type JWTClaims struct {
	jwt.RegisteredClaims
	// User はトークン所有者の表示名。デプロイ操作の監査ログに使用する。
	User string `json:"user,omitempty"`
}

// Verifier はトークン署名を検証する外部機能。
// validがfalseまたはerrが非nilの場合、トークンは検証に失敗したものとして扱う。
type Verifier interface {
	VerifyToken(token string) (valid bool, claims *JWTClaims, err error)
}

// JWTVerifier はHMAC共有鍵でJWTを検証するVerifier。
type JWTVerifier struct {
	// secret は署名検証用の共有鍵。
	secret []byte
	// issuer は期待する発行者。空の場合は検証しない。
	issuer string
}

// NewJWTVerifier は新しいJWTVerifierを生成する。
func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer}
}

// VerifyToken はトークンを検証してクレームを返す。
func (v *JWTVerifier) VerifyToken(token string) (bool, *JWTClaims, error) {
	if len(v.secret) == 0 {
		return false, nil, errors.New("JWT検証鍵が設定されていません")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &JWTClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(_ *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return false, nil, fmt.Errorf("トークンの検証に失敗: %w", err)
	}
	if !parsed.Valid {
		return false, nil, nil
	}
	return true, claims, nil
}

// GenerateJWT はHS256で署名したトークンを生成する。
// ローカル開発用のトークン発行コマンドとテストで使用する。
func GenerateJWT(secret, issuer, user string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		User: user,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, nil
}
