package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// CookieSigner はCookie値のHMAC-SHA256署名と検証を行う。
// セッションIDをそのままCookieに載せる代わりに
// "値.署名" 形式で保存することで、クライアント側での改竄を検出する。
// 署名鍵にはSESSION_SECRETを使用する。
type CookieSigner struct {
	secret []byte
}

// NewCookieSigner は指定の秘密鍵で署名するCookieSignerを生成する。
func NewCookieSigner(secret string) *CookieSigner {
	return &CookieSigner{secret: []byte(secret)}
}

// Sign は値に署名を付与した "値.署名(hex)" 形式の文字列を返す。
func (s *CookieSigner) Sign(value string) string {
	return value + "." + s.digest(value)
}

// Verify は署名済み文字列を検証し、元の値と検証結果を返す。
// 形式不正または署名不一致の場合は ("", false) を返す。
// 比較は定数時間で行う。
func (s *CookieSigner) Verify(signed string) (string, bool) {
	idx := strings.LastIndex(signed, ".")
	if idx <= 0 || idx == len(signed)-1 {
		return "", false
	}

	value := signed[:idx]
	signature := signed[idx+1:]

	if !hmac.Equal([]byte(signature), []byte(s.digest(value))) {
		return "", false
	}
	return value, true
}

func (s *CookieSigner) digest(value string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}
