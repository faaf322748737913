// Пакет payment — проверка подписанного callback'а платёжного шлюза.
// Внутренний протокол шлюза движок не знает: шлюз для нас — внешний
// подписант, мы только сверяем подпись.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Verifier проверяет подпись callback'а против исходного заказа.
type Verifier interface {
	Verify(orderID, paymentID, signature string, expectedAmount int64) bool
}

// HMACVerifier — HMAC-SHA256 над строкой "orderID|paymentID|amount"
// в hex, как подписывают шлюзы разряда Razorpay. Сумма входит в
// подписываемую строку, поэтому подделка суммы ломает подпись.
type HMACVerifier struct {
	secret []byte
}

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

func (v *HMACVerifier) Verify(orderID, paymentID, signature string, expectedAmount int64) bool {
	if orderID == "" || paymentID == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, v.secret)
	fmt.Fprintf(mac, "%s|%s|%d", orderID, paymentID, expectedAmount)
	expected := hex.EncodeToString(mac.Sum(nil))

	// Сравнение за постоянное время.
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign — парная подпись; нужна тестам и стендовым заглушкам шлюза.
func (v *HMACVerifier) Sign(orderID, paymentID string, amount int64) string {
	mac := hmac.New(sha256.New, v.secret)
	fmt.Fprintf(mac, "%s|%s|%d", orderID, paymentID, amount)
	return hex.EncodeToString(mac.Sum(nil))
}

// StaticVerifier — фейк для тестов: отвечает одним и тем же вердиктом.
type StaticVerifier struct {
	OK bool
}

func (v StaticVerifier) Verify(orderID, paymentID, signature string, expectedAmount int64) bool {
	return v.OK
}
