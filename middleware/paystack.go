package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"github.com/DelightGeorge/Ikeya-Backend/payments/paystack"
	"github.com/gin-gonic/gin"
)

const ContextRawBody = "raw_body"

// PaystackWebhookAuth verifies the HMAC-SHA512 signature Paystack sends with
// every webhook. The verified body is stored under ContextRawBody.
func PaystackWebhookAuth(secretKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "failed to read webhook body"})
			return
		}

		if !paystack.ValidSignature(secretKey, body, c.GetHeader(paystack.SignatureHeader)) {
			slog.Warn("Rejected Paystack webhook", "ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook signature"})
			return
		}

		c.Set(ContextRawBody, body)
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}
