package handler

import "github.com/julienschmidt/httprouter"

const WebhookPath = "/payment/paymentWebhook"

func (h *PaymentHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/payment/initiateSession", h.InitiateSession)
	router.POST("/payment/execute-payment", h.ExecutePayment)
	router.POST("/payment/paymentStatus", h.PaymentStatus)
	router.POST("/payment/captureAmount", h.CaptureAmount)
	router.POST("/payment/releaseAmount", h.ReleaseAmount)
	router.POST(WebhookPath, h.PaymentWebhook)
}

// UntimedRoutes lists the webhook: once the saga claims a booking it runs
// to completion, and the response must report how it settled.
func (h *PaymentHandler) UntimedRoutes() []string {
	return []string{WebhookPath}
}
