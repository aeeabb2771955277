// internal/handler/webhook_handler.go
package handler

import (
	"log"
	"net/http"

	"github.com/glowdesk/messaging-backend/internal/service"
)

// WebhookHandler ingests the provider's delivery-status callbacks.
type WebhookHandler struct {
	Reconciler *service.Reconciler
}

// SMSStatus handles the form-encoded status callback. It answers 200 no
// matter what happens internally: a non-2xx here makes the provider retry,
// and a retry storm on a transient internal error helps nobody.
func (h *WebhookHandler) SMSStatus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		log.Println("[Webhook] failed to parse callback form:", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	cb := service.StatusCallback{
		ProviderSID:  r.PostFormValue("MessageSid"),
		Status:       r.PostFormValue("MessageStatus"),
		ErrorCode:    r.PostFormValue("ErrorCode"),
		ErrorMessage: r.PostFormValue("ErrorMessage"),
	}

	if cb.ProviderSID == "" {
		log.Println("[Webhook] callback without MessageSid, ignoring")
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.Reconciler.Process(r.Context(), cb); err != nil {
		log.Printf("[Webhook] failed to process callback for sid %s: %v", cb.ProviderSID, err)
	}

	w.WriteHeader(http.StatusOK)
}
