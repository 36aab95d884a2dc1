package webhook

import "net/http"

// Mount registers every Twilio webhook endpoint on mux under the
// /webhooks/twilio prefix, matching original_source's router prefix.
func Mount(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("/webhooks/twilio/voice", h.HandleVoice)
	mux.HandleFunc("/webhooks/twilio/language-select", h.HandleLanguageSelect)
	mux.HandleFunc("/webhooks/twilio/status", h.HandleStatus)
	mux.HandleFunc("/webhooks/twilio/recording", h.HandleRecording)
	mux.HandleFunc("/webhooks/twilio/transfer-status", h.HandleTransferStatus)
}
