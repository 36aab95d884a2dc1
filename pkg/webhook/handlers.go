package webhook

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/agentplexus/receptionist/pkg/model"
	"github.com/agentplexus/receptionist/pkg/notify"
	"github.com/agentplexus/receptionist/pkg/orchestrator"
	"github.com/agentplexus/receptionist/pkg/store"
)

// terminalCallStatuses are the provider call statuses that close out a
// Call row once observed on the /status webhook.
var terminalCallStatuses = map[string]bool{
	"completed": true, "failed": true, "busy": true, "no-answer": true, "canceled": true,
}

// transferFailureStatuses are the DialCallStatus values on
// /transfer-status that mean the live transfer never reached a human.
var transferFailureStatuses = map[string]bool{
	"busy": true, "no-answer": true, "failed": true, "canceled": true,
}

// Handler holds the dependencies every webhook endpoint needs: the call
// store (always, for direct row mutation), the orchestrator (to start
// sessions and steer language selection), and the notification service
// (to fan out the urgent callback a failed transfer creates).
type Handler struct {
	Config       Config
	Store        store.Store
	Orchestrator *orchestrator.Orchestrator
	Notifier     *notify.Service
	Logger       zerolog.Logger
}

// NewHandler builds a Handler. Notifier may be nil if no staff contact
// info is configured; a failed transfer's callback task is still
// persisted, it just isn't announced.
func NewHandler(cfg Config, st store.Store, orch *orchestrator.Orchestrator, notifier *notify.Service, logger zerolog.Logger) *Handler {
	return &Handler{Config: cfg, Store: st, Orchestrator: orch, Notifier: notifier, Logger: logger}
}

func writeXML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// withSignatureValidation wraps a handler body with the shared
// parse-form-then-validate-signature steps every endpoint performs
// before touching any state.
func (h *Handler) withSignatureValidation(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := parseForm(r, dst); err != nil {
		h.Logger.Warn().Err(err).Msg("webhook: malformed form body")
		http.Error(w, "malformed request", http.StatusBadRequest)
		return false
	}
	if err := validateSignature(h.Config, r, r.PostForm); err != nil {
		if sigErr, ok := err.(*SignatureError); ok {
			http.Error(w, sigErr.Msg, sigErr.Status)
		} else {
			http.Error(w, err.Error(), http.StatusUnauthorized)
		}
		return false
	}
	return true
}

// HandleVoice answers a fresh inbound call: creates the Call record
// (logging, not failing, on a DB error) and returns a bilingual greeting
// that gathers one DTMF digit for language selection.
func (h *Handler) HandleVoice(w http.ResponseWriter, r *http.Request) {
	var form voiceForm
	if !h.withSignatureValidation(w, r, &form) {
		return
	}
	ctx := r.Context()

	if _, err := h.Orchestrator.StartSession(ctx, form.CallSid, form.From); err != nil {
		h.Logger.Error().Err(err).Str("call_sid", form.CallSid).Msg("failed to start session (continuing call)")
	}

	actionURL := publicURL(h.Config, "/webhooks/twilio/language-select")
	body, err := bilingualGreetingTwiML(actionURL)
	if err != nil {
		h.Logger.Error().Err(err).Msg("failed to render greeting twiml")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeXML(w, body)
}

// HandleLanguageSelect applies the caller's DTMF digit to the session's
// language, acknowledges in that language, and hangs up — the
// Phase-0-style acknowledge-and-disconnect flow original_source ships,
// ahead of the full in-call conversation taking over via /voice's
// follow-on audio stream in a richer deployment.
func (h *Handler) HandleLanguageSelect(w http.ResponseWriter, r *http.Request) {
	var form languageSelectForm
	if !h.withSignatureValidation(w, r, &form) {
		return
	}

	spanish := form.Digits == "2"
	if session, ok := h.Orchestrator.Session(form.CallSid); ok {
		lang := "en"
		if spanish {
			lang = "es"
		}
		if err := session.StateM.SetLanguage(lang); err != nil {
			h.Logger.Warn().Err(err).Str("call_sid", form.CallSid).Msg("failed to set session language")
		}
	}

	body, err := languageAcknowledgementTwiML(spanish)
	if err != nil {
		h.Logger.Error().Err(err).Msg("failed to render language acknowledgement twiml")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeXML(w, body)
}

// HandleStatus records terminal call-status transitions (completed or
// otherwise) reported out-of-band by the provider. A DB failure here is
// logged, never surfaced — the provider webhook still sees 200.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	var form statusForm
	if !h.withSignatureValidation(w, r, &form) {
		return
	}
	ctx := r.Context()

	if terminalCallStatuses[form.CallStatus] {
		h.applyTerminalStatus(ctx, form)
	}

	body, _ := emptyTwiML()
	writeXML(w, body)
}

func (h *Handler) applyTerminalStatus(ctx context.Context, form statusForm) {
	call, err := h.Store.GetCall(ctx, form.CallSid)
	if err != nil {
		h.Logger.Error().Err(err).Str("call_sid", form.CallSid).Msg("status webhook: call not found")
		return
	}

	upd := store.CallUpdate{}
	if form.CallStatus == "completed" {
		status := model.CallStatusCompleted
		upd.Status = &status
		if form.CallDuration != "" {
			if secs, perr := strconv.Atoi(form.CallDuration); perr == nil {
				costs := make(map[string]float64, len(call.Costs)+1)
				for k, v := range call.Costs {
					costs[k] = v
				}
				costs["duration_sec"] = float64(secs)
				upd.Costs = costs
			}
		}
	} else {
		status := model.CallStatusFailed
		upd.Status = &status
	}

	if _, err := h.Store.UpdateCall(ctx, form.CallSid, upd); err != nil {
		h.Logger.Error().Err(err).Str("call_sid", form.CallSid).Msg("status webhook: failed to update call")
	}
}

// HandleRecording acknowledges a completed recording. Recording metadata
// is not yet consumed downstream; this mirrors original_source's
// explicit TODOs for future transcription wiring.
func (h *Handler) HandleRecording(w http.ResponseWriter, r *http.Request) {
	var form recordingForm
	if !h.withSignatureValidation(w, r, &form) {
		return
	}
	h.Logger.Info().
		Str("call_sid", form.CallSid).
		Str("recording_sid", form.RecordingSid).
		Str("recording_status", form.RecordingStatus).
		Msg("recording callback received")

	body, _ := emptyTwiML()
	writeXML(w, body)
}

// HandleTransferStatus reacts to the outcome of a live transfer Dial: on
// failure to reach a human, it opens an urgent callback task (there is
// no original_source counterpart for this endpoint; it is built directly
// to the behavior described for the transfer-failure path). On a
// completed transfer, it simply marks the call done.
func (h *Handler) HandleTransferStatus(w http.ResponseWriter, r *http.Request) {
	var form transferStatusForm
	if !h.withSignatureValidation(w, r, &form) {
		return
	}
	ctx := r.Context()

	switch {
	case transferFailureStatuses[form.DialCallStatus]:
		h.openUrgentCallbackAfterFailedTransfer(ctx, form.CallSid)
		body, err := transferFailureFallbackTwiML()
		if err != nil {
			h.Logger.Error().Err(err).Msg("failed to render transfer fallback twiml")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeXML(w, body)
		return

	case form.DialCallStatus == "completed":
		completed := model.CallStatusCompleted
		if _, err := h.Store.UpdateCall(ctx, form.CallSid, store.CallUpdate{Status: &completed}); err != nil {
			h.Logger.Error().Err(err).Str("call_sid", form.CallSid).Msg("transfer-status webhook: failed to mark call completed")
		}
	}

	body, _ := emptyTwiML()
	writeXML(w, body)
}

func (h *Handler) openUrgentCallbackAfterFailedTransfer(ctx context.Context, callSid string) {
	call, err := h.Store.GetCall(ctx, callSid)
	if err != nil {
		h.Logger.Error().Err(err).Str("call_sid", callSid).Msg("transfer-status webhook: call not found")
		return
	}

	notes := "Transfer failed - urgent callback"
	task := &model.CallbackTask{
		ID:             model.NewID(),
		CallID:         call.ID,
		Priority:       model.TaskPriorityUrgent,
		CallbackNumber: call.FromNumber,
		Notes:          &notes,
		Status:         model.TaskStatusPending,
	}
	if err := h.Store.CreateCallbackTask(ctx, task); err != nil {
		h.Logger.Error().Err(err).Str("call_sid", callSid).Msg("transfer-status webhook: failed to create callback task")
		return
	}
	if h.Notifier != nil {
		h.Notifier.NotifyCallbackCreated(ctx, task, call)
	}
}

func publicURL(cfg Config, path string) string {
	if cfg.PublicBaseURL == "" {
		return path
	}
	return trimRightSlash(cfg.PublicBaseURL) + path
}

func trimRightSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
