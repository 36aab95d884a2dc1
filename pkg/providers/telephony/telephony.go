// Package telephony defines the telephony provider contract and a
// Twilio-backed reference implementation. Unlike the teacher's
// pkg/callmanager (which originates outbound calls), this receptionist
// never calls Provider.AnswerCall itself — inbound calls are already
// answered by the webhook layer returning TwiML; this contract exists for
// the in-call control operations (hangup, transfer, play audio) the
// orchestrator and tool dispatcher need mid-call.
package telephony

import (
	"context"
	"fmt"

	twilio "github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/agentplexus/receptionist/pkg/callerr"
)

// CallInfo is the subset of provider-reported call metadata the
// orchestrator and webhook layer need.
type CallInfo struct {
	CallSid string
	From    string
	To      string
	Status  string
}

// Provider is the telephony contract used mid-call by the orchestrator
// and the tool dispatcher's transfer_call handler.
type Provider interface {
	// HangupCall ends an in-progress call.
	HangupCall(ctx context.Context, callSid string) error

	// TransferCall bridges callSid to targetNumber (a `<Dial>`-equivalent
	// redirect), returning once the provider has accepted the request —
	// not once the transfer has been answered.
	TransferCall(ctx context.Context, callSid, targetNumber string) error

	// PlayAudio instructs the provider to play audio at audioURL into the
	// live call. Used for mid-call announcements outside the normal
	// TwiML response cycle (e.g. a transfer failure apology).
	PlayAudio(ctx context.Context, callSid, audioURL string) error

	// GetCallInfo fetches current call metadata from the provider.
	GetCallInfo(ctx context.Context, callSid string) (CallInfo, error)
}

// TwilioProvider implements Provider against the Twilio REST API.
type TwilioProvider struct {
	client     *twilio.RestClient
	publicBase string // base URL this service is reachable at, for redirect TwiML
}

// NewTwilioProvider builds a provider from Twilio account credentials.
func NewTwilioProvider(accountSID, authToken, publicBase string) *TwilioProvider {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioProvider{client: client, publicBase: publicBase}
}

func (p *TwilioProvider) HangupCall(ctx context.Context, callSid string) error {
	params := &openapi.UpdateCallParams{}
	params.SetStatus("completed")
	_, err := p.client.Api.UpdateCall(callSid, params)
	if err != nil {
		return &callerr.VendorError{Kind: callerr.VendorGeneric, Err: fmt.Errorf("telephony: hangup: %w", err)}
	}
	return nil
}

func (p *TwilioProvider) TransferCall(ctx context.Context, callSid, targetNumber string) error {
	twiml := fmt.Sprintf(`<Response><Dial>%s</Dial></Response>`, targetNumber)
	params := &openapi.UpdateCallParams{}
	params.SetTwiml(twiml)
	_, err := p.client.Api.UpdateCall(callSid, params)
	if err != nil {
		return &callerr.VendorError{Kind: callerr.VendorGeneric, Err: fmt.Errorf("telephony: transfer: %w", err)}
	}
	return nil
}

func (p *TwilioProvider) PlayAudio(ctx context.Context, callSid, audioURL string) error {
	twiml := fmt.Sprintf(`<Response><Play>%s</Play></Response>`, audioURL)
	params := &openapi.UpdateCallParams{}
	params.SetTwiml(twiml)
	_, err := p.client.Api.UpdateCall(callSid, params)
	if err != nil {
		return &callerr.VendorError{Kind: callerr.VendorGeneric, Err: fmt.Errorf("telephony: play audio: %w", err)}
	}
	return nil
}

func (p *TwilioProvider) GetCallInfo(ctx context.Context, callSid string) (CallInfo, error) {
	call, err := p.client.Api.FetchCall(callSid, &openapi.FetchCallParams{})
	if err != nil {
		return CallInfo{}, &callerr.VendorError{Kind: callerr.VendorGeneric, Err: fmt.Errorf("telephony: fetch call: %w", err)}
	}
	info := CallInfo{CallSid: callSid}
	if call.From != nil {
		info.From = *call.From
	}
	if call.To != nil {
		info.To = *call.To
	}
	if call.Status != nil {
		info.Status = string(*call.Status)
	}
	return info, nil
}

var _ Provider = (*TwilioProvider)(nil)
