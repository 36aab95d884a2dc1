// Package notify implements staff notification fanout: SMS for urgent
// callbacks, email always, with priority-gated routing, a sliding-window
// SMS rate limit, and failure independence between the two channels.
// Grounded in full on original_source/vozbot/notifications/service.py.
package notify

import (
	"context"
	"fmt"

	twilio "github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/agentplexus/receptionist/pkg/model"
)

// Result is the outcome of one notification channel attempt.
type Result struct {
	Success   bool
	Provider  string
	MessageID string
	Error     string
}

// Config carries the staff contact points and provider credentials the
// service needs, matching the env vars the original reads
// (STAFF_PHONE/STAFF_EMAIL/TWILIO_*/EMAIL_PROVIDER/SMS_RATE_LIMIT/
// TRANSCRIPT_BASE_URL).
type Config struct {
	StaffPhone        string
	StaffEmail        string
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string
	SMSRateLimit      int
	TranscriptBaseURL string
}

// Service fans callback notifications out to SMS and email.
type Service struct {
	cfg           Config
	twilioClient  *twilio.RestClient
	emailProvider EmailProvider
	rateLimiter   *smsRateLimiter
}

// New builds a notification service. emailProvider may be nil, which is
// treated the same as "staff email not configured" at send time.
func New(cfg Config, emailProvider EmailProvider) *Service {
	limit := cfg.SMSRateLimit
	if limit <= 0 {
		limit = 10
	}
	var client *twilio.RestClient
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		client = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.TwilioAccountSID,
			Password: cfg.TwilioAuthToken,
		})
	}
	return &Service{
		cfg:           cfg,
		twilioClient:  client,
		emailProvider: emailProvider,
		rateLimiter:   newSMSRateLimiter(limit),
	}
}

// isUrgentPriority mirrors the original's _is_urgent_priority: anything
// HIGH or above triggers SMS.
func isUrgentPriority(p model.TaskPriority) bool {
	return p >= model.TaskPriorityHigh
}

// SendSMS sends message to the configured staff phone, subject to the
// sliding-window rate limit. bypassRateLimit exists for test/ops tooling
// that must push a message through regardless (mirrors the original's
// constructor-level override).
func (s *Service) SendSMS(ctx context.Context, message string, bypassRateLimit bool) Result {
	if !bypassRateLimit && !s.rateLimiter.CanSend() {
		return Result{
			Success:  false,
			Provider: "twilio",
			Error:    fmt.Sprintf("Rate limit exceeded. %d SMS remaining this hour.", s.rateLimiter.Remaining()),
		}
	}
	if s.cfg.TwilioPhoneNumber == "" {
		return Result{Success: false, Provider: "twilio", Error: "Twilio phone number not configured"}
	}
	if s.twilioClient == nil {
		return Result{Success: false, Provider: "twilio", Error: "Twilio credentials not configured"}
	}

	params := &openapi.CreateMessageParams{}
	params.SetBody(message)
	params.SetFrom(s.cfg.TwilioPhoneNumber)
	params.SetTo(s.cfg.StaffPhone)

	resp, err := s.twilioClient.Api.CreateMessage(params)
	if err != nil {
		return Result{Success: false, Provider: "twilio", Error: err.Error()}
	}
	if !bypassRateLimit {
		s.rateLimiter.RecordSend()
	}
	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	return Result{Success: true, Provider: "twilio", MessageID: sid}
}

// SendEmail delegates to the configured EmailProvider.
func (s *Service) SendEmail(ctx context.Context, to, subject, htmlBody, textBody string) Result {
	if s.emailProvider == nil {
		return Result{Success: false, Provider: "none", Error: "Staff email not configured"}
	}
	id, err := s.emailProvider.SendEmail(ctx, to, subject, htmlBody, textBody)
	if err != nil {
		return Result{Success: false, Provider: "email", Error: err.Error()}
	}
	return Result{Success: true, Provider: "email", MessageID: id}
}

// NotifyCallbackCreated is the main entry point, called once a
// CallbackTask has been persisted. It sends SMS only for HIGH/URGENT
// priority tasks (leaving a synthetic "skipped" success result for SMS
// otherwise), and always attempts email when a staff address is
// configured. The two channels are fully independent: an SMS failure
// never prevents the email attempt or vice versa.
func (s *Service) NotifyCallbackCreated(ctx context.Context, task *model.CallbackTask, call *model.Call) map[string]Result {
	results := make(map[string]Result, 2)

	if isUrgentPriority(task.Priority) && s.cfg.StaffPhone != "" {
		results["sms"] = s.SendSMS(ctx, formatSMSMessage(task, call), false)
	} else {
		results["sms"] = Result{Success: true, Provider: "none", Error: "Skipped - not urgent priority"}
	}

	if s.cfg.StaffEmail != "" {
		subject := formatEmailSubject(task)
		html, text := formatEmailBody(task, call, s.cfg.TranscriptBaseURL)
		results["email"] = s.SendEmail(ctx, s.cfg.StaffEmail, subject, html, text)
	} else {
		results["email"] = Result{Success: false, Provider: "none", Error: "Staff email not configured"}
	}

	return results
}
