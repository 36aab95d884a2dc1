package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// EmailProvider sends a formatted callback notification to staff.
// Two implementations are provided, mirroring the two styles named in
// spec.md §4.3: an HTTPS-JSON-POST style (SendGridProvider) and a
// cloud-SDK style (SESProvider).
type EmailProvider interface {
	SendEmail(ctx context.Context, to, subject, htmlBody, textBody string) (messageID string, err error)
}

// SendGridProvider posts a JSON envelope to SendGrid's v3 mail/send
// endpoint, grounded on original_source's SendGridProvider (an
// httpx.AsyncClient POST).
type SendGridProvider struct {
	apiKey string
	from   string
	http   *http.Client
}

// NewSendGridProvider builds a provider from an API key and verified
// sender address.
func NewSendGridProvider(apiKey, from string) *SendGridProvider {
	return &SendGridProvider{apiKey: apiKey, from: from, http: &http.Client{Timeout: 10 * time.Second}}
}

type sendGridPersonalization struct {
	To []sendGridAddress `json:"to"`
}

type sendGridAddress struct {
	Email string `json:"email"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridRequest struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendGridContent         `json:"content"`
}

func (p *SendGridProvider) SendEmail(ctx context.Context, to, subject, htmlBody, textBody string) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("notify: sendgrid api key not configured")
	}

	body := sendGridRequest{
		Personalizations: []sendGridPersonalization{{To: []sendGridAddress{{Email: to}}}},
		From:             sendGridAddress{Email: p.from},
		Subject:          subject,
		Content: []sendGridContent{
			{Type: "text/plain", Value: textBody},
			{Type: "text/html", Value: htmlBody},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("notify: marshal sendgrid request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.sendgrid.com/v3/mail/send", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("notify: build sendgrid request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("notify: sendgrid request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("notify: sendgrid returned status %d: %s", resp.StatusCode, string(data))
	}
	return resp.Header.Get("X-Message-Id"), nil
}

// SESProvider sends email via Amazon SES v2, grounded on original_source's
// SESProvider (a boto3 ses client call).
type SESProvider struct {
	client *sesv2.Client
	from   string
}

// NewSESProvider builds a provider using the default AWS credential chain.
func NewSESProvider(ctx context.Context, from string) (*SESProvider, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("notify: load aws config: %w", err)
	}
	return &SESProvider{client: sesv2.NewFromConfig(cfg), from: from}, nil
}

func (p *SESProvider) SendEmail(ctx context.Context, to, subject, htmlBody, textBody string) (string, error) {
	out, err := p.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &p.from,
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body: &types.Body{
					Html: &types.Content{Data: &htmlBody},
					Text: &types.Content{Data: &textBody},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("notify: ses send: %w", err)
	}
	if out.MessageId != nil {
		return *out.MessageId, nil
	}
	return "", nil
}

var (
	_ EmailProvider = (*SendGridProvider)(nil)
	_ EmailProvider = (*SESProvider)(nil)
)
