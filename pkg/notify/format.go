package notify

import (
	"fmt"
	"strings"

	"github.com/agentplexus/receptionist/pkg/model"
)

var smsPriorityLabels = map[model.TaskPriority]string{
	model.TaskPriorityUrgent: "URGENT (P0)",
	model.TaskPriorityHigh:   "HIGH (P1)",
	model.TaskPriorityNormal: "NORMAL (P2)",
	model.TaskPriorityLow:    "LOW (P3)",
}

var subjectPriorityLabels = map[model.TaskPriority]string{
	model.TaskPriorityUrgent: "[URGENT]",
	model.TaskPriorityHigh:   "[HIGH]",
	model.TaskPriorityNormal: "[NORMAL]",
	model.TaskPriorityLow:    "[LOW]",
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func callerName(task *model.CallbackTask) string {
	if task.Name != nil && *task.Name != "" {
		return *task.Name
	}
	return "Unknown"
}

func callerNameForSubject(task *model.CallbackTask) string {
	if task.Name != nil && *task.Name != "" {
		return *task.Name
	}
	return "Unknown Caller"
}

// formatSMSMessage mirrors the original's _format_sms_message: a single
// urgent-callback line naming the caller, their number, and the intent.
func formatSMSMessage(task *model.CallbackTask, call *model.Call) string {
	intent := "Callback requested"
	if call != nil && call.Intent != nil && *call.Intent != "" {
		intent = *call.Intent
	}
	return fmt.Sprintf("New urgent callback: %s %s - %s", callerName(task), task.CallbackNumber, intent)
}

// formatEmailSubject mirrors the original's _format_email_subject.
func formatEmailSubject(task *model.CallbackTask) string {
	label := subjectPriorityLabels[task.Priority]
	return strings.TrimSpace(fmt.Sprintf("%s New Callback: %s", label, callerNameForSubject(task)))
}

func languageDisplay(call *model.Call) string {
	if call == nil || call.Language == nil {
		return ""
	}
	switch *call.Language {
	case model.LanguageEN:
		return "English"
	case model.LanguageES:
		return "Spanish"
	default:
		return string(*call.Language)
	}
}

// formatEmailBody mirrors the original's _format_email_body, returning
// (html, text) bodies summarizing the callback for office staff.
func formatEmailBody(task *model.CallbackTask, call *model.Call, transcriptBaseURL string) (html, text string) {
	priorityLabel := smsPriorityLabels[task.Priority]
	name := callerName(task)
	bestTime := orDefault(deref(task.BestTimeWindow), "Any time")
	notes := orDefault(deref(task.Notes), "No additional notes")
	lang := languageDisplay(call)

	var intentBlock, summaryBlock string
	var intentText, summaryText string
	if call != nil && call.Intent != nil && *call.Intent != "" {
		intentBlock = fmt.Sprintf(`<div class="field"><span class="label">Intent:</span> <span class="value">%s</span></div>`, *call.Intent)
		intentText = fmt.Sprintf("Intent: %s\n", *call.Intent)
	}
	if call != nil && call.Summary != nil && *call.Summary != "" {
		summaryBlock = fmt.Sprintf(`<div class="summary"><span class="label">Call Summary:</span> %s</div>`, *call.Summary)
		summaryText = fmt.Sprintf("Call Summary: %s\n", *call.Summary)
	}

	transcriptLink := ""
	if transcriptBaseURL != "" && call != nil {
		transcriptLink = fmt.Sprintf("%s/%s", strings.TrimRight(transcriptBaseURL, "/"), call.ID)
	}

	html = fmt.Sprintf(`<html>
<head>
<style>
.header { font-weight: bold; font-size: 16px; }
.content { font-family: sans-serif; }
.field { margin: 4px 0; }
.label { font-weight: bold; }
.value { }
.priority-urgent { color: #b00020; }
.priority-high { color: #d35400; }
.summary { margin-top: 8px; }
.transcript-link { margin-top: 12px; }
.btn { display: inline-block; padding: 8px 12px; background: #2d6cdf; color: #fff; text-decoration: none; border-radius: 4px; }
</style>
</head>
<body class="content">
<div class="header">New Callback Request</div>
<div class="field"><span class="label">Priority:</span> <span class="value">%s</span></div>
<div class="field"><span class="label">Caller Name:</span> <span class="value">%s</span></div>
<div class="field"><span class="label">Callback Number:</span> <span class="value"><a href="tel:%s">%s</a></span></div>
<div class="field"><span class="label">Best Time to Call:</span> <span class="value">%s</span></div>
<div class="field"><span class="label">Language:</span> <span class="value">%s</span></div>
%s
%s
<div class="field"><span class="label">Notes:</span> <span class="value">%s</span></div>
<div class="transcript-link"><a class="btn" href="%s">View Transcript</a></div>
</body>
</html>`,
		priorityLabel, name, task.CallbackNumber, task.CallbackNumber, bestTime, lang, intentBlock, summaryBlock, notes, transcriptLink)

	text = fmt.Sprintf("New Callback Request\n====================\n\nPriority: %s\nCaller Name: %s\nCallback Number: %s\nBest Time to Call: %s\nLanguage: %s\n%s%sNotes: %s\n\nTranscript: %s\n",
		priorityLabel, name, task.CallbackNumber, bestTime, lang, intentText, summaryText, notes, transcriptLink)

	return html, text
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
