package tools

import "strings"

// sensitiveFieldPatterns is the case-insensitive substring denylist
// applied to the intent, summary, notes, name, and message tool
// arguments (other free-text arguments are not checked), lifted verbatim from
// original_source/vozbot/agent/tools/schemas.py's SENSITIVE_FIELD_PATTERNS.
var sensitiveFieldPatterns = []string{
	"ssn",
	"social_security",
	"dob",
	"date_of_birth",
	"birth_date",
	"birthdate",
	"credit_card",
	"card_number",
	"cvv",
	"expiry",
	"payment",
	"bank_account",
	"routing_number",
	"pin",
	"password",
}

// validateNoSensitiveData rejects value if it contains any denylisted
// substring, case-insensitive. fieldName is included in the error so the
// LLM (and a human debugging a rejected call) can see which argument
// tripped the check.
func validateNoSensitiveData(fieldName, value string) error {
	lower := strings.ToLower(value)
	for _, pattern := range sensitiveFieldPatterns {
		if strings.Contains(lower, pattern) {
			return &SensitiveDataError{Field: fieldName, Pattern: pattern}
		}
	}
	return nil
}

// SensitiveDataError is returned when a tool argument contains text
// matching the sensitive-data denylist.
type SensitiveDataError struct {
	Field   string
	Pattern string
}

func (e *SensitiveDataError) Error() string {
	return "field " + e.Field + " appears to contain sensitive data (matched pattern \"" + e.Pattern + "\")"
}

// validatePhoneNumber mirrors the original's loose phone-format check: an
// optional leading '+', then only digits, dashes, and spaces.
func validatePhoneNumber(fieldName, value string) error {
	v := strings.TrimPrefix(value, "+")
	for _, r := range v {
		if !(r >= '0' && r <= '9') && r != '-' && r != ' ' {
			return &ClientInputError{Field: fieldName, Msg: "must contain only digits, dashes, and spaces (with an optional leading +)"}
		}
	}
	if v == "" {
		return &ClientInputError{Field: fieldName, Msg: "must not be empty"}
	}
	return nil
}

// ClientInputError reports a malformed tool argument that is not a
// sensitive-data violation (e.g. a badly formatted phone number, or a
// required field left empty). Like SensitiveDataError it is never
// retried by the orchestrator.
type ClientInputError struct {
	Field string
	Msg   string
}

func (e *ClientInputError) Error() string {
	return "field " + e.Field + ": " + e.Msg
}
