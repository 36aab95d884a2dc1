package webhook

import (
	"net/http"

	"github.com/gorilla/schema"
)

var formDecoder = newFormDecoder()

func newFormDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

type voiceForm struct {
	CallSid    string `schema:"CallSid"`
	From       string `schema:"From"`
	To         string `schema:"To"`
	CallStatus string `schema:"CallStatus"`
	Direction  string `schema:"Direction"`
}

type languageSelectForm struct {
	CallSid string `schema:"CallSid"`
	Digits  string `schema:"Digits"`
}

type statusForm struct {
	CallSid      string `schema:"CallSid"`
	CallStatus   string `schema:"CallStatus"`
	CallDuration string `schema:"CallDuration"`
	RecordingUrl string `schema:"RecordingUrl"`
}

type recordingForm struct {
	CallSid           string `schema:"CallSid"`
	RecordingSid      string `schema:"RecordingSid"`
	RecordingUrl      string `schema:"RecordingUrl"`
	RecordingStatus   string `schema:"RecordingStatus"`
	RecordingDuration string `schema:"RecordingDuration"`
}

type transferStatusForm struct {
	CallSid         string `schema:"CallSid"`
	DialCallStatus  string `schema:"DialCallStatus"`
	Called          string `schema:"Called"`
	DialCallDuration string `schema:"DialCallDuration"`
}

// parseForm reads and decodes an application/x-www-form-urlencoded POST
// body into dst, the shape every Twilio webhook endpoint is posted as.
func parseForm(r *http.Request, dst any) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	return formDecoder.Decode(dst, r.PostForm)
}
