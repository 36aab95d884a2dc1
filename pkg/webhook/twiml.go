package webhook

import "github.com/twilio/twilio-go/twiml"

// bilingualGreetingTwiML renders the first response a caller hears: a
// bilingual prompt gathering one DTMF digit for language selection,
// grounded on original_source's generate_bilingual_greeting_twiml.
func bilingualGreetingTwiML(actionURL string) (string, error) {
	gather := &twiml.VoiceGather{
		Input:     "dtmf",
		NumDigits: "1",
		Action:    actionURL,
		Method:    "POST",
		InnerElements: []twiml.Element{
			&twiml.VoiceSay{
				Message:  "Hello, this is the automated assistant. For English, press 1 or stay on the line.",
				Language: "en-US",
			},
			&twiml.VoiceSay{
				Message:  "Hola, soy el asistente automatico. Para espanol, presione 2.",
				Language: "es-MX",
			},
		},
	}
	return twiml.Voice([]twiml.Element{gather})
}

// languageAcknowledgementTwiML acknowledges the caller's DTMF digit and
// hangs up, matching the Phase 0 acknowledgement behavior in
// original_source (digit 2 selects Spanish; anything else is English).
func languageAcknowledgementTwiML(spanish bool) (string, error) {
	lang := "en-US"
	ack := "Thank you. Please hold while we process your call."
	farewell := "Your call has been received. A representative will call you back shortly. Goodbye."
	if spanish {
		lang = "es-MX"
		ack = "Gracias. Un momento, por favor, mientras procesamos su llamada."
		farewell = "Su llamada ha sido recibida. Un representante le llamara pronto. Adios."
	}
	return twiml.Voice([]twiml.Element{
		&twiml.VoiceSay{Message: ack, Language: lang},
		&twiml.VoiceSay{Message: farewell, Language: lang},
		&twiml.VoiceHangup{},
	})
}

// transferFailureFallbackTwiML is spoken when a live transfer could not
// be completed (busy, no-answer, failed, canceled): a bilingual apology
// promising a callback within the hour, then hangup.
func transferFailureFallbackTwiML() (string, error) {
	return twiml.Voice([]twiml.Element{
		&twiml.VoiceSay{
			Message:  "I'm sorry, no one is available right now. We will call you back within 1 hour.",
			Language: "en-US",
		},
		&twiml.VoiceSay{
			Message:  "Lo siento, no hay nadie disponible en este momento. Le llamaremos dentro de 1 hora.",
			Language: "es-MX",
		},
		&twiml.VoiceHangup{},
	})
}

// emptyTwiML is the well-formed-but-empty response returned by webhooks
// that only record state and don't speak to the caller.
func emptyTwiML() (string, error) {
	return twiml.Voice(nil)
}
