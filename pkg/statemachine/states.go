// Package statemachine implements the call-flow state machine that drives
// a single call from pickup to wrap-up: an allow-listed transition table,
// per-state timeouts with a privileged timeout target, and bilingual
// prompts for each state.
package statemachine

// CallState is a step in the call flow.
type CallState string

const (
	StateInit                  CallState = "init"
	StateGreet                 CallState = "greet"
	StateLanguageSelect        CallState = "language_select"
	StateClassifyCustomerType  CallState = "classify_customer_type"
	StateIntentDiscovery       CallState = "intent_discovery"
	StateInfoCollection        CallState = "info_collection"
	StateConfirmation          CallState = "confirmation"
	StateCreateCallbackTask    CallState = "create_callback_task"
	StateTransferOrWrapup      CallState = "transfer_or_wrapup"
	StateEnd                   CallState = "end"
	StateError                 CallState = "error"
	StateTimeout               CallState = "timeout"
)

// prompts holds the bilingual prompt pair for a state.
type prompts struct {
	en string
	es string
}

func (p prompts) forLanguage(lang string) string {
	if lang == "es" {
		return p.es
	}
	return p.en
}

type stateConfig struct {
	validTransitions []CallState
	timeoutSeconds   float64
	timeoutTarget    CallState
	prompts          prompts
}

var stateConfigs = map[CallState]stateConfig{
	StateInit: {
		validTransitions: []CallState{StateGreet, StateError},
		timeoutSeconds:   5.0,
		timeoutTarget:    StateGreet,
		prompts:          prompts{en: "", es: ""},
	},
	StateGreet: {
		validTransitions: []CallState{StateLanguageSelect, StateError},
		timeoutSeconds:   10.0,
		timeoutTarget:    StateLanguageSelect,
		prompts: prompts{
			en: "Hello! Thank you for calling. I'm an AI assistant and I'll help connect you with the right person.",
			es: "Hola! Gracias por llamar. Soy un asistente de inteligencia artificial y le ayudare a conectarse con la persona adecuada.",
		},
	},
	StateLanguageSelect: {
		validTransitions: []CallState{StateClassifyCustomerType, StateGreet, StateError},
		timeoutSeconds:   15.0,
		timeoutTarget:    StateClassifyCustomerType, // default to English on timeout
		prompts: prompts{
			en: "Would you like to continue in English or Spanish? Para espanol, diga 'espanol'.",
			es: "Desea continuar en espanol o ingles? For English, say 'English'.",
		},
	},
	StateClassifyCustomerType: {
		validTransitions: []CallState{StateIntentDiscovery, StateLanguageSelect, StateError},
		timeoutSeconds:   20.0,
		timeoutTarget:    StateIntentDiscovery,
		prompts: prompts{
			en: "Are you an existing customer, or is this your first time calling us?",
			es: "Es usted un cliente existente, o es la primera vez que nos llama?",
		},
	},
	StateIntentDiscovery: {
		validTransitions: []CallState{
			StateInfoCollection,
			StateConfirmation,
			StateTransferOrWrapup,
			StateClassifyCustomerType,
			StateError,
		},
		timeoutSeconds: 60.0,
		timeoutTarget:  StateTimeout,
		prompts: prompts{
			en: "How can I help you today? Please tell me what you're calling about.",
			es: "Como puedo ayudarle hoy? Por favor digame el motivo de su llamada.",
		},
	},
	StateInfoCollection: {
		validTransitions: []CallState{StateConfirmation, StateIntentDiscovery, StateError},
		timeoutSeconds:   60.0,
		timeoutTarget:    StateTimeout,
		prompts: prompts{
			en: "I'd like to collect some information so we can assist you better.",
			es: "Me gustaria recopilar alguna informacion para poder asistirle mejor.",
		},
	},
	StateConfirmation: {
		validTransitions: []CallState{
			StateCreateCallbackTask,
			StateTransferOrWrapup,
			StateInfoCollection,
			StateError,
		},
		timeoutSeconds: 30.0,
		timeoutTarget:  StateCreateCallbackTask,
		prompts: prompts{
			en: "Let me confirm the information I have. Is this correct?",
			es: "Permitame confirmar la informacion que tengo. Es correcto?",
		},
	},
	StateCreateCallbackTask: {
		validTransitions: []CallState{StateTransferOrWrapup, StateEnd, StateError},
		timeoutSeconds:   10.0,
		timeoutTarget:    StateEnd,
		prompts: prompts{
			en: "I'm creating a callback request. Someone will call you back shortly.",
			es: "Estoy creando una solicitud de devolucion de llamada. Alguien le llamara pronto.",
		},
	},
	StateTransferOrWrapup: {
		validTransitions: []CallState{StateEnd, StateError},
		timeoutSeconds:   30.0,
		timeoutTarget:    StateEnd,
		prompts: prompts{
			en: "I'm transferring you now. Please hold.",
			es: "Le estoy transfiriendo ahora. Por favor espere.",
		},
	},
	StateEnd: {
		validTransitions: nil, // terminal
		timeoutSeconds:   0.0,
		prompts: prompts{
			en: "Thank you for calling. Have a great day!",
			es: "Gracias por llamar. Que tenga un buen dia!",
		},
	},
	StateError: {
		validTransitions: []CallState{StateTransferOrWrapup, StateEnd},
		timeoutSeconds:   10.0,
		timeoutTarget:    StateEnd,
		prompts: prompts{
			en: "I apologize, but I encountered an issue. Let me connect you with someone who can help.",
			es: "Disculpe, pero encontre un problema. Permitame conectarle con alguien que pueda ayudarle.",
		},
	},
	StateTimeout: {
		validTransitions: []CallState{StateEnd, StateError},
		timeoutSeconds:   10.0,
		timeoutTarget:    StateEnd,
		prompts: prompts{
			en: "I haven't heard from you. If you need more time, please let me know.",
			es: "No le he escuchado. Si necesita mas tiempo, por favor hagamelo saber.",
		},
	},
}

// InvalidTransitionError reports a rejected state transition.
type InvalidTransitionError struct {
	From CallState
	To   CallState
}

func (e *InvalidTransitionError) Error() string {
	return "invalid transition from " + string(e.From) + " to " + string(e.To)
}

// Transition records one step taken by a StateMachine, for history/debugging.
type Transition struct {
	From CallState
	To   CallState
}

// StateMachine drives a single call through its states. It is not
// goroutine-safe; callers that share one across goroutines must guard it
// themselves (the session orchestrator owns one per call and only ever
// touches it from that call's single cooperative turn loop).
type StateMachine struct {
	callID  string
	current CallState
	language string
	history []Transition
	context map[string]any
}

// New creates a state machine for callID, starting in StateInit.
func New(callID string) *StateMachine {
	return &StateMachine{
		callID:   callID,
		current:  StateInit,
		language: "en",
		context:  map[string]any{},
	}
}

// CallID returns the id of the call this machine is managing.
func (m *StateMachine) CallID() string { return m.callID }

// Current returns the current state.
func (m *StateMachine) Current() CallState { return m.current }

// Language returns the selected language code ("en" or "es").
func (m *StateMachine) Language() string { return m.language }

// SetLanguage sets the call's language. Only "en" and "es" are accepted.
func (m *StateMachine) SetLanguage(lang string) error {
	if lang != "en" && lang != "es" {
		return &InvalidLanguageError{Lang: lang}
	}
	m.language = lang
	return nil
}

// InvalidLanguageError is returned by SetLanguage for unsupported codes.
type InvalidLanguageError struct{ Lang string }

func (e *InvalidLanguageError) Error() string {
	return "invalid language: " + e.Lang + ", must be 'en' or 'es'"
}

// History returns a copy of the transitions taken so far.
func (m *StateMachine) History() []Transition {
	out := make([]Transition, len(m.history))
	copy(out, m.history)
	return out
}

// Context is the mutable bag of state-specific data (e.g. collected
// customer_type, intent) threaded through prompt rebuilding.
func (m *StateMachine) Context() map[string]any { return m.context }

// CanTransitionTo reports whether target is reachable from the current state.
func (m *StateMachine) CanTransitionTo(target CallState) bool {
	cfg, ok := stateConfigs[m.current]
	if !ok {
		return false
	}
	for _, s := range cfg.validTransitions {
		if s == target {
			return true
		}
	}
	return false
}

// ValidTransitions returns the states reachable from the current one.
func (m *StateMachine) ValidTransitions() []CallState {
	cfg, ok := stateConfigs[m.current]
	if !ok {
		return nil
	}
	out := make([]CallState, len(cfg.validTransitions))
	copy(out, cfg.validTransitions)
	return out
}

// TransitionTo moves to target, enforcing the allow-list. It returns
// *InvalidTransitionError (use errors.As) if target is not reachable.
func (m *StateMachine) TransitionTo(target CallState) error {
	if !m.CanTransitionTo(target) {
		return &InvalidTransitionError{From: m.current, To: target}
	}
	m.history = append(m.history, Transition{From: m.current, To: target})
	m.current = target
	return nil
}

// CurrentPrompt returns the prompt for the current state in the selected
// language, falling back to English if the language has no prompt text.
func (m *StateMachine) CurrentPrompt() string {
	cfg, ok := stateConfigs[m.current]
	if !ok {
		return ""
	}
	if s := cfg.prompts.forLanguage(m.language); s != "" || m.language == "en" {
		return s
	}
	return cfg.prompts.en
}

// Timeout returns the timeout, in seconds, for the current state.
func (m *StateMachine) Timeout() float64 {
	cfg, ok := stateConfigs[m.current]
	if !ok {
		return 30.0
	}
	return cfg.timeoutSeconds
}

// HandleTimeout forces a transition to the current state's timeout target,
// bypassing the allow-list — timeouts are a privileged transition by design.
func (m *StateMachine) HandleTimeout() CallState {
	cfg, ok := stateConfigs[m.current]
	if !ok {
		m.history = append(m.history, Transition{From: m.current, To: StateError})
		m.current = StateError
		return StateError
	}
	target := cfg.timeoutTarget
	m.history = append(m.history, Transition{From: m.current, To: target})
	m.current = target
	return target
}

// IsTerminal reports whether the current state has no valid transitions.
func (m *StateMachine) IsTerminal() bool {
	return len(m.ValidTransitions()) == 0
}

// Reset returns the machine to StateInit, clearing history, context, and
// language selection.
func (m *StateMachine) Reset() {
	m.current = StateInit
	m.history = nil
	m.context = map[string]any{}
	m.language = "en"
}

// ToMap serializes the machine for persistence.
func (m *StateMachine) ToMap() map[string]any {
	hist := make([][2]CallState, len(m.history))
	for i, t := range m.history {
		hist[i] = [2]CallState{t.From, t.To}
	}
	return map[string]any{
		"call_id":       m.callID,
		"current_state": m.current,
		"language":      m.language,
		"history":       hist,
		"context":       m.context,
	}
}

// FromSnapshot restores a StateMachine previously produced by ToMap.
func FromSnapshot(callID string, current CallState, language string, history []Transition, context map[string]any) *StateMachine {
	if context == nil {
		context = map[string]any{}
	}
	return &StateMachine{
		callID:   callID,
		current:  current,
		language: language,
		history:  history,
		context:  context,
	}
}
