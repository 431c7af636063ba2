package models

// FlowState is a step of the login flow
type FlowState int

const (
	StateNoToken FlowState = iota
	StateAlreadyHasToken
	StateAwaitingLogin
	StateAwaitingCallback
	StateCodeReceived
	StateExchanging
	StateTokenAcquired
	StateExchangeFailed
)

var flowStateNames = map[FlowState]string{
	StateNoToken:          "NO_TOKEN",
	StateAlreadyHasToken:  "ALREADY_HAS_TOKEN",
	StateAwaitingLogin:    "AWAITING_LOGIN",
	StateAwaitingCallback: "AWAITING_CALLBACK",
	StateCodeReceived:     "CODE_RECEIVED",
	StateExchanging:       "EXCHANGING",
	StateTokenAcquired:    "TOKEN_ACQUIRED",
	StateExchangeFailed:   "EXCHANGE_FAILED",
}

func (s FlowState) String() string {
	if name, ok := flowStateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Terminal reports whether no further transition follows s
func (s FlowState) Terminal() bool {
	switch s {
	case StateAlreadyHasToken, StateTokenAcquired, StateExchangeFailed:
		return true
	}
	return false
}

// TokenResult is the outcome of one access token generation run
type TokenResult struct {
	State       FlowState
	Transitions []FlowState
	Message     string
	Err         error
	// RawResponse is the broker payload, set only when one was received
	RawResponse []byte
}

// Success reports whether the run ended in a successful terminal state
func (r *TokenResult) Success() bool {
	return r.State == StateTokenAcquired || r.State == StateAlreadyHasToken
}

// Transition moves the result to next and records the step
func (r *TokenResult) Transition(next FlowState) {
	r.State = next
	r.Transitions = append(r.Transitions, next)
}
