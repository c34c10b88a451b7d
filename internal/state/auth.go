package state

import (
	"encoding/json"
	"fmt"

	"reqdesk/internal/domain"
)

// Auth operations.
const (
	OpSignIn       = "signIn"
	OpSignUp       = "signUp"
	OpVerifyOTP    = "verifyOtp"
	OpResendOTP    = "resendOtp"
	OpSignedInUser = "signedInUser"
	OpSignOut      = "signOut"
)

// Session is what a successful sign-in yields.
type Session struct {
	Account domain.Account
	Token   string
}

// AuthSlice is the "auth" slice: who is signed in, with which token, and the
// email awaiting OTP verification after sign-up.
type AuthSlice struct {
	Account      *domain.Account `json:"account,omitempty"`
	Token        string          `json:"token,omitempty"`
	PendingEmail string          `json:"pending_email,omitempty"`
	Error        string          `json:"error,omitempty"`

	status map[string]Status
}

func NewAuthSlice() *AuthSlice {
	return &AuthSlice{status: make(map[string]Status)}
}

// Status returns the status of op; idle when it never ran.
func (s *AuthSlice) Status(op string) Status {
	if st, ok := s.status[op]; ok {
		return st
	}
	return StatusIdle
}

// SignedIn reports whether an account is held.
func (s *AuthSlice) SignedIn() bool {
	return s.Account != nil
}

func (s *AuthSlice) Reduce(ev Event) error {
	switch ev.Op {
	case OpSignIn, OpSignUp, OpVerifyOTP, OpResendOTP, OpSignedInUser, OpSignOut:
	default:
		return fmt.Errorf("%w: %s", ErrUnknownOp, ev.Op)
	}

	switch ev.Phase {
	case PhasePending:
		s.status[ev.Op] = StatusLoading
		return nil
	case PhaseRejected:
		s.status[ev.Op] = StatusFailed
		s.Error = ev.Message
		return nil
	case PhaseFulfilled:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPhase, ev.Phase)
	}

	if err := s.fulfil(ev); err != nil {
		s.status[ev.Op] = StatusFailed
		s.Error = err.Error()
		return err
	}
	s.status[ev.Op] = StatusSucceeded
	return nil
}

func (s *AuthSlice) fulfil(ev Event) error {
	switch ev.Op {
	case OpSignIn:
		sess, ok := ev.Payload.(Session)
		if !ok {
			return fmt.Errorf("%w: want session, got %T", ErrPayload, ev.Payload)
		}
		acct := sess.Account
		s.Account = &acct
		s.Token = sess.Token
		s.PendingEmail = ""
		s.Error = ""
	case OpSignUp:
		email, ok := ev.Payload.(string)
		if !ok {
			return fmt.Errorf("%w: want email, got %T", ErrPayload, ev.Payload)
		}
		s.PendingEmail = email
	case OpVerifyOTP:
		s.PendingEmail = ""
	case OpSignedInUser:
		switch v := ev.Payload.(type) {
		case domain.Account:
			s.Account = &v
		case nil:
			// No account in the response; the session stays as it was.
		default:
			return fmt.Errorf("%w: want account, got %T", ErrPayload, ev.Payload)
		}
	case OpSignOut:
		s.Account = nil
		s.Token = ""
		s.PendingEmail = ""
		s.Error = ""
	}
	return nil
}

func (s *AuthSlice) clone() *AuthSlice {
	out := &AuthSlice{
		Token:        s.Token,
		PendingEmail: s.PendingEmail,
		Error:        s.Error,
		status:       make(map[string]Status, len(s.status)),
	}
	if s.Account != nil {
		a := *s.Account
		out.Account = &a
	}
	for k, v := range s.status {
		out.status[k] = v
	}
	return out
}

func (s *AuthSlice) restore(data []byte) error {
	var saved struct {
		Account      *domain.Account `json:"account,omitempty"`
		Token        string          `json:"token,omitempty"`
		PendingEmail string          `json:"pending_email,omitempty"`
		Error        string          `json:"error,omitempty"`
	}
	if err := json.Unmarshal(data, &saved); err != nil {
		return err
	}
	s.Account = saved.Account
	s.Token = saved.Token
	s.PendingEmail = saved.PendingEmail
	s.Error = saved.Error
	s.status = make(map[string]Status)
	return nil
}
