package actions

import (
	"context"
	"net/http"

	"reqdesk/internal/apiclient"
	"reqdesk/internal/domain"
	"reqdesk/internal/state"
)

// AuthActions signs accounts up and in.
type AuthActions struct{ s *Set }

var (
	opSignIn       = op{state.SliceAuth, state.OpSignIn, "Failed to sign in, try again."}
	opSignUp       = op{state.SliceAuth, state.OpSignUp, "Failed to sign up, try again."}
	opVerifyOTP    = op{state.SliceAuth, state.OpVerifyOTP, "Failed to verify OTP, try again."}
	opResendOTP    = op{state.SliceAuth, state.OpResendOTP, "Failed to resend OTP, try again."}
	opSignedInUser = op{state.SliceAuth, state.OpSignedInUser, "Failed to get signed in user, try again."}
	opSignOut      = op{state.SliceAuth, state.OpSignOut, "Failed to sign out, try again."}
)

// signInData is the sign-in payload: the account, plus a token when the
// backend hands one out in the body.
type signInData struct {
	domain.Account
	Token       string `json:"token,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
}

// SignIn authenticates and stores the session. An account without a known
// role is refused.
func (a *AuthActions) SignIn(ctx context.Context, in domain.SignInInput) (state.Session, error) {
	return perform(ctx, a.s, opSignIn, func(ctx context.Context) (state.Session, any, error) {
		if err := validate(in); err != nil {
			return state.Session{}, nil, err
		}
		data, ok, err := fetch[signInData](ctx, a.s.api, http.MethodPost, "auth/sign_in", in)
		if err != nil {
			return state.Session{}, nil, err
		}
		if !ok {
			return state.Session{}, nil, &apiclient.Error{Kind: apiclient.KindDecode, Message: "Sign in returned no account"}
		}
		if _, err := data.Role.Landing(); err != nil {
			return state.Session{}, nil, &apiclient.Error{Kind: apiclient.KindDecode, Message: "Unable to determine user role", Err: err}
		}
		token := data.Token
		if token == "" {
			token = data.AccessToken
		}
		sess := state.Session{Account: data.Account, Token: token}
		return sess, sess, nil
	})
}

// SignUp registers a business account. The email is kept until verified.
func (a *AuthActions) SignUp(ctx context.Context, in domain.SignUpInput) (domain.Account, error) {
	return perform(ctx, a.s, opSignUp, func(ctx context.Context) (domain.Account, any, error) {
		if err := validate(&in); err != nil {
			return domain.Account{}, nil, err
		}
		acct, _, err := fetch[domain.Account](ctx, a.s.api, http.MethodPost, "auth/sign_up", in)
		if err != nil {
			return domain.Account{}, nil, err
		}
		return acct, in.Email, nil
	})
}

// VerifyOTP confirms the emailed one-time code.
func (a *AuthActions) VerifyOTP(ctx context.Context, in domain.OTPInput) error {
	_, err := perform(ctx, a.s, opVerifyOTP, func(ctx context.Context) (struct{}, any, error) {
		if err := validate(in); err != nil {
			return struct{}{}, nil, err
		}
		_, err := a.s.api.Do(ctx, http.MethodPost, "auth/verify_otp", in, nil)
		return struct{}{}, nil, err
	})
	return err
}

// ResendOTP asks for a new code.
func (a *AuthActions) ResendOTP(ctx context.Context, in domain.ResendOTPInput) error {
	_, err := perform(ctx, a.s, opResendOTP, func(ctx context.Context) (struct{}, any, error) {
		if err := validate(in); err != nil {
			return struct{}{}, nil, err
		}
		_, err := a.s.api.Do(ctx, http.MethodPost, "auth/resend_otp", in, nil)
		return struct{}{}, nil, err
	})
	return err
}

// SignedInUser refreshes the current account from the backend.
func (a *AuthActions) SignedInUser(ctx context.Context) (domain.Account, error) {
	return perform(ctx, a.s, opSignedInUser, func(ctx context.Context) (domain.Account, any, error) {
		return entity[domain.Account](ctx, a.s.api, http.MethodGet, "auth/signed_in_user", nil)
	})
}

// SignOut forgets the session locally.
func (a *AuthActions) SignOut(ctx context.Context) error {
	_, err := perform(ctx, a.s, opSignOut, func(context.Context) (struct{}, any, error) {
		return struct{}{}, nil, nil
	})
	return err
}
