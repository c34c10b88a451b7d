package main

import (
	"context"
	"fmt"

	"reqdesk/internal/actions"
	"reqdesk/internal/domain"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// authCmd manages the signed-in session
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Sign up, sign in and manage the session",
	Long: `Manage the reqdesk session.

Available subcommands:
  sign-in    - Sign in and keep the session locally
  sign-up    - Register a business account
  verify-otp - Confirm the code emailed after sign-up
  resend-otp - Ask for a new code
  whoami     - Show the signed-in account
  sign-out   - Forget the local session`,
}

var authSignInCmd = &cobra.Command{
	Use:   "sign-in",
	Short: "Sign in with email and password",
	RunE:  withApp(runSignIn),
}

var authSignUpCmd = &cobra.Command{
	Use:   "sign-up",
	Short: "Register a business account",
	Long: `Registers a business account. A one-time code is emailed to the
address; confirm it with "reqdesk auth verify-otp".`,
	RunE: withApp(runSignUp),
}

var authVerifyOTPCmd = &cobra.Command{
	Use:   "verify-otp",
	Short: "Verify the emailed one-time code",
	RunE:  withApp(runVerifyOTP),
}

var authResendOTPCmd = &cobra.Command{
	Use:   "resend-otp",
	Short: "Send a new one-time code",
	RunE:  withApp(runResendOTP),
}

var authWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	RunE:  withApp(runWhoami),
}

var authSignOutCmd = &cobra.Command{
	Use:   "sign-out",
	Short: "Forget the local session",
	RunE:  withApp(runSignOut),
}

var (
	authEmail    string
	authPassword string
	authOTP      string
	signUp       domain.SignUpInput
	signUpImage  string
)

func init() {
	authSignInCmd.Flags().StringVar(&authEmail, "email", "", "Account email (required)")
	authSignInCmd.Flags().StringVar(&authPassword, "password", "", "Account password (required)")
	authSignInCmd.MarkFlagRequired("email")
	authSignInCmd.MarkFlagRequired("password")

	f := authSignUpCmd.Flags()
	f.StringVar(&signUp.BusinessName, "business-name", "", "Business name (required)")
	f.StringVar(&signUp.ContactName, "contact-name", "", "Contact person")
	f.StringVar(&signUp.ContactNumber, "contact-number", "", "Contact phone number")
	f.StringVar(&signUp.BusinessAddress, "address", "", "Street address")
	f.StringVar(&signUp.BusinessCity, "city", "", "City")
	f.StringVar(&signUp.BusinessState, "state", "", "State or region")
	f.StringVar(&signUp.BusinessCountry, "country", "", "Country")
	f.StringVar(&signUp.Sector, "sector", "", "Business sector")
	f.StringVar(&signUp.OrganizationSize, "organization-size", "", "Headcount band, e.g. 11-50")
	f.StringVar(&signUp.Email, "email", "", "Account email (required)")
	f.StringVar(&signUp.Password, "password", "", "Account password (required)")
	f.StringVar(&signUpImage, "image", "", "Logo image file")

	authVerifyOTPCmd.Flags().StringVar(&authEmail, "email", "", "Email the code was sent to (default: the last sign-up)")
	authVerifyOTPCmd.Flags().StringVar(&authOTP, "otp", "", "One-time code (required)")
	authVerifyOTPCmd.MarkFlagRequired("otp")

	authResendOTPCmd.Flags().StringVar(&authEmail, "email", "", "Email to send the code to (default: the last sign-up)")

	authCmd.AddCommand(authSignInCmd)
	authCmd.AddCommand(authSignUpCmd)
	authCmd.AddCommand(authVerifyOTPCmd)
	authCmd.AddCommand(authResendOTPCmd)
	authCmd.AddCommand(authWhoamiCmd)
	authCmd.AddCommand(authSignOutCmd)
}

func runSignIn(ctx context.Context, cmd *cobra.Command, _ []string, a *app) error {
	sess, err := a.actions.Auth.SignIn(ctx, domain.SignInInput{Email: authEmail, Password: authPassword})
	if err != nil {
		return err
	}
	landing, _ := sess.Account.Role.Landing()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Signed in as %s (%s)\n", sess.Account.DisplayName(), sess.Account.Role)
	fmt.Fprintf(out, "Workspace: %s\n", sess.Account.Role.SectionTitle(landing))

	// Warm the local store with what the landing view lists.
	if err := actions.Preload(ctx, a.actions, sess.Account); err != nil {
		logger.Warn("Preload failed", zap.Error(err))
		fmt.Fprintf(out, "Warning: %v\n", err)
	}
	return nil
}

func runSignUp(ctx context.Context, cmd *cobra.Command, _ []string, a *app) error {
	in := signUp
	if signUpImage != "" {
		img, err := a.uploads.Image(signUpImage)
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		in.UserImg = img
	}
	if _, err := a.actions.Auth.SignUp(ctx, in); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Verification code sent to %s\n", in.Email)
	fmt.Fprintln(cmd.OutOrStdout(), `Confirm it with "reqdesk auth verify-otp --otp <code>"`)
	return nil
}

// pendingEmail falls back to the address of the last sign-up.
func pendingEmail(a *app) string {
	if authEmail != "" {
		return authEmail
	}
	return a.store.Snapshot().Auth.PendingEmail
}

func runVerifyOTP(ctx context.Context, cmd *cobra.Command, _ []string, a *app) error {
	email := pendingEmail(a)
	if err := a.actions.Auth.VerifyOTP(ctx, domain.OTPInput{Email: email, OTP: authOTP}); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s verified. You can now sign in.\n", email)
	return nil
}

func runResendOTP(ctx context.Context, cmd *cobra.Command, _ []string, a *app) error {
	email := pendingEmail(a)
	if err := a.actions.Auth.ResendOTP(ctx, domain.ResendOTPInput{Email: email}); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "A new code was sent to %s\n", email)
	return nil
}

func runWhoami(ctx context.Context, cmd *cobra.Command, _ []string, a *app) error {
	if _, err := a.session(); err != nil {
		return err
	}
	acct, err := a.actions.Auth.SignedInUser(ctx)
	if err != nil {
		return err
	}
	printAccount(cmd, acct)
	return nil
}

func printAccount(cmd *cobra.Command, acct domain.Account) {
	printFields(cmd.OutOrStdout(),
		"ID", acct.Key(),
		"Name", acct.DisplayName(),
		"Email", acct.Email,
		"Role", string(acct.Role),
		"Business", acct.BusinessName,
		"Department", acct.Department,
		"Business ID", acct.BusinessUserID,
		"Sector", acct.Sector,
		"Created", acct.CreatedAt,
	)
}

func runSignOut(ctx context.Context, cmd *cobra.Command, _ []string, a *app) error {
	if err := a.actions.Auth.SignOut(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
	return nil
}
