package domain

import (
	"fmt"
	"net/mail"
	"strings"
)

// ValidationError reports a payload rejected before any request was sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func required(field, value, reason string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Reason: reason}
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func validEmail(field, value string) error {
	if err := required(field, value, "Email is required."); err != nil {
		return err
	}
	if _, err := mail.ParseAddress(value); err != nil {
		return &ValidationError{Field: field, Reason: "Email is not a valid address."}
	}
	return nil
}

// SignInInput is the body of POST /auth/sign_in.
type SignInInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in SignInInput) Validate() error {
	return firstErr(
		validEmail("email", in.Email),
		required("password", in.Password, "Password is required."),
	)
}

// SignUpInput is the body of POST /auth/sign_up. Self sign-up always creates a
// business account unless a role is given.
type SignUpInput struct {
	BusinessName     string `json:"business_name"`
	ContactName      string `json:"contact_name"`
	ContactNumber    string `json:"contact_number"`
	BusinessAddress  string `json:"business_address"`
	BusinessCity     string `json:"business_city"`
	BusinessState    string `json:"business_state"`
	Sector           string `json:"sector"`
	OrganizationSize string `json:"organization_size"`
	BusinessCountry  string `json:"business_country"`
	Email            string `json:"email"`
	Role             Role   `json:"role"`
	Password         string `json:"password"`
	UserImg          string `json:"user_img"`
}

func (in *SignUpInput) Validate() error {
	if in.Role == "" {
		in.Role = RoleBusiness
	}
	if !in.Role.Valid() {
		return &ValidationError{Field: "role", Reason: fmt.Sprintf("unknown role %q", in.Role)}
	}
	return firstErr(
		required("business_name", in.BusinessName, "Business name is required."),
		validEmail("email", in.Email),
		required("password", in.Password, "Email and password are required."),
	)
}

// OTPInput is the body of POST /auth/verify_otp.
type OTPInput struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (in OTPInput) Validate() error {
	return firstErr(
		validEmail("email", in.Email),
		required("otp", in.OTP, "OTP is required."),
	)
}

// ResendOTPInput is the body of POST /auth/resend_otp.
type ResendOTPInput struct {
	Email string `json:"email"`
}

func (in ResendOTPInput) Validate() error {
	return validEmail("email", in.Email)
}

// CategoryInput creates or updates a category.
type CategoryInput struct {
	Name        string `json:"category_name"`
	Description string `json:"category_description"`
}

func (in CategoryInput) Validate() error {
	return firstErr(
		required("category_name", in.Name, "Category name is required."),
		required("category_description", in.Description, "Category description is required."),
	)
}

// RequestTypeInput creates or updates a request type.
type RequestTypeInput struct {
	Name        string `json:"request_name"`
	Description string `json:"request_description"`
}

func (in RequestTypeInput) Validate() error {
	return firstErr(
		required("request_name", in.Name, "request name is required."),
		required("request_description", in.Description, "request description is required."),
	)
}

// UserInput creates or updates a user under a business.
type UserInput struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Department     string `json:"department"`
	Email          string `json:"email"`
	BusinessUserID string `json:"business_user_id"`
	Password       string `json:"password"`
	UserImg        string `json:"user_img"`
}

func (in UserInput) Validate() error {
	return firstErr(
		required("first_name", in.FirstName, "First name is required."),
		required("last_name", in.LastName, "Last name is required."),
		validEmail("email", in.Email),
		required("department", in.Department, "Department is required."),
		required("password", in.Password, "Password is required."),
		required("user_img", in.UserImg, "User image is required."),
		required("business_user_id", in.BusinessUserID, "Business ID is required."),
	)
}

// ValidateUpdate checks an edit of an existing user. The password and image
// are kept by the backend when left empty.
func (in UserInput) ValidateUpdate() error {
	return firstErr(
		required("first_name", in.FirstName, "First name is required."),
		required("last_name", in.LastName, "Last name is required."),
		validEmail("email", in.Email),
		required("department", in.Department, "Department is required."),
	)
}

// AnalyticsInput creates or updates a request.
type AnalyticsInput struct {
	UserID         string `json:"user_id"`
	BusinessUserID string `json:"business_user_id"`
	Title          string `json:"data_title"`
	Description    string `json:"data_description"`
	DataFile       string `json:"data_file"`
	RequestTypeID  string `json:"request_type_id"`
	CategoryID     string `json:"category_id"`
	Consent        int    `json:"data_consent"`
}

// StampOwner fills the requester and owning business from the signed-in
// account when the caller left them empty.
func (in *AnalyticsInput) StampOwner(a Account) {
	if in.UserID == "" {
		in.UserID = a.Key()
	}
	if in.BusinessUserID == "" {
		in.BusinessUserID = a.OwningBusinessID()
	}
}

func (in AnalyticsInput) Validate() error {
	if err := firstErr(
		required("data_title", in.Title, "Request Analytics title is required."),
		required("data_description", in.Description, "Request Analytics description is required."),
		required("data_file", in.DataFile, "Request Analytics file is required."),
		required("category_id", in.CategoryID, "Request Analytics category is required."),
		required("request_type_id", in.RequestTypeID, "Request Analytics request type is required."),
		required("user_id", in.UserID, "Request Analytics business id is required."),
		required("business_user_id", in.BusinessUserID, "Request Analytics business id is required."),
	); err != nil {
		return err
	}
	if in.Consent != 1 {
		return &ValidationError{Field: "data_consent", Reason: "Request Analytics data consent is required."}
	}
	return nil
}

// StatusUpdate advances a request through its lifecycle. Completing a request
// requires the completed analytics file.
type StatusUpdate struct {
	Status Status `json:"status"`
	File   string `json:"base64_file,omitempty"`
}

func (in StatusUpdate) Validate() error {
	if in.Status == "" {
		return &ValidationError{Field: "status", Reason: "Please select a status"}
	}
	if !in.Status.Valid() {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", in.Status)}
	}
	if in.Status == StatusCompleted && in.File == "" {
		return &ValidationError{Field: "base64_file", Reason: "File upload is required for 'Completed' status"}
	}
	return nil
}
