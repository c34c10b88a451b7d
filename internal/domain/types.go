package domain

import (
	"encoding/json"
	"fmt"
)

// Entity is anything the backend identifies with a key.
type Entity interface {
	Key() string
	Matches(id string) bool
}

// SameRecord reports whether a and b name the same record under either
// identifier.
func SameRecord[T Entity](a, b T) bool {
	return a.Matches(b.Key()) || b.Matches(a.Key())
}

// Ref carries the identifiers the backend attaches to every record. Some
// endpoints return a document-store "_id", others a plain "id"; both are kept.
type Ref struct {
	MongoID   string `json:"_id,omitempty"`
	ID        string `json:"id,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// Key returns "_id" when present, otherwise "id".
func (r Ref) Key() string {
	if r.MongoID != "" {
		return r.MongoID
	}
	return r.ID
}

// Matches reports whether id names this record under either identifier.
func (r Ref) Matches(id string) bool {
	if id == "" {
		return false
	}
	return r.MongoID == id || r.ID == id
}

// Account is a signed-in identity or a user listed under a business. Business
// accounts carry the business profile; users created by a business carry
// business_user_id pointing back at it.
type Account struct {
	Ref
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role,omitempty"`

	BusinessName     string `json:"business_name,omitempty"`
	ContactName      string `json:"contact_name,omitempty"`
	ContactNumber    string `json:"contact_number,omitempty"`
	BusinessAddress  string `json:"business_address,omitempty"`
	BusinessCity     string `json:"business_city,omitempty"`
	BusinessState    string `json:"business_state,omitempty"`
	BusinessCountry  string `json:"business_country,omitempty"`
	Sector           string `json:"sector,omitempty"`
	OrganizationSize string `json:"organization_size,omitempty"`

	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	Department     string `json:"department,omitempty"`
	BusinessUserID string `json:"business_user_id,omitempty"`
	UserImg        string `json:"user_img,omitempty"`
}

// OwningBusinessID is the business a new request is filed under: the parent
// business for plain users, the account itself otherwise.
func (a Account) OwningBusinessID() string {
	if a.Role == RoleUser {
		return a.BusinessUserID
	}
	return a.Key()
}

// DisplayName picks the most human name the record has.
func (a Account) DisplayName() string {
	switch {
	case a.FirstName != "" || a.LastName != "":
		if a.LastName == "" {
			return a.FirstName
		}
		if a.FirstName == "" {
			return a.LastName
		}
		return a.FirstName + " " + a.LastName
	case a.BusinessName != "":
		return a.BusinessName
	default:
		return a.Email
	}
}

// Category groups requests by the kind of data asked for.
type Category struct {
	Ref
	Name        string `json:"category_name"`
	Description string `json:"category_description"`
}

// RequestType classifies what the requester wants done with the data.
type RequestType struct {
	Ref
	Name        string `json:"request_name"`
	Description string `json:"request_description"`
}

// Status is the processing state of a request.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in progress"
	StatusCompleted  Status = "completed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Label is the title-cased form used in tables.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In Progress"
	case StatusCompleted:
		return "Completed"
	default:
		return string(s)
	}
}

// RequestAnalytics is a data request filed by a user or business.
type RequestAnalytics struct {
	Ref
	UserID            string `json:"user_id"`
	BusinessUserID    string `json:"business_user_id"`
	CategoryID        string `json:"category_id"`
	RequestTypeID     string `json:"request_type_id"`
	Title             string `json:"data_title"`
	Description       string `json:"data_description"`
	DataFile          string `json:"data_file,omitempty"`
	Consent           int    `json:"data_consent"`
	Status            Status `json:"status,omitempty"`
	CompletedDataFile string `json:"completed_data_file,omitempty"`
}

// Count is the payload of the count endpoints. The backend answers either with
// a bare number or with an object carrying "total" or "count".
type Count struct {
	Total int `json:"total"`
}

// UnmarshalJSON accepts both payload shapes.
func (c *Count) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		c.Total = n
		return nil
	}
	var obj struct {
		Total *int `json:"total"`
		Count *int `json:"count"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decode count: %w", err)
	}
	switch {
	case obj.Total != nil:
		c.Total = *obj.Total
	case obj.Count != nil:
		c.Total = *obj.Count
	}
	return nil
}
