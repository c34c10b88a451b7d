package state

import (
	"encoding/json"
	"fmt"

	"reqdesk/internal/domain"
)

// Category operations.
const (
	OpCreateCategory = "createCategory"
	OpUpdateCategory = "updateCategory"
	OpGetCategory    = "getCategory"
	OpGetCategories  = "getAllCategories"
	OpDeleteCategory = "deleteCategory"
)

// Request type operations.
const (
	OpCreateRequestType = "createRequestType"
	OpUpdateRequestType = "updateRequestType"
	OpGetRequestType    = "getRequestType"
	OpGetRequestTypes   = "getAllRequestTypes"
	OpDeleteRequestType = "deleteRequestType"
)

// User operations.
const (
	OpCreateUser         = "createUser"
	OpUpdateUser         = "updateUser"
	OpGetUser            = "getUser"
	OpGetUsers           = "getAllUsers"
	OpGetUsersByBusiness = "getUsersByBusiness"
	OpCountUsers         = "getBusinessUserCount"
	OpDeleteUser         = "deleteUser"
)

// Request analytics operations.
const (
	OpCreateAnalytics            = "createRequestAnalytics"
	OpUpdateAnalytics            = "updateRequestAnalytics"
	OpGetAnalytics               = "getRequestAnalytics"
	OpGetAllAnalytics            = "getAllRequestAnalytics"
	OpGetAnalyticsByBusiness     = "getRequestAnalyticsByBusiness"
	OpGetAnalyticsByBusinessUser = "getRequestAnalyticsByBusinessUser"
	OpCountAnalytics             = "getTotalRequestAnalyticsCount"
	OpCountAnalyticsByBusiness   = "getTotalRequestAnalyticsCountByBusiness"
	OpDeleteAnalytics            = "deleteRequestAnalytics"
	OpUpdateAnalyticsStatus      = "updateRequestAnalyticsStatus"
)

// CategorySlice is the "category" slice.
type CategorySlice struct {
	Resource[domain.Category]
}

func NewCategorySlice() *CategorySlice {
	return &CategorySlice{Resource: NewResource[domain.Category](Ops{
		OpCreateCategory: MutateAppend,
		OpUpdateCategory: MutateReplace,
		OpGetCategory:    MutateSetCurrent,
		OpGetCategories:  MutateSetList,
		OpDeleteCategory: MutateRemove,
	})}
}

func (s *CategorySlice) clone() *CategorySlice {
	return &CategorySlice{Resource: s.Resource.Clone()}
}

// RequestTypeSlice is the "request" slice.
type RequestTypeSlice struct {
	Resource[domain.RequestType]
}

func NewRequestTypeSlice() *RequestTypeSlice {
	return &RequestTypeSlice{Resource: NewResource[domain.RequestType](Ops{
		OpCreateRequestType: MutateAppend,
		OpUpdateRequestType: MutateReplace,
		OpGetRequestType:    MutateSetCurrent,
		OpGetRequestTypes:   MutateSetList,
		OpDeleteRequestType: MutateRemove,
	})}
}

func (s *RequestTypeSlice) clone() *RequestTypeSlice {
	return &RequestTypeSlice{Resource: s.Resource.Clone()}
}

// UserSlice is the "users" slice. BusinessCount holds the user count of the
// signed-in business.
type UserSlice struct {
	Resource[domain.Account]
	BusinessCount int `json:"business_count"`
}

func NewUserSlice() *UserSlice {
	return &UserSlice{Resource: NewResource[domain.Account](Ops{
		OpCreateUser:         MutateAppend,
		OpUpdateUser:         MutateReplace,
		OpGetUser:            MutateSetCurrent,
		OpGetUsers:           MutateSetList,
		OpGetUsersByBusiness: MutateSetList,
		OpCountUsers:         MutateNone,
		OpDeleteUser:         MutateRemove,
	})}
}

func (s *UserSlice) Reduce(ev Event) error {
	if ev.Op == OpCountUsers {
		return s.track(ev, setCount(&s.BusinessCount))
	}
	return s.Resource.Reduce(ev)
}

func (s *UserSlice) clone() *UserSlice {
	return &UserSlice{Resource: s.Resource.Clone(), BusinessCount: s.BusinessCount}
}

func (s *UserSlice) restore(data []byte) error {
	var extra struct {
		BusinessCount int `json:"business_count"`
	}
	if err := json.Unmarshal(data, &extra); err != nil {
		return err
	}
	s.BusinessCount = extra.BusinessCount
	return s.Resource.restore(data)
}

// AnalyticsSlice is the "requestAnalytics" slice. Requests filed by one
// business user are kept apart from the main list, as are the two counts.
type AnalyticsSlice struct {
	Resource[domain.RequestAnalytics]
	BusinessUserItems []domain.RequestAnalytics `json:"business_user_items"`
	TotalCount        int                       `json:"total_count"`
	BusinessCount     int                       `json:"business_count"`
}

func NewAnalyticsSlice() *AnalyticsSlice {
	return &AnalyticsSlice{
		Resource: NewResource[domain.RequestAnalytics](Ops{
			OpCreateAnalytics:            MutateAppend,
			OpUpdateAnalytics:            MutateReplace,
			OpGetAnalytics:               MutateSetCurrent,
			OpGetAllAnalytics:            MutateSetList,
			OpGetAnalyticsByBusiness:     MutateSetList,
			OpGetAnalyticsByBusinessUser: MutateNone,
			OpCountAnalytics:             MutateNone,
			OpCountAnalyticsByBusiness:   MutateNone,
			OpDeleteAnalytics:            MutateRemove,
			OpUpdateAnalyticsStatus:      MutateReplace,
		}),
		BusinessUserItems: []domain.RequestAnalytics{},
	}
}

func (s *AnalyticsSlice) Reduce(ev Event) error {
	switch ev.Op {
	case OpCountAnalytics:
		return s.track(ev, setCount(&s.TotalCount))
	case OpCountAnalyticsByBusiness:
		return s.track(ev, setCount(&s.BusinessCount))
	case OpGetAnalyticsByBusinessUser:
		return s.track(ev, func(payload any) error {
			if payload == nil {
				s.BusinessUserItems = []domain.RequestAnalytics{}
				return nil
			}
			items, ok := payload.([]domain.RequestAnalytics)
			if !ok {
				return fmt.Errorf("%w: want list, got %T", ErrPayload, payload)
			}
			s.BusinessUserItems = append([]domain.RequestAnalytics{}, items...)
			return nil
		})
	case OpDeleteAnalytics:
		if err := s.Resource.Reduce(ev); err != nil {
			return err
		}
		if id, ok := ev.Payload.(string); ok && ev.Phase == PhaseFulfilled {
			s.BusinessUserItems = removeKey(s.BusinessUserItems, id)
		}
		return nil
	}
	return s.Resource.Reduce(ev)
}

func (s *AnalyticsSlice) clone() *AnalyticsSlice {
	return &AnalyticsSlice{
		Resource:          s.Resource.Clone(),
		BusinessUserItems: append([]domain.RequestAnalytics{}, s.BusinessUserItems...),
		TotalCount:        s.TotalCount,
		BusinessCount:     s.BusinessCount,
	}
}

func (s *AnalyticsSlice) restore(data []byte) error {
	var extra struct {
		BusinessUserItems []domain.RequestAnalytics `json:"business_user_items"`
		TotalCount        int                       `json:"total_count"`
		BusinessCount     int                       `json:"business_count"`
	}
	if err := json.Unmarshal(data, &extra); err != nil {
		return err
	}
	if extra.BusinessUserItems == nil {
		extra.BusinessUserItems = []domain.RequestAnalytics{}
	}
	s.BusinessUserItems = extra.BusinessUserItems
	s.TotalCount = extra.TotalCount
	s.BusinessCount = extra.BusinessCount
	return s.Resource.restore(data)
}

func setCount(dst *int) func(any) error {
	return func(payload any) error {
		switch v := payload.(type) {
		case nil:
			*dst = 0
		case int:
			*dst = v
		case domain.Count:
			*dst = v.Total
		case *domain.Count:
			*dst = v.Total
		default:
			return fmt.Errorf("%w: want count, got %T", ErrPayload, payload)
		}
		return nil
	}
}

func removeKey[T domain.Entity](items []T, id string) []T {
	kept := make([]T, 0, len(items))
	for _, it := range items {
		if !it.Matches(id) {
			kept = append(kept, it)
		}
	}
	return kept
}
