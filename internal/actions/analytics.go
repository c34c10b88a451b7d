package actions

import (
	"context"
	"net/http"

	"reqdesk/internal/domain"
	"reqdesk/internal/state"
)

// AnalyticsActions manages data requests and their status lifecycle.
type AnalyticsActions struct{ s *Set }

const analyticsBase = "request_analytics/"

var (
	opCreateAnalytics            = op{state.SliceAnalytics, state.OpCreateAnalytics, "Failed to create request, try again"}
	opUpdateAnalytics            = op{state.SliceAnalytics, state.OpUpdateAnalytics, "Failed to update request, try again"}
	opGetAnalytics               = op{state.SliceAnalytics, state.OpGetAnalytics, "Failed to get request, try again"}
	opGetAllAnalytics            = op{state.SliceAnalytics, state.OpGetAllAnalytics, "Failed to get requests, try again"}
	opGetAnalyticsByBusiness     = op{state.SliceAnalytics, state.OpGetAnalyticsByBusiness, "Failed to get requests, try again"}
	opGetAnalyticsByBusinessUser = op{state.SliceAnalytics, state.OpGetAnalyticsByBusinessUser, "Failed to get requests, try again"}
	opCountAnalytics             = op{state.SliceAnalytics, state.OpCountAnalytics, "Failed to get request count, try again"}
	opCountAnalyticsByBusiness   = op{state.SliceAnalytics, state.OpCountAnalyticsByBusiness, "Failed to get request count, try again"}
	opDeleteAnalytics            = op{state.SliceAnalytics, state.OpDeleteAnalytics, "Failed to delete request, try again"}
	opUpdateAnalyticsStatus      = op{state.SliceAnalytics, state.OpUpdateAnalyticsStatus, "Failed to update status, try again"}
)

// Create files a request. Requester and owning business default to the
// signed-in account.
func (a *AnalyticsActions) Create(ctx context.Context, in domain.AnalyticsInput) (domain.RequestAnalytics, error) {
	return perform(ctx, a.s, opCreateAnalytics, func(ctx context.Context) (domain.RequestAnalytics, any, error) {
		if sess, ok := a.s.store.Account(); ok {
			in.StampOwner(sess.Account)
		}
		if err := validate(in); err != nil {
			return domain.RequestAnalytics{}, nil, err
		}
		return entity[domain.RequestAnalytics](ctx, a.s.api, http.MethodPost, analyticsBase+"create_request_analytics", in)
	})
}

func (a *AnalyticsActions) Update(ctx context.Context, id string, in domain.AnalyticsInput) (domain.RequestAnalytics, error) {
	return perform(ctx, a.s, opUpdateAnalytics, func(ctx context.Context) (domain.RequestAnalytics, any, error) {
		if err := requireID("request", id); err != nil {
			return domain.RequestAnalytics{}, nil, err
		}
		if err := validate(in); err != nil {
			return domain.RequestAnalytics{}, nil, err
		}
		return entity[domain.RequestAnalytics](ctx, a.s.api, http.MethodPut, pathID(analyticsBase+"update_request_analytics/%s", id), in)
	})
}

func (a *AnalyticsActions) Get(ctx context.Context, id string) (domain.RequestAnalytics, error) {
	return perform(ctx, a.s, opGetAnalytics, func(ctx context.Context) (domain.RequestAnalytics, any, error) {
		if err := requireID("request", id); err != nil {
			return domain.RequestAnalytics{}, nil, err
		}
		return entity[domain.RequestAnalytics](ctx, a.s.api, http.MethodGet, pathID(analyticsBase+"get_request_analytics/%s", id), nil)
	})
}

func (a *AnalyticsActions) GetAll(ctx context.Context) ([]domain.RequestAnalytics, error) {
	return perform(ctx, a.s, opGetAllAnalytics, func(ctx context.Context) ([]domain.RequestAnalytics, any, error) {
		return list[domain.RequestAnalytics](ctx, a.s.api, analyticsBase+"get_request_analytics")
	})
}

// GetByBusiness lists every request filed under a business.
func (a *AnalyticsActions) GetByBusiness(ctx context.Context, businessID string) ([]domain.RequestAnalytics, error) {
	return perform(ctx, a.s, opGetAnalyticsByBusiness, func(ctx context.Context) ([]domain.RequestAnalytics, any, error) {
		if err := requireID("business", businessID); err != nil {
			return nil, nil, err
		}
		return list[domain.RequestAnalytics](ctx, a.s.api, pathID(analyticsBase+"get_request_analytics/by_business/%s", businessID))
	})
}

// GetByBusinessUser lists the requests one business user filed. The result
// lands in its own list, leaving the main list alone.
func (a *AnalyticsActions) GetByBusinessUser(ctx context.Context, userID string) ([]domain.RequestAnalytics, error) {
	return perform(ctx, a.s, opGetAnalyticsByBusinessUser, func(ctx context.Context) ([]domain.RequestAnalytics, any, error) {
		if err := requireID("user", userID); err != nil {
			return nil, nil, err
		}
		return list[domain.RequestAnalytics](ctx, a.s.api, pathID(analyticsBase+"get_request_analytics/by_bussiness_user/%s", userID))
	})
}

func (a *AnalyticsActions) Count(ctx context.Context) (int, error) {
	return perform(ctx, a.s, opCountAnalytics, func(ctx context.Context) (int, any, error) {
		c, _, err := fetch[domain.Count](ctx, a.s.api, http.MethodGet, analyticsBase+"get_total_request_analytics_count", nil)
		if err != nil {
			return 0, nil, err
		}
		return c.Total, c, nil
	})
}

// CountByBusiness counts the requests of one business.
func (a *AnalyticsActions) CountByBusiness(ctx context.Context, businessID string) (int, error) {
	return perform(ctx, a.s, opCountAnalyticsByBusiness, func(ctx context.Context) (int, any, error) {
		if err := requireID("business", businessID); err != nil {
			return 0, nil, err
		}
		c, _, err := fetch[domain.Count](ctx, a.s.api, http.MethodGet, pathID(analyticsBase+"get_total_request_analytics_count_by_user_id/%s", businessID), nil)
		if err != nil {
			return 0, nil, err
		}
		return c.Total, c, nil
	})
}

func (a *AnalyticsActions) Delete(ctx context.Context, id string) error {
	_, err := perform(ctx, a.s, opDeleteAnalytics, func(ctx context.Context) (struct{}, any, error) {
		if err := requireID("request", id); err != nil {
			return struct{}{}, nil, err
		}
		return remove(ctx, a.s.api, pathID(analyticsBase+"delete_request_analytics/%s", id), id)
	})
	return err
}

// UpdateStatus moves a request through pending, in progress and completed.
// The returned entity, when the backend sends one, replaces the listed copy.
func (a *AnalyticsActions) UpdateStatus(ctx context.Context, id string, in domain.StatusUpdate) (domain.RequestAnalytics, error) {
	return perform(ctx, a.s, opUpdateAnalyticsStatus, func(ctx context.Context) (domain.RequestAnalytics, any, error) {
		if err := requireID("request", id); err != nil {
			return domain.RequestAnalytics{}, nil, err
		}
		if err := validate(in); err != nil {
			return domain.RequestAnalytics{}, nil, err
		}
		return entity[domain.RequestAnalytics](ctx, a.s.api, http.MethodPut, pathID(analyticsBase+"update_request_analytics_status/%s", id), in)
	})
}
