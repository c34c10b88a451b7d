package actions

import (
	"context"
	"net/http"

	"reqdesk/internal/apiclient"
	"reqdesk/internal/domain"
	"reqdesk/internal/state"
)

// UserActions manages the users a business owns.
type UserActions struct{ s *Set }

var (
	opCreateUser         = op{state.SliceUsers, state.OpCreateUser, "Failed to create user, try again"}
	opUpdateUser         = op{state.SliceUsers, state.OpUpdateUser, "Failed to update user, try again"}
	opGetUser            = op{state.SliceUsers, state.OpGetUser, "Failed to get user, try again"}
	opGetUsers           = op{state.SliceUsers, state.OpGetUsers, "Failed to get users, try again"}
	opGetUsersByBusiness = op{state.SliceUsers, state.OpGetUsersByBusiness, "Failed to get users, try again"}
	opCountUsers         = op{state.SliceUsers, state.OpCountUsers, "Failed to get user count, try again"}
	opDeleteUser         = op{state.SliceUsers, state.OpDeleteUser, "Failed to delete user, try again"}
)

func (u *UserActions) Create(ctx context.Context, in domain.UserInput) (domain.Account, error) {
	return perform(ctx, u.s, opCreateUser, func(ctx context.Context) (domain.Account, any, error) {
		if in.BusinessUserID == "" {
			if sess, ok := u.s.store.Account(); ok {
				in.BusinessUserID = sess.Account.OwningBusinessID()
			}
		}
		if err := validate(in); err != nil {
			return domain.Account{}, nil, err
		}
		return entity[domain.Account](ctx, u.s.api, http.MethodPost, "users/create_user", in)
	})
}

func (u *UserActions) Update(ctx context.Context, id string, in domain.UserInput) (domain.Account, error) {
	return perform(ctx, u.s, opUpdateUser, func(ctx context.Context) (domain.Account, any, error) {
		if err := requireID("user", id); err != nil {
			return domain.Account{}, nil, err
		}
		if err := in.ValidateUpdate(); err != nil {
			return domain.Account{}, nil, apiclient.Invalid(err)
		}
		return entity[domain.Account](ctx, u.s.api, http.MethodPut, pathID("users/update_user/%s", id), in)
	})
}

func (u *UserActions) Get(ctx context.Context, id string) (domain.Account, error) {
	return perform(ctx, u.s, opGetUser, func(ctx context.Context) (domain.Account, any, error) {
		if err := requireID("user", id); err != nil {
			return domain.Account{}, nil, err
		}
		return entity[domain.Account](ctx, u.s.api, http.MethodGet, pathID("users/get_user/%s", id), nil)
	})
}

func (u *UserActions) GetAll(ctx context.Context) ([]domain.Account, error) {
	return perform(ctx, u.s, opGetUsers, func(ctx context.Context) ([]domain.Account, any, error) {
		return list[domain.Account](ctx, u.s.api, "users/get_users")
	})
}

// GetByBusiness lists the users created under one business.
func (u *UserActions) GetByBusiness(ctx context.Context, businessID string) ([]domain.Account, error) {
	return perform(ctx, u.s, opGetUsersByBusiness, func(ctx context.Context) ([]domain.Account, any, error) {
		if err := requireID("business", businessID); err != nil {
			return nil, nil, err
		}
		return list[domain.Account](ctx, u.s.api, pathID("users/get_user_by_business/%s", businessID))
	})
}

// Count returns how many users the signed-in business has.
func (u *UserActions) Count(ctx context.Context) (int, error) {
	return perform(ctx, u.s, opCountUsers, func(ctx context.Context) (int, any, error) {
		c, _, err := fetch[domain.Count](ctx, u.s.api, http.MethodGet, "users/total_count", nil)
		if err != nil {
			return 0, nil, err
		}
		return c.Total, c, nil
	})
}

func (u *UserActions) Delete(ctx context.Context, id string) error {
	_, err := perform(ctx, u.s, opDeleteUser, func(ctx context.Context) (struct{}, any, error) {
		if err := requireID("user", id); err != nil {
			return struct{}{}, nil, err
		}
		return remove(ctx, u.s.api, pathID("users/delete_user/%s", id), id)
	})
	return err
}
