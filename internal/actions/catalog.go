package actions

import (
	"context"
	"net/http"

	"reqdesk/internal/domain"
	"reqdesk/internal/state"
)

// CategoryActions manages data categories.
type CategoryActions struct{ s *Set }

var (
	opCreateCategory = op{state.SliceCategory, state.OpCreateCategory, "Failed to create category, try again"}
	opUpdateCategory = op{state.SliceCategory, state.OpUpdateCategory, "Failed to update category, try again"}
	opGetCategory    = op{state.SliceCategory, state.OpGetCategory, "Failed to get category, try again"}
	opGetCategories  = op{state.SliceCategory, state.OpGetCategories, "Failed to get categories, try again"}
	opDeleteCategory = op{state.SliceCategory, state.OpDeleteCategory, "Failed to delete category, try again"}
)

func (c *CategoryActions) Create(ctx context.Context, in domain.CategoryInput) (domain.Category, error) {
	return perform(ctx, c.s, opCreateCategory, func(ctx context.Context) (domain.Category, any, error) {
		if err := validate(in); err != nil {
			return domain.Category{}, nil, err
		}
		return entity[domain.Category](ctx, c.s.api, http.MethodPost, "category/create_category", in)
	})
}

func (c *CategoryActions) Update(ctx context.Context, id string, in domain.CategoryInput) (domain.Category, error) {
	return perform(ctx, c.s, opUpdateCategory, func(ctx context.Context) (domain.Category, any, error) {
		if err := requireID("category", id); err != nil {
			return domain.Category{}, nil, err
		}
		if err := validate(in); err != nil {
			return domain.Category{}, nil, err
		}
		return entity[domain.Category](ctx, c.s.api, http.MethodPut, pathID("category/update_category/%s", id), in)
	})
}

func (c *CategoryActions) Get(ctx context.Context, id string) (domain.Category, error) {
	return perform(ctx, c.s, opGetCategory, func(ctx context.Context) (domain.Category, any, error) {
		if err := requireID("category", id); err != nil {
			return domain.Category{}, nil, err
		}
		return entity[domain.Category](ctx, c.s.api, http.MethodGet, pathID("category/get_category/%s", id), nil)
	})
}

func (c *CategoryActions) GetAll(ctx context.Context) ([]domain.Category, error) {
	return perform(ctx, c.s, opGetCategories, func(ctx context.Context) ([]domain.Category, any, error) {
		return list[domain.Category](ctx, c.s.api, "category/get_categoryies")
	})
}

func (c *CategoryActions) Delete(ctx context.Context, id string) error {
	_, err := perform(ctx, c.s, opDeleteCategory, func(ctx context.Context) (struct{}, any, error) {
		if err := requireID("category", id); err != nil {
			return struct{}{}, nil, err
		}
		return remove(ctx, c.s.api, pathID("category/delete_category/%s", id), id)
	})
	return err
}

// RequestTypeActions manages request types.
type RequestTypeActions struct{ s *Set }

var (
	opCreateRequestType = op{state.SliceRequestType, state.OpCreateRequestType, "Failed to create request type, try again"}
	opUpdateRequestType = op{state.SliceRequestType, state.OpUpdateRequestType, "Failed to update request type, try again"}
	opGetRequestType    = op{state.SliceRequestType, state.OpGetRequestType, "Failed to get request type, try again"}
	opGetRequestTypes   = op{state.SliceRequestType, state.OpGetRequestTypes, "Failed to get request types, try again"}
	opDeleteRequestType = op{state.SliceRequestType, state.OpDeleteRequestType, "Failed to delete request type, try again"}
)

func (r *RequestTypeActions) Create(ctx context.Context, in domain.RequestTypeInput) (domain.RequestType, error) {
	return perform(ctx, r.s, opCreateRequestType, func(ctx context.Context) (domain.RequestType, any, error) {
		if err := validate(in); err != nil {
			return domain.RequestType{}, nil, err
		}
		return entity[domain.RequestType](ctx, r.s.api, http.MethodPost, "request_type/create_request_type", in)
	})
}

func (r *RequestTypeActions) Update(ctx context.Context, id string, in domain.RequestTypeInput) (domain.RequestType, error) {
	return perform(ctx, r.s, opUpdateRequestType, func(ctx context.Context) (domain.RequestType, any, error) {
		if err := requireID("request type", id); err != nil {
			return domain.RequestType{}, nil, err
		}
		if err := validate(in); err != nil {
			return domain.RequestType{}, nil, err
		}
		return entity[domain.RequestType](ctx, r.s.api, http.MethodPut, pathID("request_type/update_request_type/%s", id), in)
	})
}

func (r *RequestTypeActions) Get(ctx context.Context, id string) (domain.RequestType, error) {
	return perform(ctx, r.s, opGetRequestType, func(ctx context.Context) (domain.RequestType, any, error) {
		if err := requireID("request type", id); err != nil {
			return domain.RequestType{}, nil, err
		}
		return entity[domain.RequestType](ctx, r.s.api, http.MethodGet, pathID("request_type/get_request_type/%s", id), nil)
	})
}

func (r *RequestTypeActions) GetAll(ctx context.Context) ([]domain.RequestType, error) {
	return perform(ctx, r.s, opGetRequestTypes, func(ctx context.Context) ([]domain.RequestType, any, error) {
		return list[domain.RequestType](ctx, r.s.api, "request_type/get_all_request_type")
	})
}

func (r *RequestTypeActions) Delete(ctx context.Context, id string) error {
	_, err := perform(ctx, r.s, opDeleteRequestType, func(ctx context.Context) (struct{}, any, error) {
		if err := requireID("request type", id); err != nil {
			return struct{}{}, nil, err
		}
		return remove(ctx, r.s.api, pathID("request_type/delete_request_type/%s", id), id)
	})
	return err
}
