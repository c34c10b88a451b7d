package actions

import (
	"context"

	"reqdesk/internal/domain"

	"golang.org/x/sync/errgroup"
)

// Preload fetches what a signed-in account's landing view needs, concurrently:
// categories, request types and the requests the role may see. Each fetch
// still reports its own lifecycle. The first failure is returned.
func Preload(ctx context.Context, s *Set, acct domain.Account) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		_, err := s.Categories.GetAll(ctx)
		return err
	})
	g.Go(func() error {
		_, err := s.RequestTypes.GetAll(ctx)
		return err
	})

	switch acct.Role {
	case domain.RoleAdmin:
		g.Go(func() error {
			_, err := s.Analytics.GetAll(ctx)
			return err
		})
		g.Go(func() error {
			_, err := s.Analytics.Count(ctx)
			return err
		})
	case domain.RoleBusiness:
		g.Go(func() error {
			_, err := s.Analytics.GetByBusiness(ctx, acct.Key())
			return err
		})
		g.Go(func() error {
			_, err := s.Users.GetByBusiness(ctx, acct.Key())
			return err
		})
		g.Go(func() error {
			_, err := s.Analytics.CountByBusiness(ctx, acct.Key())
			return err
		})
	default:
		g.Go(func() error {
			_, err := s.Analytics.GetByBusinessUser(ctx, acct.Key())
			return err
		})
	}

	return g.Wait()
}
