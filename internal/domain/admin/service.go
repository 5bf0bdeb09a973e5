package admin

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/catering-kart/internal/domain/order"
)

const (
	// RecentOrdersLimit is the number of orders shown on the dashboard.
	RecentOrdersLimit = 5
	// TopOfferingsLimit is the length of the best-seller list.
	TopOfferingsLimit = 5
	// DefaultAnalyticsDays is the daily revenue window when none is given.
	DefaultAnalyticsDays = 30
	// MaxAnalyticsDays caps the daily revenue window.
	MaxAnalyticsDays = 366
)

// Service computes admin dashboard and analytics views.
type Service struct {
	repo   Repository
	orders order.Repository
	now    func() time.Time
}

// NewService creates an admin Service.
func NewService(repo Repository, orders order.Repository) *Service {
	return &Service{repo: repo, orders: orders, now: time.Now}
}

// Dashboard gathers totals and the most recent orders concurrently.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	var d Dashboard
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		v, err := s.repo.CountOrders(ctx, "")
		if err != nil {
			return errors.Wrap(err, "count orders")
		}
		d.Orders = v
		return nil
	})
	g.Go(func() error {
		v, err := s.repo.CountOrders(ctx, order.StatusPending)
		if err != nil {
			return errors.Wrap(err, "count pending orders")
		}
		d.PendingOrders = v
		return nil
	})
	g.Go(func() error {
		v, err := s.repo.Revenue(ctx)
		if err != nil {
			return errors.Wrap(err, "revenue")
		}
		d.Revenue = v
		return nil
	})
	g.Go(func() error {
		v, err := s.repo.CountCustomers(ctx)
		if err != nil {
			return errors.Wrap(err, "count customers")
		}
		d.Customers = v
		return nil
	})
	g.Go(func() error {
		v, err := s.repo.CountOfferings(ctx)
		if err != nil {
			return errors.Wrap(err, "count meal plans")
		}
		d.MealPlans = v
		return nil
	})
	g.Go(func() error {
		v, err := s.orders.List(ctx, order.ListFilter{Limit: RecentOrdersLimit})
		if err != nil {
			return errors.Wrap(err, "recent orders")
		}
		d.RecentOrders = v
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Analytics gathers the aggregation view over the last days days.
// Non-positive days selects DefaultAnalyticsDays.
func (s *Service) Analytics(ctx context.Context, days int) (*Analytics, error) {
	if days <= 0 {
		days = DefaultAnalyticsDays
	}
	days = min(days, MaxAnalyticsDays)

	today := s.now().UTC().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(days - 1))

	var (
		a      Analytics
		totals []OrderTotal
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.repo.RevenueByOccasion(ctx)
		if err != nil {
			return errors.Wrap(err, "revenue by occasion")
		}
		a.ByOccasion = v
		return nil
	})
	g.Go(func() error {
		v, err := s.repo.OrdersByStatus(ctx)
		if err != nil {
			return errors.Wrap(err, "orders by status")
		}
		a.ByStatus = v
		return nil
	})
	g.Go(func() error {
		v, err := s.repo.TopOfferings(ctx, TopOfferingsLimit)
		if err != nil {
			return errors.Wrap(err, "top meal plans")
		}
		a.TopOfferings = v
		return nil
	})
	g.Go(func() error {
		v, err := s.repo.OrderTotalsSince(ctx, since)
		if err != nil {
			return errors.Wrap(err, "order totals")
		}
		totals = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	a.ByStatus = fillStatuses(a.ByStatus)
	a.Daily = bucketDaily(totals, since, days)
	return &a, nil
}

// Customers lists users with role user and their order summaries.
func (s *Service) Customers(ctx context.Context) ([]Customer, error) {
	customers, err := s.repo.Customers(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list customers")
	}
	return customers, nil
}

// fillStatuses returns one entry per known status in lifecycle order.
func fillStatuses(in []StatusCount) []StatusCount {
	counts := make(map[order.Status]int64, len(in))
	for _, c := range in {
		counts[c.Status] += c.Orders
	}
	out := make([]StatusCount, len(order.Statuses))
	for i, st := range order.Statuses {
		out[i] = StatusCount{Status: st, Orders: counts[st]}
	}
	return out
}

// bucketDaily sums totals per UTC day, emitting a zero entry for days
// without orders.
func bucketDaily(totals []OrderTotal, since time.Time, days int) []DailyRevenue {
	out := make([]DailyRevenue, days)
	for i := range out {
		out[i] = DailyRevenue{Day: since.AddDate(0, 0, i), Revenue: decimal.Zero}
	}
	for _, t := range totals {
		i := int(t.CreatedAt.UTC().Sub(since) / (24 * time.Hour))
		if i < 0 || i >= days {
			continue
		}
		out[i].Orders++
		out[i].Revenue = out[i].Revenue.Add(t.Total)
	}
	return out
}
