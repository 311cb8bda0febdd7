package service

import (
	"context"
	"time"

	"github.com/boddenberg/pay-selfservice-go/internal/domain"
	"github.com/boddenberg/pay-selfservice-go/internal/infra/observability"
	"github.com/boddenberg/pay-selfservice-go/internal/port"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Dashboard is the account landing page. Sections whose backend failed are
// left empty and named in Unavailable.
type Dashboard struct {
	Summary       *domain.TransactionSummary
	ActiveKeys    int
	PaymentLinks  int
	StripeSetup   *domain.StripeAccountSetup
	GoLiveStage   domain.GoLiveStage
	Unavailable   []string
	PeriodStart   time.Time
	SwitchingPSP  bool
	TestAccount   bool
	ProviderLabel string
}

// DashboardService gathers the dashboard from several backends at once.
type DashboardService struct {
	ledger     port.Ledger
	publicAuth port.PublicAuth
	products   port.Products
	connector  port.Connector
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(ledger port.Ledger, publicAuth port.PublicAuth, products port.Products, connector port.Connector, metrics *observability.Metrics, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		ledger:     ledger,
		publicAuth: publicAuth,
		products:   products,
		connector:  connector,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Get builds the dashboard. Backend failures degrade the page, they do not
// fail it; only a cancelled request returns an error.
func (s *DashboardService) Get(ctx context.Context, ac *AccountContext) (*Dashboard, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "DashboardService.Get")
	defer span.End()
	span.SetAttributes(ac.attrs()...)

	start := s.now()
	defer func() {
		s.metrics.RecordRequestDuration("dashboard", time.Since(start))
	}()

	d := &Dashboard{
		GoLiveStage:   ac.Service.CurrentGoLiveStage,
		PeriodStart:   start.UTC().AddDate(0, 0, -7).Truncate(24 * time.Hour),
		SwitchingPSP:  ac.Account.IsSwitchingProvider(),
		TestAccount:   !ac.Account.IsLive(),
		ProviderLabel: ac.Account.PaymentProvider,
	}

	var (
		summary *domain.TransactionSummary
		keys    *domain.TokenList
		links   []domain.Product
		setup   *domain.StripeAccountSetup
	)
	failed := make([]bool, 4)

	// Each branch records its own failure and returns nil so one slow or
	// broken backend does not cancel the others.
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = s.ledger.GetTransactionSummary(gCtx, ac.AccountID(), d.PeriodStart.Format(time.RFC3339), start.UTC().Format(time.RFC3339))
		failed[0] = s.degrade(ac, "transaction summary", err)
		return nil
	})
	g.Go(func() error {
		var err error
		keys, err = s.publicAuth.ListTokens(gCtx, ac.AccountID(), domain.TokenStateActive)
		failed[1] = s.degrade(ac, "api keys", err)
		return nil
	})
	g.Go(func() error {
		var err error
		links, err = s.products.ListProducts(gCtx, ac.AccountID(), domain.ProductTypeAdhoc)
		failed[2] = s.degrade(ac, "payment links", err)
		return nil
	})
	if ac.Account.PaymentProvider == domain.ProviderStripe {
		g.Go(func() error {
			var err error
			setup, err = s.connector.GetStripeAccountSetup(gCtx, ac.AccountID())
			failed[3] = s.degrade(ac, "stripe setup", err)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	names := []string{"transaction summary", "api keys", "payment links", "stripe setup"}
	for i, f := range failed {
		if f {
			d.Unavailable = append(d.Unavailable, names[i])
		}
	}
	d.Summary = summary
	if keys != nil {
		d.ActiveKeys = len(keys.Tokens)
	}
	d.PaymentLinks = len(links)
	d.StripeSetup = setup
	return d, nil
}

func (s *DashboardService) degrade(ac *AccountContext, section string, err error) bool {
	if err == nil {
		return false
	}
	s.logger.Warn("dashboard section unavailable",
		append(ac.fields(), zap.String("section", section), zap.Error(err))...,
	)
	return true
}
