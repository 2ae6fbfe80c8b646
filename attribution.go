// Package attribution assembles the webhook attribution pipeline: signature
// verification, identity resolution, idempotent sale/lead recording,
// commission attribution, and workspace notification fan-out.
package attribution

import (
	"context"
	"fmt"

	glog "github.com/goliatone/go-logger/glog"
	repositorycache "github.com/goliatone/go-repository-cache/cache"

	attrcommand "github.com/goliatone/go-attribution/command"
	"github.com/goliatone/go-attribution/commission"
	"github.com/goliatone/go-attribution/core"
	"github.com/goliatone/go-attribution/identity"
	"github.com/goliatone/go-attribution/notify"
	attrquery "github.com/goliatone/go-attribution/query"
	attrrecorder "github.com/goliatone/go-attribution/recorder"
	sqlstore "github.com/goliatone/go-attribution/store/sql"
	"github.com/goliatone/go-attribution/webhooks"
)

type (
	Config   = core.Config
	Mode     = core.Mode
	Delivery = webhooks.Delivery
	Result   = webhooks.Result
)

var DefaultConfig = core.DefaultConfig

// Stores groups every persistence contract the pipeline touches. Populate
// it by hand or from a sqlstore.RepositoryFactory via StoresFromFactory.
type Stores struct {
	Customers   core.CustomerStore
	Links       core.LinkStore
	Discounts   core.DiscountStore
	Commissions core.CommissionStore
	Payouts     core.PayoutStore
	Workspaces  core.WorkspaceStore
	Clicks      core.ClickStore
	Leads       core.LeadStore
	Sales       core.SaleStore
	Claims      core.IdempotencyClaimStore
	Outbox      core.NotificationOutboxStore
	Endpoints   core.WebhookEndpointStore
}

func StoresFromFactory(factory *sqlstore.RepositoryFactory) (Stores, error) {
	if factory == nil {
		return Stores{}, fmt.Errorf("attribution: repository factory is required")
	}
	return Stores{
		Customers:   factory.CustomerStore(),
		Links:       factory.LinkStore(),
		Discounts:   factory.DiscountStore(),
		Commissions: factory.CommissionStore(),
		Payouts:     factory.PayoutStore(),
		Workspaces:  factory.WorkspaceStore(),
		Clicks:      factory.ClickEventStore(),
		Leads:       factory.LeadEventStore(),
		Sales:       factory.SaleEventStore(),
		Claims:      factory.IdempotencyClaimStore(),
		Outbox:      factory.NotificationOutboxStore(),
		Endpoints:   factory.WebhookEndpointStore(),
	}, nil
}

func (s Stores) validate() error {
	checks := []struct {
		name string
		ok   bool
	}{
		{"customer store", s.Customers != nil},
		{"link store", s.Links != nil},
		{"discount store", s.Discounts != nil},
		{"commission store", s.Commissions != nil},
		{"payout store", s.Payouts != nil},
		{"workspace store", s.Workspaces != nil},
		{"click store", s.Clicks != nil},
		{"lead store", s.Leads != nil},
		{"sale store", s.Sales != nil},
		{"idempotency claim store", s.Claims != nil},
		{"notification outbox store", s.Outbox != nil},
		{"webhook endpoint store", s.Endpoints != nil},
	}
	for _, check := range checks {
		if !check.ok {
			return fmt.Errorf("attribution: %s is required", check.name)
		}
	}
	return nil
}

// Dependencies carries everything the host supplies: stores plus the
// processor-facing and program-facing collaborators the module cannot
// implement itself.
type Dependencies struct {
	Stores    Stores
	Processor core.ProcessorClient
	Converter core.CurrencyConverter
	Rules     core.CommissionRules
	// Workflows and Stats default to command-bus dispatching emitters when
	// left nil; hosts subscribe handlers for the emitted messages.
	Workflows core.WorkflowEmitter
	Stats     core.PartnerStatsResyncer
	// Secrets defaults to a static provider backed by Config.Secrets.
	Secrets core.SecretProvider
}

type Option func(*options)

type options struct {
	logger         core.Logger
	loggerProvider core.LoggerProvider
	metrics        core.MetricsRecorder
	httpClient     notify.HTTPDoer
	outboxConfig   notify.OutboxDispatcherConfig
	clickCache     repositorycache.CacheService
}

func WithLogger(logger core.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(o *options) { o.loggerProvider = provider }
}

func WithMetrics(metrics core.MetricsRecorder) Option {
	return func(o *options) { o.metrics = metrics }
}

// WithHTTPClient overrides the client used for outbound workspace webhooks.
func WithHTTPClient(client notify.HTTPDoer) Option {
	return func(o *options) { o.httpClient = client }
}

func WithOutboxConfig(config notify.OutboxDispatcherConfig) Option {
	return func(o *options) { o.outboxConfig = config }
}

// WithClickCache wraps the click store in a cache-aside layer; click events
// are immutable so cached reads never go stale.
func WithClickCache(cache repositorycache.CacheService) Option {
	return func(o *options) { o.clickCache = cache }
}

// Service is the assembled pipeline. Webhook intake goes through Dispatch;
// the rest of the surface exposes the side channels a host schedules or
// routes itself.
type Service struct {
	config      core.Config
	observer    *core.Observer
	stores      Stores
	runner      *notify.Runner
	notifier    *notify.Notifier
	outbox      *notify.OutboxDispatcher
	resolver    *identity.Resolver
	recorder    *attrrecorder.Recorder
	commissions *commission.Attributor
	dispatcher  *webhooks.Dispatcher
	commands    Commands
	queries     Queries
}

// Commands are ready-to-subscribe go-command handlers for the module's
// mutating operations.
type Commands struct {
	RecordSale       *attrcommand.RecordSaleCommand
	RecordLead       *attrcommand.RecordLeadCommand
	RefundCommission *attrcommand.RefundCommissionCommand
	DrainOutbox      *attrcommand.DrainOutboxCommand
}

type Queries struct {
	LoadCommission       *attrquery.LoadCommissionQuery
	LoadPayout           *attrquery.LoadPayoutQuery
	GetCustomer          *attrquery.GetCustomerQuery
	LoadClick            *attrquery.LoadClickQuery
	ListWebhookEndpoints *attrquery.ListWebhookEndpointsQuery
}

func New(cfg Config, deps Dependencies, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := deps.Stores.validate(); err != nil {
		return nil, err
	}
	if deps.Processor == nil {
		return nil, fmt.Errorf("attribution: processor client is required")
	}
	if deps.Converter == nil {
		return nil, fmt.Errorf("attribution: currency converter is required")
	}
	if deps.Rules == nil {
		return nil, fmt.Errorf("attribution: commission rules are required")
	}

	cfgOpts := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfgOpts)
		}
	}

	observer := core.NewObserver(
		resolveLogger(cfg.ServiceName, cfgOpts.loggerProvider, cfgOpts.logger),
		cfgOpts.metrics,
		cfg.ServiceName,
	)

	stores := deps.Stores
	if cfgOpts.clickCache != nil {
		cached, err := sqlstore.NewCachedClickStore(stores.Clicks, cfgOpts.clickCache)
		if err != nil {
			return nil, err
		}
		stores.Clicks = cached
	}

	secrets := deps.Secrets
	if secrets == nil {
		secrets = core.StaticSecretProvider{Secrets: cfg.Secrets}
	}
	verifier, err := webhooks.NewSignatureVerifier(secrets, cfg.SignatureTolerance)
	if err != nil {
		return nil, err
	}

	runner := notify.NewRunner(observer)
	notifier, err := notify.NewNotifier(notify.NotifierDependencies{
		Outbox:   stores.Outbox,
		Runner:   runner,
		Observer: observer,
	})
	if err != nil {
		return nil, err
	}

	workflows := deps.Workflows
	if workflows == nil {
		workflows, err = attrcommand.NewDispatchingWorkflowEmitter(attrcommand.NewBusDispatcher())
		if err != nil {
			return nil, err
		}
	}
	stats := deps.Stats
	if stats == nil {
		stats, err = attrcommand.NewDispatchingStatsResyncer(attrcommand.NewBusDispatcher())
		if err != nil {
			return nil, err
		}
	}

	commissions, err := commission.NewAttributor(commission.Dependencies{
		Commissions: stores.Commissions,
		Processor:   deps.Processor,
		Rules:       deps.Rules,
		Workflows:   workflows,
		Stats:       stats,
		Background:  runner,
		Observer:    observer,
	})
	if err != nil {
		return nil, err
	}

	rec, err := attrrecorder.New(cfg, attrrecorder.Dependencies{
		Sales:      stores.Sales,
		Leads:      stores.Leads,
		Links:      stores.Links,
		Customers:  stores.Customers,
		Workspaces: stores.Workspaces,
		Converter:  deps.Converter,
		Observer:   observer,
	})
	if err != nil {
		return nil, err
	}

	resolver, err := identity.NewResolver(cfg, identity.Dependencies{
		Customers: stores.Customers,
		Clicks:    stores.Clicks,
		Leads:     stores.Leads,
		Links:     stores.Links,
		Discounts: stores.Discounts,
		Processor: deps.Processor,
		Writer:    rec,
		Observer:  observer,
	})
	if err != nil {
		return nil, err
	}

	dispatcher, err := webhooks.NewDispatcher(cfg, webhooks.Dependencies{
		Verifier:    verifier,
		Claims:      stores.Claims,
		Workspaces:  stores.Workspaces,
		Resolver:    resolver,
		Recorder:    rec,
		Commissions: commissions,
		Notifier:    notifier,
		Customers:   stores.Customers,
		Links:       stores.Links,
		Observer:    observer,
	})
	if err != nil {
		return nil, err
	}

	sender := notify.NewHTTPSender(notify.HTTPSenderConfig{Client: cfgOpts.httpClient})
	outbox, err := notify.NewOutboxDispatcher(notify.OutboxDispatcherDependencies{
		Outbox:    stores.Outbox,
		Endpoints: stores.Endpoints,
		Sender:    sender,
		Observer:  observer,
	}, cfgOpts.outboxConfig)
	if err != nil {
		return nil, err
	}

	svc := &Service{
		config:      cfg,
		observer:    observer,
		stores:      stores,
		runner:      runner,
		notifier:    notifier,
		outbox:      outbox,
		resolver:    resolver,
		recorder:    rec,
		commissions: commissions,
		dispatcher:  dispatcher,
	}
	svc.commands = Commands{
		RecordSale:       attrcommand.NewRecordSaleCommand(rec),
		RecordLead:       attrcommand.NewRecordLeadCommand(rec),
		RefundCommission: attrcommand.NewRefundCommissionCommand(commissions),
		DrainOutbox:      attrcommand.NewDrainOutboxCommand(outbox),
	}
	svc.queries = Queries{
		LoadCommission:       attrquery.NewLoadCommissionQuery(stores.Commissions),
		LoadPayout:           attrquery.NewLoadPayoutQuery(stores.Payouts),
		GetCustomer:          attrquery.NewGetCustomerQuery(stores.Customers),
		LoadClick:            attrquery.NewLoadClickQuery(stores.Clicks),
		ListWebhookEndpoints: attrquery.NewListWebhookEndpointsQuery(stores.Endpoints),
	}
	return svc, nil
}

// NewFromLoader resolves configuration through the layered config path
// (defaults, loader output, runtime overrides) before assembling the
// service.
func NewFromLoader(ctx context.Context, loader core.RawConfigLoader, runtime Config, deps Dependencies, opts ...Option) (*Service, error) {
	cfg, err := core.ResolveConfig(ctx, core.NewCfgxConfigProvider(loader), core.GoOptionsResolver{}, runtime)
	if err != nil {
		return nil, err
	}
	return New(cfg, deps, opts...)
}

// Dispatch runs one raw webhook delivery through the pipeline.
func (s *Service) Dispatch(ctx context.Context, delivery Delivery) (Result, error) {
	if s == nil || s.dispatcher == nil {
		return Result{}, fmt.Errorf("attribution: service is not configured")
	}
	return s.dispatcher.Dispatch(ctx, delivery)
}

// DispatchPendingNotifications drains one outbox batch; schedule it on a
// recurring job.
func (s *Service) DispatchPendingNotifications(ctx context.Context, batchSize int) (notify.DispatchStats, error) {
	if s == nil || s.outbox == nil {
		return notify.DispatchStats{}, fmt.Errorf("attribution: service is not configured")
	}
	return s.outbox.DispatchPending(ctx, batchSize)
}

// Shutdown waits for in-flight background tasks (notification enqueues,
// workflow emits) to finish or the context to expire.
func (s *Service) Shutdown(ctx context.Context) error {
	if s == nil || s.runner == nil {
		return nil
	}
	return s.runner.Shutdown(ctx)
}

func (s *Service) Commands() Commands {
	if s == nil {
		return Commands{}
	}
	return s.commands
}

func (s *Service) Queries() Queries {
	if s == nil {
		return Queries{}
	}
	return s.queries
}

func (s *Service) Dispatcher() *webhooks.Dispatcher {
	if s == nil {
		return nil
	}
	return s.dispatcher
}

func (s *Service) OutboxDispatcher() *notify.OutboxDispatcher {
	if s == nil {
		return nil
	}
	return s.outbox
}

func (s *Service) Observer() *core.Observer {
	if s == nil {
		return nil
	}
	return s.observer
}

func resolveLogger(name string, provider core.LoggerProvider, logger core.Logger) core.Logger {
	_, resolved := glog.Resolve(name, provider, logger)
	return resolved
}
