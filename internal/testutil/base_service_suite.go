package testutil

import (
	"context"
	"encoding/json"
	"time"

	"github.com/flexprice/subscriptions/internal/config"
	"github.com/flexprice/subscriptions/internal/domain/invoice"
	"github.com/flexprice/subscriptions/internal/domain/subscription"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/postgres"
	"github.com/flexprice/subscriptions/internal/types"
	"github.com/flexprice/subscriptions/internal/validator"
	webhookPublisher "github.com/flexprice/subscriptions/internal/webhook/publisher"
	"github.com/stretchr/testify/suite"
)

// Stores holds the in-memory repositories used by service tests
type Stores struct {
	PlanRepo          *InMemoryPlanStore
	PaymentMethodRepo *InMemoryPaymentMethodStore
	SubscriptionRepo  *InMemorySubscriptionStore
	InvoiceRepo       *InMemoryInvoiceStore
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx              context.Context
	stores           Stores
	pubsub           *InMemoryPubSub
	webhookPublisher webhookPublisher.WebhookPublisher
	db               *MockPostgresClient
	logger           *logger.Logger
	config           *config.Configuration
	now              time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = types.LogLevelInfo
	cfg.Webhook.Enabled = true
	cfg.Webhook.URL = "http://localhost/webhooks"
	cfg.Billing.MaxRetries = 2
	cfg.Billing.SweepConcurrency = 4

	var err error
	s.config = cfg
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		PlanRepo:          NewInMemoryPlanStore(),
		PaymentMethodRepo: NewInMemoryPaymentMethodStore(),
		SubscriptionRepo:  NewInMemorySubscriptionStore(),
		InvoiceRepo:       NewInMemoryInvoiceStore(),
	}
	s.stores.PaymentMethodRepo.SetInUseCheck(s.paymentMethodInUse)

	s.db = NewMockPostgresClient(s.logger)
	s.pubsub = NewInMemoryPubSub()
	publisher, err := webhookPublisher.NewPublisher(s.pubsub, s.config, s.logger)
	if err != nil {
		s.T().Fatalf("failed to create webhook publisher: %v", err)
	}
	s.webhookPublisher = publisher
}

func (s *BaseServiceTestSuite) paymentMethodInUse(ctx context.Context, id string) bool {
	subs, _ := s.stores.SubscriptionRepo.Count(ctx, nil, func(_ context.Context, sub *subscription.Subscription, _ interface{}) bool {
		return sub.PaymentMethodID == id
	})
	invoices, _ := s.stores.InvoiceRepo.Count(ctx, nil, func(_ context.Context, inv *invoice.Invoice, _ interface{}) bool {
		return inv.PaymentMethodID == id
	})
	return subs+invoices > 0
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.PlanRepo.Clear()
	s.stores.PaymentMethodRepo.Clear()
	s.stores.SubscriptionRepo.Clear()
	s.stores.InvoiceRepo.Clear()
	s.pubsub.ClearMessages()
}

func (s *BaseServiceTestSuite) ClearStores() {
	s.clearStores()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetStores returns all test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetWebhookPublisher returns the test webhook publisher
func (s *BaseServiceTestSuite) GetWebhookPublisher() webhookPublisher.WebhookPublisher {
	return s.webhookPublisher
}

// GetDB returns the test database client
func (s *BaseServiceTestSuite) GetDB() postgres.IClient {
	return s.db
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetNow returns the current test time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now.UTC()
}

// GetWebhookEvents decodes the events published so far, optionally only those named eventName
func (s *BaseServiceTestSuite) GetWebhookEvents(eventName string) []types.WebhookEvent {
	events := make([]types.WebhookEvent, 0)
	for _, msg := range s.pubsub.GetMessages(s.config.Webhook.Topic) {
		var event types.WebhookEvent
		s.Require().NoError(json.Unmarshal(msg.Payload, &event))
		if eventName == "" || event.EventName == eventName {
			events = append(events, event)
		}
	}
	return events
}
