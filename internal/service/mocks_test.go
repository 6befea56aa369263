package service

import (
	"context"

	"shopledger/internal/event"
	"shopledger/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockOrderRepository is a mock implementation of repository.OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) Create(ctx context.Context, order *model.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) Merge(ctx context.Context, id string, patch *model.OrderPatch) (*model.Order, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) Replace(ctx context.Context, order *model.Order, expectedVersion int64) (*model.Order, error) {
	args := m.Called(ctx, order, expectedVersion)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetForSettlement(ctx context.Context, tx pgx.Tx, id string) (*model.Order, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) RecordSettlement(ctx context.Context, tx pgx.Tx, id string, result *model.SettlementResult) error {
	args := m.Called(ctx, tx, id, result)
	return args.Error(0)
}

func (m *MockOrderRepository) IDsForYear(ctx context.Context, year int) ([]string, error) {
	args := m.Called(ctx, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockCertificateRepository is a mock implementation of
// repository.CertificateRepository.
type MockCertificateRepository struct {
	mock.Mock
}

func (m *MockCertificateRepository) Create(ctx context.Context, cert *model.GiftCertificate) error {
	args := m.Called(ctx, cert)
	return args.Error(0)
}

func (m *MockCertificateRepository) GetByCode(ctx context.Context, code string) (*model.GiftCertificate, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GiftCertificate), args.Error(1)
}

func (m *MockCertificateRepository) Decrement(ctx context.Context, tx pgx.Tx, code string, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	args := m.Called(ctx, tx, code, amount)
	return args.Get(0).(decimal.Decimal), args.Get(1).(decimal.Decimal), args.Error(2)
}

func (m *MockCertificateRepository) ListCodes(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockAllocator is a mock implementation of certificate.Allocator.
type MockAllocator struct {
	mock.Mock
}

func (m *MockAllocator) Allocate(ctx context.Context, orderTotal decimal.Decimal, codes []string) (*model.AllocationResult, error) {
	args := m.Called(ctx, orderTotal, codes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AllocationResult), args.Error(1)
}

// MockSettler is a mock implementation of certificate.Settler.
type MockSettler struct {
	mock.Mock
}

func (m *MockSettler) Settle(ctx context.Context, orderID string) (*model.SettlementResult, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SettlementResult), args.Error(1)
}

// MockValidator is a mock implementation of certificate.Validator.
type MockValidator struct {
	mock.Mock
}

func (m *MockValidator) Validate(ctx context.Context, code string, requested decimal.Decimal) (*model.ValidationResult, error) {
	args := m.Called(ctx, code, requested)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ValidationResult), args.Error(1)
}

// MockInventoryClient is a mock implementation of inventory.Client.
type MockInventoryClient struct {
	mock.Mock
}

func (m *MockInventoryClient) Snapshot(ctx context.Context, productIDs []string) (map[string]string, error) {
	args := m.Called(ctx, productIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

// MockPublisher is a mock implementation of event.Publisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishMail(ctx context.Context, evt event.MailEvent) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}
