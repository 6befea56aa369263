package certificate

import (
	"context"

	"shopledger/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

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

// MockOrderRepository is a mock implementation of
// repository.OrderRepository.
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

// MockTx is a minimal mock implementation of pgx.Tx for testing.
type MockTx struct {
	mock.Mock
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Stub methods to satisfy pgx.Tx interface - these are not used in our tests
func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *MockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error) {
	return
}
func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *MockTx) Conn() *pgx.Conn                                               { return nil }
