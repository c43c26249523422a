package uow

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/staymarket/order/internal/dal/interfaces/iorderrepo"
	"github.com/staymarket/order/internal/dal/interfaces/ioutboxrepo"
	"github.com/staymarket/order/internal/dal/interfaces/iproductrepo"
	"github.com/staymarket/order/internal/dal/postgres"
	orderrepo "github.com/staymarket/order/internal/dal/repositories/order/postgres"
	outboxrepo "github.com/staymarket/order/internal/dal/repositories/outbox/postgres"
	productrepo "github.com/staymarket/order/internal/dal/repositories/product/postgres"
)

// UnitOfWork scopes repository operations to one transaction. Before Begin the
// repositories run directly against the pool; after Begin they share a pgx
// transaction until Commit or Rollback.
type UnitOfWork struct {
	client *postgres.Client
	tx     pgx.Tx
	ctx    context.Context

	orderRepo   iorderrepo.IOrderRepository
	productRepo iproductrepo.IProductRepository
	outboxRepo  ioutboxrepo.IOutboxRepository
}

// NewUnitOfWork creates a unit of work over the Postgres client.
func NewUnitOfWork(client *postgres.Client) *UnitOfWork {
	return &UnitOfWork{
		client:      client,
		orderRepo:   orderrepo.NewOrderRepository(client.Pool()),
		productRepo: productrepo.NewProductRepository(client.Pool()),
		outboxRepo:  outboxrepo.NewOutboxRepository(client.Pool()),
	}
}

func (u *UnitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *UnitOfWork) ProductRepository() iproductrepo.IProductRepository {
	return u.productRepo
}

func (u *UnitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return u.outboxRepo
}

func (u *UnitOfWork) Begin(ctx context.Context) error {
	tx, err := u.client.Pool().Begin(ctx)
	if err != nil {
		return err
	}

	u.tx = tx
	u.ctx = ctx
	u.orderRepo = orderrepo.NewOrderRepository(tx)
	u.productRepo = productrepo.NewProductRepository(tx)
	u.outboxRepo = outboxrepo.NewOutboxRepository(tx)

	return nil
}

func (u *UnitOfWork) Commit() error {
	if u.tx == nil {
		return nil
	}
	return u.tx.Commit(u.ctx)
}

func (u *UnitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}
	err := u.tx.Rollback(u.ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}
