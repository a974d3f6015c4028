package repository

import (
	"context"

	"gorm.io/gorm"
)

// MarketUnitOfWork 交易工作单元（事务）
type MarketUnitOfWork struct {
	db        *gorm.DB
	Products  ProductRepository
	Orders    OrderRepository
	Users     UserRepository
	Addresses AddressRepository
}

// NewMarketUnitOfWork 创建工作单元
func NewMarketUnitOfWork(db *gorm.DB) *MarketUnitOfWork {
	return &MarketUnitOfWork{
		db:        db,
		Products:  NewProductRepository(db),
		Orders:    NewOrderRepository(db),
		Users:     NewUserRepository(db),
		Addresses: NewAddressRepository(db),
	}
}

// Transaction 执行事务，fn 返回错误时整体回滚
func (u *MarketUnitOfWork) Transaction(ctx context.Context, fn func(uow *MarketUnitOfWork) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txUow := &MarketUnitOfWork{
			db:        tx,
			Products:  u.Products.WithTx(tx),
			Orders:    u.Orders.WithTx(tx),
			Users:     u.Users.WithTx(tx),
			Addresses: u.Addresses.WithTx(tx),
		}
		return fn(txUow)
	})
}
