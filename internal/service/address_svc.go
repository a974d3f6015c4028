package service

import (
	"context"
	"strings"

	"card_market_v1/internal/api/dto"
	"card_market_v1/internal/model"
	"card_market_v1/internal/repository"
)

// AddressService 地址簿
// 列表非空时恰好一个默认地址
type AddressService struct {
	uow *repository.MarketUnitOfWork
}

// NewAddressService 创建地址簿服务
func NewAddressService(uow *repository.MarketUnitOfWork) *AddressService {
	return &AddressService{uow: uow}
}

// List 按添加顺序返回
func (s *AddressService) List(ctx context.Context, caller *Caller) ([]model.Address, error) {
	if err := RequireRole(caller, RoleUser); err != nil {
		return nil, err
	}
	list, err := s.uow.Addresses.ListByUser(ctx, caller.UserID)
	if err != nil {
		return nil, internalError("list addresses", err)
	}
	return list, nil
}

// Add 新增地址；第一条地址自动成为默认
func (s *AddressService) Add(ctx context.Context, caller *Caller, req *dto.AddAddressRequest) (*model.Address, error) {
	if err := RequireRole(caller, RoleUser); err != nil {
		return nil, err
	}
	addr := &model.Address{
		UserID:   caller.UserID,
		Province: strings.TrimSpace(req.Province),
		District: strings.TrimSpace(req.District),
		Ward:     strings.TrimSpace(req.Ward),
		Street:   strings.TrimSpace(req.Street),
	}
	if addr.Province == "" || addr.District == "" || addr.Ward == "" || addr.Street == "" {
		return nil, NewValidationError("地址信息不完整")
	}

	err := s.uow.Transaction(ctx, func(tx *repository.MarketUnitOfWork) error {
		count, err := tx.Addresses.CountByUser(ctx, caller.UserID)
		if err != nil {
			return internalError("count addresses", err)
		}
		if err := tx.Addresses.Create(ctx, addr); err != nil {
			return internalError("create address", err)
		}
		if count == 0 || req.IsDefault {
			if err := tx.Addresses.SetDefault(ctx, caller.UserID, addr.ID); err != nil {
				return internalError("set default address", err)
			}
			addr.IsDefault = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return addr, nil
}

// SetDefault 设为默认，其余地址取消默认
func (s *AddressService) SetDefault(ctx context.Context, caller *Caller, addressID int64) error {
	if err := RequireRole(caller, RoleUser); err != nil {
		return err
	}
	return s.uow.Transaction(ctx, func(tx *repository.MarketUnitOfWork) error {
		addr, err := tx.Addresses.Get(ctx, caller.UserID, addressID)
		if err != nil {
			return internalError("get address", err)
		}
		if addr == nil {
			return ErrAddressNotFound
		}
		if err := tx.Addresses.SetDefault(ctx, caller.UserID, addressID); err != nil {
			return internalError("set default address", err)
		}
		return nil
	})
}

// Delete 删除地址；删除的是默认地址时最早添加的剩余地址成为默认
func (s *AddressService) Delete(ctx context.Context, caller *Caller, addressID int64) error {
	if err := RequireRole(caller, RoleUser); err != nil {
		return err
	}
	return s.uow.Transaction(ctx, func(tx *repository.MarketUnitOfWork) error {
		addr, err := tx.Addresses.Get(ctx, caller.UserID, addressID)
		if err != nil {
			return internalError("get address", err)
		}
		if addr == nil {
			return ErrAddressNotFound
		}
		if err := tx.Addresses.Delete(ctx, caller.UserID, addressID); err != nil {
			return internalError("delete address", err)
		}
		if !addr.IsDefault {
			return nil
		}

		rest, err := tx.Addresses.ListByUser(ctx, caller.UserID)
		if err != nil {
			return internalError("list addresses", err)
		}
		if len(rest) == 0 {
			return nil
		}
		if err := tx.Addresses.SetDefault(ctx, caller.UserID, rest[0].ID); err != nil {
			return internalError("promote default address", err)
		}
		return nil
	})
}
