package controller

import (
	"card_market_v1/internal/api/dto"
	"card_market_v1/internal/model"
)

// ==================== Model -> VO ====================

func toUserVO(u *model.User) *dto.UserVO {
	vo := &dto.UserVO{
		ID:                       u.ID,
		Username:                 u.Username,
		Email:                    u.Email,
		FullName:                 u.FullName,
		PhoneNumber:              u.PhoneNumber,
		ProfilePicture:           u.ProfilePicture,
		IsAdmin:                  u.IsAdmin,
		SellerStatus:             u.SellerStatus,
		ShopName:                 u.ShopName,
		SellerCancellationReason: u.SellerCancellationReason,
		IsBanned:                 u.IsBanned,
		BanReason:                u.BanDetails.Reason,
		BannedUntil:              u.BanDetails.Until,
		AverageRating:            u.AverageRating,
		Addresses:                make([]dto.AddressVO, 0, len(u.Addresses)),
		UpdatedAt:                u.UpdatedAt,
	}
	for i := range u.Addresses {
		vo.Addresses = append(vo.Addresses, toAddressVO(&u.Addresses[i]))
	}
	return vo
}

func toUserVOs(users []model.User) []*dto.UserVO {
	list := make([]*dto.UserVO, 0, len(users))
	for i := range users {
		list = append(list, toUserVO(&users[i]))
	}
	return list
}

func toAddressVO(a *model.Address) dto.AddressVO {
	return dto.AddressVO{
		ID:        a.ID,
		Province:  a.Province,
		District:  a.District,
		Ward:      a.Ward,
		Street:    a.Street,
		IsDefault: a.IsDefault,
	}
}

func toProductVO(p *model.Product) dto.ProductVO {
	return dto.ProductVO{
		ID:               p.ID,
		SellerID:         p.SellerID,
		Name:             p.Name,
		Description:      p.Description,
		Images:           []string(p.Images),
		Category:         p.Category,
		Condition:        p.Condition,
		SaleType:         p.SaleType,
		Price:            p.Price,
		Stock:            p.Stock,
		Tags:             []string(p.Tags),
		AuctionEndDate:   p.AuctionEndDate,
		CurrentBid:       p.CurrentBid,
		ModerationStatus: p.ModerationStatus,
		Status:           p.Status,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func toProductVOs(products []model.Product) []dto.ProductVO {
	list := make([]dto.ProductVO, 0, len(products))
	for i := range products {
		list = append(list, toProductVO(&products[i]))
	}
	return list
}

func toOrderVO(o *model.Order) dto.OrderVO {
	addr := o.ShippingAddress.Data()
	vo := dto.OrderVO{
		ID:            o.ID,
		OrderNo:       o.OrderNo,
		BuyerID:       o.BuyerID,
		SellerID:      o.SellerID,
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		ShippingAddress: dto.ShippingAddressDTO{
			FullName:    addr.FullName,
			PhoneNumber: addr.PhoneNumber,
			Province:    addr.Province,
			District:    addr.District,
			Ward:        addr.Ward,
			Street:      addr.Street,
		},
		Items:       make([]dto.OrderItemVO, 0, len(o.Items)),
		Subtotal:    o.Subtotal,
		ShippingFee: o.ShippingFee,
		TotalAmount: o.TotalAmount,
		CreatedAt:   o.CreatedAt,
		CancelledAt: o.CancelledAt,
		CompletedAt: o.CompletedAt,
	}
	for _, it := range o.Items {
		vo.Items = append(vo.Items, dto.OrderItemVO{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Image:     it.Image,
		})
	}
	return vo
}

func toOrderVOs(orders []model.Order) []dto.OrderVO {
	list := make([]dto.OrderVO, 0, len(orders))
	for i := range orders {
		list = append(list, toOrderVO(&orders[i]))
	}
	return list
}
