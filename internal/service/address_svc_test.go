package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card_market_v1/internal/api/dto"
)

func addrReq(street string) *dto.AddAddressRequest {
	return &dto.AddAddressRequest{Province: "河内", District: "还剑郡", Ward: "行鼓坊", Street: street}
}

func defaultIDs(t *testing.T, env *testEnv, caller *Caller) []int64 {
	t.Helper()
	list, err := env.addresses.List(context.Background(), caller)
	require.NoError(t, err)
	var ids []int64
	for _, a := range list {
		if a.IsDefault {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

func TestAddressService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	caller := CallerFromUser(env.createUser(t, "alice"))

	first, err := env.addresses.Add(ctx, caller, addrReq("1 号"))
	require.NoError(t, err)
	assert.True(t, first.IsDefault, "第一条地址自动成为默认")

	second, err := env.addresses.Add(ctx, caller, addrReq("2 号"))
	require.NoError(t, err)
	assert.False(t, second.IsDefault)

	third, err := env.addresses.Add(ctx, caller, &dto.AddAddressRequest{
		Province: "河内", District: "还剑郡", Ward: "行鼓坊", Street: "3 号", IsDefault: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{third.ID}, defaultIDs(t, env, caller))

	t.Run("设置默认", func(t *testing.T) {
		require.NoError(t, env.addresses.SetDefault(ctx, caller, second.ID))
		assert.Equal(t, []int64{second.ID}, defaultIDs(t, env, caller))
	})

	t.Run("删除默认地址后最早的地址接替", func(t *testing.T) {
		require.NoError(t, env.addresses.Delete(ctx, caller, second.ID))
		assert.Equal(t, []int64{first.ID}, defaultIDs(t, env, caller))
	})

	t.Run("删除非默认地址", func(t *testing.T) {
		require.NoError(t, env.addresses.Delete(ctx, caller, third.ID))
		assert.Equal(t, []int64{first.ID}, defaultIDs(t, env, caller))
	})

	t.Run("删除最后一条", func(t *testing.T) {
		require.NoError(t, env.addresses.Delete(ctx, caller, first.ID))
		list, err := env.addresses.List(ctx, caller)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("他人地址", func(t *testing.T) {
		other := CallerFromUser(env.createUser(t, "bob"))
		addr, err := env.addresses.Add(ctx, other, addrReq("bob 的家"))
		require.NoError(t, err)

		assert.ErrorIs(t, env.addresses.SetDefault(ctx, caller, addr.ID), ErrAddressNotFound)
		assert.ErrorIs(t, env.addresses.Delete(ctx, caller, addr.ID), ErrAddressNotFound)
	})

	t.Run("字段不完整", func(t *testing.T) {
		_, err := env.addresses.Add(ctx, caller, &dto.AddAddressRequest{Province: "河内"})
		assert.Equal(t, KindValidation, KindOf(err))
	})
}
