package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrder_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusCompleted, true},
		{OrderStatusShipped, OrderStatusCancelled, true},
		{OrderStatusShipped, OrderStatusPending, false},
		{OrderStatusCompleted, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusCancelled, false},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			o := &Order{Status: tt.from}
			assert.Equal(t, tt.want, o.CanTransitionTo(tt.to))
		})
	}
}

func TestOrder_IsTerminal(t *testing.T) {
	assert.True(t, (&Order{Status: OrderStatusCompleted}).IsTerminal())
	assert.True(t, (&Order{Status: OrderStatusCancelled}).IsTerminal())
	assert.False(t, (&Order{Status: OrderStatusShipped}).IsTerminal())
}

func TestOrder_ItemsSubtotal(t *testing.T) {
	t.Run("正常累加", func(t *testing.T) {
		o := &Order{Items: []OrderItem{{Price: 1000, Quantity: 2}, {Price: 1500, Quantity: 1}}}
		sum, ok := o.ItemsSubtotal()
		assert.True(t, ok)
		assert.Equal(t, int64(3500), sum)
	})

	t.Run("单行溢出", func(t *testing.T) {
		line := OrderItem{Price: math.MaxInt64/2 + 1, Quantity: 2}
		_, ok := line.LineTotal()
		assert.False(t, ok)
	})

	t.Run("累加溢出", func(t *testing.T) {
		o := &Order{Items: []OrderItem{{Price: math.MaxInt64 - 1, Quantity: 1}, {Price: 2, Quantity: 1}}}
		_, ok := o.ItemsSubtotal()
		assert.False(t, ok)
	})
}
