package messaging

import (
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestMessageCarrier_SetGet(t *testing.T) {
	msg := &kafka.Message{}
	c := NewMessageCarrier(msg)

	c.Set("traceparent", "00-abc-01")
	c.Set("baggage", "k=v")
	c.Set("traceparent", "00-def-01")

	assert.Equal(t, "00-def-01", c.Get("traceparent"))
	assert.Equal(t, "k=v", c.Get("baggage"))
	assert.Equal(t, "", c.Get("missing"))
	assert.ElementsMatch(t, []string{"traceparent", "baggage"}, c.Keys())
	assert.Len(t, msg.Headers, 2)
}
