package smkproto

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validOrder() *OrderCreate {
	return NewOrderCreate(Uuid128{Low: 1}, Uuid128{Low: 2}, SideBuy, 400000, 2500)
}

func TestOrderCreateValidate(t *testing.T) {
	assert.NoError(t, validOrder().Validate())

	cases := map[string]func(o *OrderCreate){
		"price zero":        func(o *OrderCreate) { o.Price = 0 },
		"price too high":    func(o *OrderCreate) { o.Price = 10000 },
		"quantity too low":  func(o *OrderCreate) { o.Quantity = 999 },
		"quantity too high": func(o *OrderCreate) { o.Quantity = MaxQuantity + 1 },
		"side":              func(o *OrderCreate) { o.Side = 3 },
		"market":            func(o *OrderCreate) { o.Market = Uuid128{} },
		"contract":          func(o *OrderCreate) { o.Contract = Uuid128{} },
		"time in force":     func(o *OrderCreate) { o.TimeInForce = 7 },
	}
	for name, mutate := range cases {
		o := validOrder()
		mutate(o)
		err := o.Validate()
		assert.True(t, errors.Is(err, ErrInvalidOrder), name)
	}
}

func TestOrderCreateBounds(t *testing.T) {
	o := validOrder()
	o.Price, o.Quantity = MinPrice, MinQuantity
	assert.NoError(t, o.Validate())
	o.Price, o.Quantity = MaxPrice, MaxQuantity
	assert.NoError(t, o.Validate())
}

func TestOrderCreateCopyTo(t *testing.T) {
	o := validOrder()
	o.TimeInForce = 0
	var p Payload
	o.CopyTo(&p)
	assert.Equal(t, SetoOrderCreate, p.Type)
	assert.Equal(t, ImmediateOrCancel, p.OrderCreate.TimeInForce)
	assert.Equal(t, TimeInForce(0), o.TimeInForce)
}
