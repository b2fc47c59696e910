package services

import (
	"context"

	"github.com/purelygoods/storefront/pkg/dispatcher"
	"github.com/purelygoods/storefront/pkg/endpoints"
)

var cartPingKey = endpoints.Key{Service: endpoints.ServiceCart, Operation: endpoints.OperationPing}

// CartService calls the cart backend.
type CartService struct {
	client *Client
}

// NewCartService creates a CartService on top of client.
func NewCartService(client *Client) *CartService {
	return &CartService{client: client}
}

// Ping dispatches CART.PING.
func (s *CartService) Ping(ctx context.Context) dispatcher.Outcome {
	return s.client.call(ctx, cartPingKey, s.client.registry.CartPing())
}
