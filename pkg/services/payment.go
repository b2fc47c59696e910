package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/purelygoods/storefront/pkg/dispatcher"
	"github.com/purelygoods/storefront/pkg/endpoints"
)

const paymentLogPrefix = "services:payment"

var paymentPingKey = endpoints.Key{Service: endpoints.ServicePayment, Operation: endpoints.OperationPing}

// PaymentService calls the payment backend.
type PaymentService struct {
	client *Client
}

// NewPaymentService creates a PaymentService on top of client.
func NewPaymentService(client *Client) *PaymentService {
	return &PaymentService{client: client}
}

// Ping dispatches PAYMENT.PING.
func (s *PaymentService) Ping(ctx context.Context) dispatcher.Outcome {
	return s.client.call(ctx, paymentPingKey, s.client.registry.PaymentPing())
}

// PaymentComponent is the payment feature. On Init it pings the payment
// backend and logs what came back.
type PaymentComponent struct {
	service *PaymentService
	logger  *slog.Logger

	call   *dispatcher.Call
	logged chan struct{}
}

// NewPaymentComponent creates a PaymentComponent. A nil logger uses slog.Default().
func NewPaymentComponent(service *PaymentService, logger *slog.Logger) *PaymentComponent {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentComponent{service: service, logger: logger}
}

// Init dispatches the ping and returns without waiting for the response. The
// outcome is logged when it arrives; a failure is logged, never returned.
// Init must be called once, before Wait.
func (c *PaymentComponent) Init(ctx context.Context) *dispatcher.Call {
	client := c.service.client
	call, published := client.dispatch(ctx, paymentPingKey, client.registry.PaymentPing())
	logged := make(chan struct{})
	c.call, c.logged = call, logged

	go func() {
		defer close(logged)
		<-published
		LogOutcome(c.logger, paymentLogPrefix, paymentPingKey, call.Wait())
	}()

	return call
}

// Wait blocks until the outcome of Init has been logged and returns it.
func (c *PaymentComponent) Wait() dispatcher.Outcome {
	<-c.logged
	return c.call.Wait()
}

// LogOutcome writes an outcome as log lines: "next" with the payload followed
// by "completed" on success, or a single "error" line with the cause.
func LogOutcome(logger *slog.Logger, prefix string, key endpoints.Key, out dispatcher.Outcome) {
	if !out.OK() {
		logger.Error(fmt.Sprintf("%s - %s error: %v", prefix, key, out.Err))
		return
	}
	logger.Info(fmt.Sprintf("%s - %s next: %s", prefix, key, string(out.Payload)))
	logger.Info(fmt.Sprintf("%s - %s completed", prefix, key))
}
