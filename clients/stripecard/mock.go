package stripecard

import (
	"context"

	"github.com/formspree/formspree-go/clients/forms"
)

// MockPayments is a hand-rolled capability mock for tests.
type MockPayments struct {
	FnCreatePaymentMethod func(ctx context.Context) (*forms.PaymentMethod, error)
	FnConfirmCardAction   func(ctx context.Context, clientSecret string) (*forms.PaymentIntent, error)
}

func (m *MockPayments) CreatePaymentMethod(ctx context.Context) (*forms.PaymentMethod, error) {
	if m.FnCreatePaymentMethod == nil {
		return &forms.PaymentMethod{ID: "pm_default"}, nil
	}

	return m.FnCreatePaymentMethod(ctx)
}

func (m *MockPayments) Creator() forms.CreatePaymentMethodFunc {
	return m.CreatePaymentMethod
}

func (m *MockPayments) ConfirmCardAction(ctx context.Context, clientSecret string) (*forms.PaymentIntent, error) {
	if m.FnConfirmCardAction == nil {
		return &forms.PaymentIntent{ID: "pi_default"}, nil
	}

	return m.FnConfirmCardAction(ctx, clientSecret)
}
