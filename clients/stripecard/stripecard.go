// Package stripecard implements the payment capability consumed by the
// submission client: card payment-method creation and SCA card-action
// confirmation over the Stripe API.
package stripecard

import (
	"context"
	"fmt"
	"strings"

	"github.com/formspree/formspree-go/clients/forms"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
)

// TokenFunc supplies the card token collected from the hosted card input.
type TokenFunc func(ctx context.Context) (string, error)

// Payments implements forms.CardConfirmer and provides the payment-method
// creation half of the capability, bound to the submission data the billing
// details are read from.
type Payments struct {
	api   *client.API
	token TokenFunc
	data  forms.SubmissionData
}

// New returns a Payments capability over the given Stripe client.
func New(api *client.API, token TokenFunc, data forms.SubmissionData) *Payments {
	return &Payments{
		api:   api,
		token: token,
		data:  data,
	}
}

// CreatePaymentMethod creates a card payment method from the configured
// token source, with billing details mapped from the submission data.
func (p *Payments) CreatePaymentMethod(ctx context.Context) (*forms.PaymentMethod, error) {
	tok, err := p.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("error fetching card token: %w", err)
	}

	params := &stripe.PaymentMethodParams{
		Type: stripe.String("card"),
		Card: &stripe.PaymentMethodCardParams{
			Token: stripe.String(tok),
		},
		BillingDetails: BillingDetails(p.data),
	}
	params.Context = ctx

	pm, err := p.api.PaymentMethods.New(params)
	if err != nil {
		return nil, fmt.Errorf("error creating payment method: %w", err)
	}

	return &forms.PaymentMethod{ID: pm.ID}, nil
}

// Creator returns the zero-argument capability passed to Submit via
// SubmissionOptions.CreatePaymentMethod.
func (p *Payments) Creator() forms.CreatePaymentMethodFunc {
	return p.CreatePaymentMethod
}

// ConfirmCardAction confirms the payment intent identified by the client
// secret, completing the SCA step.
func (p *Payments) ConfirmCardAction(ctx context.Context, clientSecret string) (*forms.PaymentIntent, error) {
	id, err := intentIDFromSecret(clientSecret)
	if err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentConfirmParams{}
	// stripe-go does not model client_secret on the confirm params; send it
	// as an extra form field.
	params.AddExtra("client_secret", clientSecret)
	params.Context = ctx

	pi, err := p.api.PaymentIntents.Confirm(id, params)
	if err != nil {
		return nil, fmt.Errorf("error confirming payment intent: %w", err)
	}

	return &forms.PaymentIntent{ID: pi.ID}, nil
}

// intentIDFromSecret derives the payment intent id from a client secret of
// the form pi_xxx_secret_yyy.
func intentIDFromSecret(clientSecret string) (string, error) {
	id, _, found := strings.Cut(clientSecret, "_secret")
	if !found || id == "" {
		return "", fmt.Errorf("invalid payment intent client secret")
	}
	return id, nil
}

// billing details source keys in the submission data
const (
	keyName       = "name"
	keyEmail      = "email"
	keyPhone      = "phone"
	keyLine1      = "address_line1"
	keyLine2      = "address_line2"
	keyCity       = "address_city"
	keyCountry    = "address_country"
	keyState      = "address_state"
	keyPostalCode = "address_postal_code"
)

// BillingDetails maps submitted field names into the billing details shape
// the Stripe API expects. Only keys present with a non-empty string value
// are copied; the address block is omitted entirely when no address key is
// set.
func BillingDetails(data forms.SubmissionData) *stripe.BillingDetailsParams {
	details := &stripe.BillingDetailsParams{}

	if v := data.Get(keyName); v != "" {
		details.Name = stripe.String(v)
	}
	if v := data.Get(keyEmail); v != "" {
		details.Email = stripe.String(v)
	}
	if v := data.Get(keyPhone); v != "" {
		details.Phone = stripe.String(v)
	}

	address := &stripe.AddressParams{}
	populated := false
	if v := data.Get(keyLine1); v != "" {
		address.Line1 = stripe.String(v)
		populated = true
	}
	if v := data.Get(keyLine2); v != "" {
		address.Line2 = stripe.String(v)
		populated = true
	}
	if v := data.Get(keyCity); v != "" {
		address.City = stripe.String(v)
		populated = true
	}
	if v := data.Get(keyCountry); v != "" {
		address.Country = stripe.String(v)
		populated = true
	}
	if v := data.Get(keyState); v != "" {
		address.State = stripe.String(v)
		populated = true
	}
	if v := data.Get(keyPostalCode); v != "" {
		address.PostalCode = stripe.String(v)
		populated = true
	}
	if populated {
		details.Address = address
	}

	return details
}
