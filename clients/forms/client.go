// Package forms implements the Formspree submission client: it posts form
// payloads, classifies the server's JSON responses and drives the two-phase
// payment confirmation protocol when a card payment is attached.
package forms

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/formspree/formspree-go/clients"
	errorutils "github.com/formspree/formspree-go/errors"
	"github.com/formspree/formspree-go/logging"
	"github.com/formspree/formspree-go/requestutils"
)

const (
	// Version is the submission protocol version reported to the server.
	Version = "3.0.0"

	// DefaultEndpoint is the production Formspree host.
	DefaultEndpoint = "https://formspree.io"
)

// clientHeader builds the Formspree-Client header value, prefixing the
// caller's label when one is supplied.
func clientHeader(clientName string) string {
	label := "@formspree/core@" + Version
	if clientName == "" {
		return label
	}
	return clientName + " " + label
}

// PaymentMethod is the handle returned by a successful payment-method
// creation.
type PaymentMethod struct {
	ID string
}

// PaymentIntent is the handle returned by a successful card-action
// confirmation.
type PaymentIntent struct {
	ID string
}

// CreatePaymentMethodFunc creates a payment method for the submission being
// posted. Supplied per call via SubmissionOptions.
type CreatePaymentMethodFunc func(ctx context.Context) (*PaymentMethod, error)

// CardConfirmer drives the card-action confirmation step of the SCA flow.
type CardConfirmer interface {
	ConfirmCardAction(ctx context.Context, clientSecret string) (*PaymentIntent, error)
}

// SubmissionOptions are the per-call options recognized by Submit.
type SubmissionOptions struct {
	// Endpoint overrides the base URL for this call.
	Endpoint string
	// ClientName is a free-text telemetry label merged into the
	// Formspree-Client header.
	ClientName string
	// CreatePaymentMethod, when set together with a configured payment
	// capability, attaches a card payment to the submission.
	CreatePaymentMethod CreatePaymentMethodFunc
}

// Config holds the immutable configuration of a client instance. Construct a
// new client rather than mutating a live one.
type Config struct {
	// Project scopes submissions to a project: /p/{project}/f/{formKey}.
	Project string
	// Payments is the card confirmation capability, nil when payments are
	// not in use.
	Payments CardConfirmer
	// HTTPClient overrides the transport, e.g. to supply custom timeouts.
	HTTPClient *http.Client
	// DisableTelemetry skips the session telemetry snapshot, the analogue
	// of running outside a browser context.
	DisableTelemetry bool
}

// Client abstracts over the underlying client
type Client interface {
	Submit(ctx context.Context, formKey string, data SubmissionData, opts SubmissionOptions) (SubmissionResult, error)
}

// HTTPClient is the concrete submission client.
type HTTPClient struct {
	project  string
	payments CardConfirmer
	session  *Session
	client   *http.Client
	http     *clients.SimpleHTTPClient
}

// New returns a new submission client wrapped with Prometheus.
func New(cfg Config) (Client, error) {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: time.Second * 10}
	}

	base, err := clients.NewWithHTTPClient(DefaultEndpoint, hc)
	if err != nil {
		return nil, err
	}

	var session *Session
	if !cfg.DisableTelemetry {
		session = newSession()
	}

	return newInstrumentedClient("formspree_client", &HTTPClient{
		project:  cfg.Project,
		payments: cfg.Payments,
		session:  session,
		client:   hc,
		http:     base,
	}), nil
}

var (
	defaultClient     Client
	defaultClientOnce sync.Once
)

// DefaultClient returns the process-wide default client, constructing it on
// first use. Prefer an explicit New client where injection matters.
func DefaultClient() Client {
	defaultClientOnce.Do(func() {
		defaultClient, _ = New(Config{})
	})
	return defaultClient
}

// Submit posts a submission through the process-wide default client.
func Submit(ctx context.Context, formKey string, data SubmissionData, opts SubmissionOptions) (SubmissionResult, error) {
	return DefaultClient().Submit(ctx, formKey, data, opts)
}

// Submit posts the payload for a form and returns the terminal result. All
// protocol and transport outcomes are SubmissionResult values; a non-nil
// error is reserved for programmer errors such as a missing form key.
func (c *HTTPClient) Submit(ctx context.Context, formKey string, data SubmissionData, opts SubmissionOptions) (SubmissionResult, error) {
	if strings.TrimSpace(formKey) == "" {
		return nil, errorutils.ErrMissingFormKey
	}
	if data == nil {
		return nil, errorutils.ErrUnsupportedData
	}

	ctx = requestutils.WithRequestID(ctx)
	logger := logging.Logger(ctx, "forms.Submit")

	httpc := c.http
	if opts.Endpoint != "" {
		override, err := clients.NewWithHTTPClient(opts.Endpoint, c.client)
		if err != nil {
			return nil, err
		}
		httpc = override
	}

	path := "/f/" + formKey
	if c.project != "" {
		path = "/p/" + c.project + "/f/" + formKey
	}

	working := data.working()

	if c.payments != nil && opts.CreatePaymentMethod != nil {
		return c.submitWithPayment(ctx, httpc, path, opts, working)
	}

	result := c.postSubmission(ctx, httpc, path, opts.ClientName, working)
	if _, ok := result.(*paymentPending); ok {
		// the server asked for a card confirmation we cannot perform
		logger.Warn().Str("formKey", formKey).Msg("payment confirmation requested without a configured payment capability")
		return NewSubmissionError(ServerError{
			Code:    FormErrorCodeStripeSCAError,
			Message: "Unexpected payment confirmation request",
		}), nil
	}
	return result, nil
}

// submitWithPayment drives the two-phase payment protocol: create payment
// method, submit, confirm the card action when the server asks for it, then
// resubmit the amended payload once.
func (c *HTTPClient) submitWithPayment(ctx context.Context, httpc *clients.SimpleHTTPClient, path string, opts SubmissionOptions, working SubmissionData) (SubmissionResult, error) {
	logger := logging.Logger(ctx, "forms.submitWithPayment")

	pm, err := opts.CreatePaymentMethod(ctx)
	if err != nil || pm == nil || pm.ID == "" {
		// no request goes out when the payment method cannot be created
		logger.Warn().Err(err).Msg("failed to create payment method")
		return paymentFieldError(FormErrorCodeStripeClientError, "Error creating payment method"), nil
	}

	working.Append("paymentMethod", pm.ID)

	result := c.postSubmission(ctx, httpc, path, opts.ClientName, working)

	pending, ok := result.(*paymentPending)
	if !ok {
		return result, nil
	}

	intent, err := c.payments.ConfirmCardAction(ctx, pending.paymentIntentClientSecret)
	if err != nil || intent == nil || intent.ID == "" {
		logger.Warn().Err(err).Msg("card action confirmation failed")
		return paymentFieldError(FormErrorCodeStripeClientError, "Stripe SCA error"), nil
	}

	// paymentMethod must not be on the payload when resubmitting
	working.Delete("paymentMethod")
	working.Append("paymentIntent", intent.ID)
	working.Append("resubmitKey", pending.resubmitKey)

	final := c.postSubmission(ctx, httpc, path, opts.ClientName, working)
	if _, ok := final.(*paymentPending); ok {
		// one confirmation round per submit
		logger.Warn().Msg("server requested a second payment confirmation on resubmission")
		return NewSubmissionError(ServerError{
			Code:    FormErrorCodeStripeSCAError,
			Message: "Unexpected payment confirmation request during resubmission",
		}), nil
	}
	return final, nil
}

// postSubmission performs one request round-trip and classifies the
// response. Transport and parse failures are converted to a form-level
// error, never surfaced as a Go error.
func (c *HTTPClient) postSubmission(ctx context.Context, httpc *clients.SimpleHTTPClient, path, clientName string, data SubmissionData) SubmissionResult {
	body, contentType, err := data.Encode()
	if err != nil {
		return NewSubmissionError(ServerError{Message: transportErrorMessage(err)})
	}

	resolved := httpc.BaseURL.ResolveReference(&url.URL{Path: path})

	req, err := http.NewRequest(http.MethodPost, resolved.String(), body)
	if err != nil {
		return NewSubmissionError(ServerError{Message: transportErrorMessage(err)})
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Formspree-Client", clientHeader(clientName))
	req.Header.Set("Content-Type", contentType)
	if c.session != nil {
		req.Header.Set("Formspree-Session-Data", c.session.Header())
	}
	requestutils.SetRequestID(ctx, req)

	var responseBody map[string]interface{}
	if _, err := httpc.Do(ctx, req, &responseBody); err != nil {
		return NewSubmissionError(ServerError{Message: transportErrorMessage(err)})
	}

	return classifyResponse(responseBody)
}

// transportErrorMessage extracts the best message for a transport or parse
// failure.
func transportErrorMessage(err error) string {
	var eb *errorutils.ErrorBundle
	if stderrors.As(err, &eb) {
		if cause := eb.Cause(); cause != nil {
			return cause.Error()
		}
		return fmt.Sprintf("Unknown error while posting to Formspree: %s", eb.DataToString())
	}
	return err.Error()
}
