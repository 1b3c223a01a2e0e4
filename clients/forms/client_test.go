package forms

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockConfirmer struct {
	fnConfirmCardAction func(ctx context.Context, clientSecret string) (*PaymentIntent, error)
}

func (m *mockConfirmer) ConfirmCardAction(ctx context.Context, clientSecret string) (*PaymentIntent, error) {
	if m.fnConfirmCardAction == nil {
		return &PaymentIntent{ID: "pi_default"}, nil
	}
	return m.fnConfirmCardAction(ctx, clientSecret)
}

func newTestClient(t *testing.T, cfg Config) Client {
	t.Helper()
	client, err := New(cfg)
	require.NoError(t, err)
	return client
}

func decodeJSONBody(t *testing.T, r *http.Request) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func TestSubmit_Success(t *testing.T) {
	var requests int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/f/abc123", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body := decodeJSONBody(t, r)
		assert.Equal(t, "a@b.com", body["email"])

		w.Header().Set("Content-Type", "application/json")
		_, err := w.Write([]byte(`{"next": "https://x"}`))
		assert.NoError(t, err)
	}))
	defer ts.Close()

	client := newTestClient(t, Config{})
	result, err := client.Submit(context.Background(), "abc123", Values{"email": "a@b.com"}, SubmissionOptions{Endpoint: ts.URL})

	require.NoError(t, err)
	success, ok := result.(*SubmissionSuccess)
	require.True(t, ok)
	assert.Equal(t, "https://x", success.Next)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}

func TestSubmit_LegacyErrorResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, err := w.Write([]byte(`{"error": "not authorized"}`))
		assert.NoError(t, err)
	}))
	defer ts.Close()

	client := newTestClient(t, Config{})
	result, err := client.Submit(context.Background(), "abc123", Values{"email": "a@b.com"}, SubmissionOptions{Endpoint: ts.URL})

	require.NoError(t, err)
	submissionError, ok := result.(*SubmissionError)
	require.True(t, ok)
	assert.Equal(t, []FormError{{Code: CodeUnspecified, Message: "not authorized"}}, submissionError.GetFormErrors())
}

func TestSubmit_StructuredErrorsResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, err := w.Write([]byte(`{"errors": [
			{"code": "TYPE_EMAIL", "field": "email", "message": "must be an email"},
			{"code": "EMPTY", "message": "empty form"}
		]}`))
		assert.NoError(t, err)
	}))
	defer ts.Close()

	client := newTestClient(t, Config{})
	result, err := client.Submit(context.Background(), "abc123", Values{"email": "nope"}, SubmissionOptions{Endpoint: ts.URL})

	require.NoError(t, err)
	submissionError, ok := result.(*SubmissionError)
	require.True(t, ok)
	assert.Equal(t, []FormError{{Code: FormErrorCodeEmpty, Message: "empty form"}}, submissionError.GetFormErrors())
	assert.Equal(t, []FieldError{{Code: FieldErrorCodeTypeEmail, Message: "must be an email"}}, submissionError.GetFieldErrors("email"))
}

func TestSubmit_ProjectPath(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/p/proj1/f/abc123", r.URL.Path)
		_, err := w.Write([]byte(`{"next": "https://x"}`))
		assert.NoError(t, err)
	}))
	defer ts.Close()

	client := newTestClient(t, Config{Project: "proj1"})
	result, err := client.Submit(context.Background(), "abc123", Values{}, SubmissionOptions{Endpoint: ts.URL})

	require.NoError(t, err)
	assert.True(t, result.Ok())
}

func TestSubmit_Headers(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "my-app @formspree/core@"+Version, r.Header.Get("Formspree-Client"))

		raw, err := base64.StdEncoding.DecodeString(r.Header.Get("Formspree-Session-Data"))
		require.NoError(t, err)
		var session SessionData
		require.NoError(t, json.Unmarshal(raw, &session))
		assert.NotZero(t, session.LoadedAt)

		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))

		_, err = w.Write([]byte(`{"next": "https://x"}`))
		assert.NoError(t, err)
	}))
	defer ts.Close()

	client := newTestClient(t, Config{})
	_, err := client.Submit(context.Background(), "abc123", Values{}, SubmissionOptions{Endpoint: ts.URL, ClientName: "my-app"})
	require.NoError(t, err)
}

func TestSubmit_TelemetryDisabled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.Header["Formspree-Session-Data"]
		assert.False(t, present)
		assert.Equal(t, "@formspree/core@"+Version, r.Header.Get("Formspree-Client"))

		_, err := w.Write([]byte(`{"next": "https://x"}`))
		assert.NoError(t, err)
	}))
	defer ts.Close()

	client := newTestClient(t, Config{DisableTelemetry: true})
	_, err := client.Submit(context.Background(), "abc123", Values{}, SubmissionOptions{Endpoint: ts.URL})
	require.NoError(t, err)
}

func TestSubmit_MultipartPayload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "a@b.com", r.FormValue("email"))

		_, err := w.Write([]byte(`{"next": "https://x"}`))
		assert.NoError(t, err)
	}))
	defer ts.Close()

	data := NewFormData()
	data.Append("email", "a@b.com")

	client := newTestClient(t, Config{})
	result, err := client.Submit(context.Background(), "abc123", data, SubmissionOptions{Endpoint: ts.URL})

	require.NoError(t, err)
	assert.True(t, result.Ok())
}

func TestSubmit_SCAFlow(t *testing.T) {
	var bodies []map[string]interface{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bodies = append(bodies, decodeJSONBody(t, r))
		w.Header().Set("Content-Type", "application/json")
		if len(bodies) == 1 {
			_, err := w.Write([]byte(`{"resubmitKey": "k1", "stripe": {"paymentIntentClientSecret": "secret1"}}`))
			assert.NoError(t, err)
			return
		}
		_, err := w.Write([]byte(`{"next": "done"}`))
		assert.NoError(t, err)
	}))
	defer ts.Close()

	confirmer := &mockConfirmer{
		fnConfirmCardAction: func(ctx context.Context, clientSecret string) (*PaymentIntent, error) {
			assert.Equal(t, "secret1", clientSecret)
			return &PaymentIntent{ID: "pi1"}, nil
		},
	}

	caller := Values{"email": "a@b.com"}

	client := newTestClient(t, Config{Payments: confirmer})
	result, err := client.Submit(context.Background(), "abc123", caller, SubmissionOptions{
		Endpoint: ts.URL,
		CreatePaymentMethod: func(ctx context.Context) (*PaymentMethod, error) {
			return &PaymentMethod{ID: "pm_123"}, nil
		},
	})

	require.NoError(t, err)
	success, ok := result.(*SubmissionSuccess)
	require.True(t, ok)
	assert.Equal(t, "done", success.Next)

	require.Len(t, bodies, 2)
	assert.Equal(t, "pm_123", bodies[0]["paymentMethod"])

	_, hasPaymentMethod := bodies[1]["paymentMethod"]
	assert.False(t, hasPaymentMethod)
	assert.Equal(t, "pi1", bodies[1]["paymentIntent"])
	assert.Equal(t, "k1", bodies[1]["resubmitKey"])

	// caller-owned payload is untouched
	assert.Equal(t, Values{"email": "a@b.com"}, caller)
}

func TestSubmit_PaymentMethodCreationFails(t *testing.T) {
	var requests int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		_, err := w.Write([]byte(`{"next": "https://x"}`))
		assert.NoError(t, err)
	}))
	defer ts.Close()

	client := newTestClient(t, Config{Payments: &mockConfirmer{}})
	result, err := client.Submit(context.Background(), "abc123", Values{}, SubmissionOptions{
		Endpoint: ts.URL,
		CreatePaymentMethod: func(ctx context.Context) (*PaymentMethod, error) {
			return nil, errors.New("card declined")
		},
	})

	require.NoError(t, err)
	submissionError, ok := result.(*SubmissionError)
	require.True(t, ok)
	assert.Equal(t, []FieldError{{Code: FormErrorCodeStripeClientError, Message: "Error creating payment method"}},
		submissionError.GetFieldErrors("paymentMethod"))

	// no request goes out in this branch
	assert.Equal(t, int32(0), atomic.LoadInt32(&requests))
}

func TestSubmit_CardConfirmationFails(t *testing.T) {
	var requests int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		_, err := w.Write([]byte(`{"resubmitKey": "k1", "stripe": {"paymentIntentClientSecret": "secret1"}}`))
		assert.NoError(t, err)
	}))
	defer ts.Close()

	confirmer := &mockConfirmer{
		fnConfirmCardAction: func(ctx context.Context, clientSecret string) (*PaymentIntent, error) {
			return nil, errors.New("authentication failed")
		},
	}

	client := newTestClient(t, Config{Payments: confirmer})
	result, err := client.Submit(context.Background(), "abc123", Values{}, SubmissionOptions{
		Endpoint: ts.URL,
		CreatePaymentMethod: func(ctx context.Context) (*PaymentMethod, error) {
			return &PaymentMethod{ID: "pm_123"}, nil
		},
	})

	require.NoError(t, err)
	submissionError, ok := result.(*SubmissionError)
	require.True(t, ok)
	assert.Equal(t, []FieldError{{Code: FormErrorCodeStripeClientError, Message: "Stripe SCA error"}},
		submissionError.GetFieldErrors("paymentMethod"))

	// confirmation failure is terminal, no resubmission
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}

func TestSubmit_SecondPendingOnResubmitIsProtocolViolation(t *testing.T) {
	var requests int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		_, err := w.Write([]byte(`{"resubmitKey": "k1", "stripe": {"paymentIntentClientSecret": "secret1"}}`))
		assert.NoError(t, err)
	}))
	defer ts.Close()

	client := newTestClient(t, Config{Payments: &mockConfirmer{}})
	result, err := client.Submit(context.Background(), "abc123", Values{}, SubmissionOptions{
		Endpoint: ts.URL,
		CreatePaymentMethod: func(ctx context.Context) (*PaymentMethod, error) {
			return &PaymentMethod{ID: "pm_123"}, nil
		},
	})

	require.NoError(t, err)
	submissionError, ok := result.(*SubmissionError)
	require.True(t, ok)
	assert.Equal(t, []FormError{{
		Code:    FormErrorCodeStripeSCAError,
		Message: "Unexpected payment confirmation request during resubmission",
	}}, submissionError.GetFormErrors())
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
}

func TestSubmit_PendingWithoutPaymentCapability(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := w.Write([]byte(`{"resubmitKey": "k1", "stripe": {"paymentIntentClientSecret": "secret1"}}`))
		assert.NoError(t, err)
	}))
	defer ts.Close()

	client := newTestClient(t, Config{})
	result, err := client.Submit(context.Background(), "abc123", Values{}, SubmissionOptions{Endpoint: ts.URL})

	require.NoError(t, err)
	submissionError, ok := result.(*SubmissionError)
	require.True(t, ok)
	assert.Equal(t, []FormError{{
		Code:    FormErrorCodeStripeSCAError,
		Message: "Unexpected payment confirmation request",
	}}, submissionError.GetFormErrors())
}

func TestSubmit_TransportFailureBecomesFormError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // refuse connections

	client := newTestClient(t, Config{})
	result, err := client.Submit(context.Background(), "abc123", Values{}, SubmissionOptions{Endpoint: ts.URL})

	require.NoError(t, err)
	submissionError, ok := result.(*SubmissionError)
	require.True(t, ok)
	formErrors := submissionError.GetFormErrors()
	require.Len(t, formErrors, 1)
	assert.Equal(t, CodeUnspecified, formErrors[0].Code)
	assert.NotEmpty(t, formErrors[0].Message)
}

func TestSubmit_NonJSONBodyBecomesFormError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := w.Write([]byte("<html>gateway timeout</html>"))
		assert.NoError(t, err)
	}))
	defer ts.Close()

	client := newTestClient(t, Config{})
	result, err := client.Submit(context.Background(), "abc123", Values{}, SubmissionOptions{Endpoint: ts.URL})

	require.NoError(t, err)
	submissionError, ok := result.(*SubmissionError)
	require.True(t, ok)
	require.Len(t, submissionError.GetFormErrors(), 1)
}

func TestSubmit_ProgrammerErrors(t *testing.T) {
	client := newTestClient(t, Config{})

	_, err := client.Submit(context.Background(), "  ", Values{}, SubmissionOptions{})
	assert.Error(t, err)

	_, err = client.Submit(context.Background(), "abc123", nil, SubmissionOptions{})
	assert.Error(t, err)
}

func TestDefaultClient_ConstructedOnce(t *testing.T) {
	first := DefaultClient()
	second := DefaultClient()

	require.NotNil(t, first)
	assert.Same(t, first, second)
}

type stubClient struct {
	result SubmissionResult
	err    error
}

func (s *stubClient) Submit(ctx context.Context, formKey string, data SubmissionData, opts SubmissionOptions) (SubmissionResult, error) {
	return s.result, s.err
}

func TestInstrumentedClient_PassThrough(t *testing.T) {
	want := &SubmissionSuccess{Next: "https://x"}
	client := newInstrumentedClient("test_client", &stubClient{result: want})

	result, err := client.Submit(context.Background(), "abc123", Values{}, SubmissionOptions{})
	require.NoError(t, err)
	assert.Same(t, want, result)

	wantErr := errors.New("boom")
	client = newInstrumentedClient("test_client", &stubClient{err: wantErr})

	_, err = client.Submit(context.Background(), "abc123", Values{}, SubmissionOptions{})
	assert.ErrorIs(t, err, wantErr)
}

func TestClientHeader(t *testing.T) {
	assert.Equal(t, "@formspree/core@"+Version, clientHeader(""))
	assert.Equal(t, "my-app @formspree/core@"+Version, clientHeader("my-app"))
}
