package forms

import (
	"fmt"
	"strings"
)

// CodeUnspecified is the code recorded for any server error whose code is
// absent or outside the closed enumerations below. The message is always
// kept verbatim; only the code classification defaults.
const CodeUnspecified = "UNSPECIFIED"

// Form-level error codes reported by the server.
const (
	FormErrorCodeInactive          = "INACTIVE"
	FormErrorCodeBlocked           = "BLOCKED"
	FormErrorCodeEmpty             = "EMPTY"
	FormErrorCodeProjectNotFound   = "PROJECT_NOT_FOUND"
	FormErrorCodeFormNotFound      = "FORM_NOT_FOUND"
	FormErrorCodeNoFileUploads     = "NO_FILE_UPLOADS"
	FormErrorCodeTooManyFiles      = "TOO_MANY_FILES"
	FormErrorCodeFilesTooBig       = "FILES_TOO_BIG"
	FormErrorCodeStripeClientError = "STRIPE_CLIENT_ERROR"
	FormErrorCodeStripeSCAError    = "STRIPE_SCA_ERROR"
)

// Field-level error codes reported by the server.
const (
	FieldErrorCodeRequiredFieldMissing = "REQUIRED_FIELD_MISSING"
	FieldErrorCodeRequiredFieldEmpty   = "REQUIRED_FIELD_EMPTY"
	FieldErrorCodeTypeEmail            = "TYPE_EMAIL"
	FieldErrorCodeTypeNumeric          = "TYPE_NUMERIC"
	FieldErrorCodeTypeText             = "TYPE_TEXT"
)

var formErrorCodes = map[string]bool{
	FormErrorCodeInactive:          true,
	FormErrorCodeBlocked:           true,
	FormErrorCodeEmpty:             true,
	FormErrorCodeProjectNotFound:   true,
	FormErrorCodeFormNotFound:      true,
	FormErrorCodeNoFileUploads:     true,
	FormErrorCodeTooManyFiles:      true,
	FormErrorCodeFilesTooBig:       true,
	FormErrorCodeStripeClientError: true,
	FormErrorCodeStripeSCAError:    true,
}

var fieldErrorCodes = map[string]bool{
	FieldErrorCodeRequiredFieldMissing: true,
	FieldErrorCodeRequiredFieldEmpty:   true,
	FieldErrorCodeTypeEmail:            true,
	FieldErrorCodeTypeNumeric:          true,
	FieldErrorCodeTypeText:             true,
}

// ServerError is one raw error record from a server response.
type ServerError struct {
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// FormError is a validation problem not attributable to one specific field.
type FormError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FieldError is a validation problem attributable to a specific named field.
type FieldError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FieldErrors pairs a field name with its errors, in server order.
type FieldErrors struct {
	Field  string
	Errors []FieldError
}

// SubmissionResult is the terminal outcome of one submission: either a
// *SubmissionSuccess or a *SubmissionError. The transient payment-pending
// variant never escapes Submit.
type SubmissionResult interface {
	// Ok reports whether the submission was accepted.
	Ok() bool
}

// SubmissionSuccess is the accepted outcome, carrying the follow-up URL
// supplied by the server.
type SubmissionSuccess struct {
	Next string
}

// Ok implements SubmissionResult
func (s *SubmissionSuccess) Ok() bool { return true }

// SubmissionError aggregates the server-reported problems of a rejected
// submission, bucketed into form-level and per-field collections.
type SubmissionError struct {
	formErrors  []FormError
	fieldOrder  []string
	fieldErrors map[string][]FieldError
}

// NewSubmissionError builds the aggregate from raw server error records,
// preserving server order. Records without a field become form-level errors;
// records with a field are filed under that field. Codes outside the closed
// enumerations normalize to UNSPECIFIED.
func NewSubmissionError(serverErrors ...ServerError) *SubmissionError {
	e := &SubmissionError{
		fieldErrors: map[string][]FieldError{},
	}
	for _, se := range serverErrors {
		if se.Field == "" {
			code := CodeUnspecified
			if formErrorCodes[se.Code] {
				code = se.Code
			}
			e.formErrors = append(e.formErrors, FormError{Code: code, Message: se.Message})
			continue
		}

		code := CodeUnspecified
		if fieldErrorCodes[se.Code] {
			code = se.Code
		}
		e.addFieldError(se.Field, FieldError{Code: code, Message: se.Message})
	}
	return e
}

// paymentFieldError builds the aggregate for a client-side payment failure.
// The stripe codes are produced locally, not normalized against the
// field-level enumeration the server draws from.
func paymentFieldError(code, message string) *SubmissionError {
	e := &SubmissionError{
		fieldErrors: map[string][]FieldError{},
	}
	e.addFieldError("paymentMethod", FieldError{Code: code, Message: message})
	return e
}

func (e *SubmissionError) addFieldError(field string, fe FieldError) {
	if _, ok := e.fieldErrors[field]; !ok {
		e.fieldOrder = append(e.fieldOrder, field)
	}
	e.fieldErrors[field] = append(e.fieldErrors[field], fe)
}

// Ok implements SubmissionResult
func (e *SubmissionError) Ok() bool { return false }

// Error implements the error interface
func (e *SubmissionError) Error() string {
	var msgs []string
	for _, fe := range e.formErrors {
		msgs = append(msgs, fe.Message)
	}
	for _, field := range e.fieldOrder {
		for _, fe := range e.fieldErrors[field] {
			msgs = append(msgs, fmt.Sprintf("%s: %s", field, fe.Message))
		}
	}
	if len(msgs) == 0 {
		return "submission failed"
	}
	return "submission failed: " + strings.Join(msgs, "; ")
}

// GetFormErrors returns the form-level errors in server order.
func (e *SubmissionError) GetFormErrors() []FormError {
	out := make([]FormError, len(e.formErrors))
	copy(out, e.formErrors)
	return out
}

// GetFieldErrors returns the errors for a field in server order, empty when
// the field has none.
func (e *SubmissionError) GetFieldErrors(field string) []FieldError {
	fes := e.fieldErrors[field]
	out := make([]FieldError, len(fes))
	copy(out, fes)
	return out
}

// GetAllFieldErrors returns every field's errors, fields ordered by first
// insertion.
func (e *SubmissionError) GetAllFieldErrors() []FieldErrors {
	out := make([]FieldErrors, 0, len(e.fieldOrder))
	for _, field := range e.fieldOrder {
		out = append(out, FieldErrors{Field: field, Errors: e.GetFieldErrors(field)})
	}
	return out
}

// paymentPending is the transient SCA outcome: the server needs a
// client-side card confirmation before it will accept the submission.
type paymentPending struct {
	paymentIntentClientSecret string
	resubmitKey               string
}

// Ok implements SubmissionResult
func (p *paymentPending) Ok() bool { return false }

// isSuccessResponse reports whether the body carries a next string field.
func isSuccessResponse(body map[string]interface{}) bool {
	_, ok := body["next"].(string)
	return ok
}

// isPaymentPendingResponse reports whether the body carries a
// stripe.paymentIntentClientSecret string and a resubmitKey string.
func isPaymentPendingResponse(body map[string]interface{}) bool {
	if _, ok := body["resubmitKey"].(string); !ok {
		return false
	}
	stripeObj, ok := body["stripe"].(map[string]interface{})
	if !ok {
		return false
	}
	_, ok = stripeObj["paymentIntentClientSecret"].(string)
	return ok
}

// hasErrorsArray reports whether the body carries a structured errors array.
func hasErrorsArray(body map[string]interface{}) bool {
	_, ok := body["errors"].([]interface{})
	return ok
}

// hasLegacyError reports whether the body carries the legacy single error
// string.
func hasLegacyError(body map[string]interface{}) bool {
	_, ok := body["error"].(string)
	return ok
}

func serverErrorsFromArray(raw []interface{}) []ServerError {
	var out []ServerError
	for _, elem := range raw {
		m, ok := elem.(map[string]interface{})
		if !ok {
			continue
		}
		se := ServerError{}
		se.Code, _ = m["code"].(string)
		se.Field, _ = m["field"].(string)
		se.Message, _ = m["message"].(string)
		out = append(out, se)
	}
	return out
}

// classifyResponse discriminates a parsed JSON response body into a result.
// The precedence is exactly:
//  1. a next string field wins, regardless of any other keys present
//  2. a payment-pending shape (stripe.paymentIntentClientSecret + resubmitKey)
//  3. a structured errors array, which wins over a legacy error string
//  4. the legacy single error string
//  5. anything else is an unexpected response format
func classifyResponse(body map[string]interface{}) SubmissionResult {
	switch {
	case isSuccessResponse(body):
		next, _ := body["next"].(string)
		return &SubmissionSuccess{Next: next}
	case isPaymentPendingResponse(body):
		stripeObj := body["stripe"].(map[string]interface{})
		secret, _ := stripeObj["paymentIntentClientSecret"].(string)
		resubmitKey, _ := body["resubmitKey"].(string)
		return &paymentPending{paymentIntentClientSecret: secret, resubmitKey: resubmitKey}
	case hasErrorsArray(body):
		return NewSubmissionError(serverErrorsFromArray(body["errors"].([]interface{}))...)
	case hasLegacyError(body):
		msg, _ := body["error"].(string)
		return NewSubmissionError(ServerError{Message: msg})
	default:
		return NewSubmissionError(ServerError{Message: "Unexpected response format"})
	}
}
