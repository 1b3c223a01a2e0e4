package forms

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"

	"github.com/formspree/formspree-go/errors"
)

// SubmissionData is the payload of one submission. It is a closed union with
// two implementations: Values for plain key/value payloads and FormData for
// multipart payloads with optional file attachments. The representation is
// picked once at the API boundary; the client operates through the uniform
// operations below.
type SubmissionData interface {
	// Get returns the value for a key when it is a non-empty string, else "".
	Get(key string) string
	// Append adds a key/value pair. Multipart data accumulates duplicate
	// entries; plain values use set semantics.
	Append(key, value string)
	// Delete removes every entry for the key.
	Delete(key string)
	// Encode produces the request body and its content type.
	Encode() (io.Reader, string, error)

	// working returns the copy the client may mutate during a submission.
	// Plain values are cloned so caller state stays untouched; multipart
	// data is mutated in place by append semantics.
	working() SubmissionData
}

// Values is a single-level map of field names to scalar values.
type Values map[string]interface{}

// Get implements SubmissionData
func (v Values) Get(key string) string {
	if s, ok := v[key].(string); ok {
		return s
	}
	return ""
}

// Append implements SubmissionData, set semantics for a plain map
func (v Values) Append(key, value string) {
	v[key] = value
}

// Delete implements SubmissionData
func (v Values) Delete(key string) {
	delete(v, key)
}

// Encode implements SubmissionData, serializing the map as a JSON object
func (v Values) Encode() (io.Reader, string, error) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		return nil, "", errors.Wrap(err, "unable to encode submission values")
	}
	return buf, "application/json", nil
}

func (v Values) working() SubmissionData {
	clone := make(Values, len(v))
	for k, val := range v {
		clone[k] = val
	}
	return clone
}

type formField struct {
	key      string
	value    string
	filename string
	content  []byte
}

// FormData is an ordered multipart payload. Keys need not be unique.
type FormData struct {
	fields []formField
}

// NewFormData returns an empty multipart payload.
func NewFormData() *FormData {
	return &FormData{}
}

// Append adds a field entry, keeping any existing entries for the key.
func (d *FormData) Append(key, value string) {
	d.fields = append(d.fields, formField{key: key, value: value})
}

// AppendFile adds a file attachment entry.
func (d *FormData) AppendFile(key, filename string, content []byte) {
	d.fields = append(d.fields, formField{key: key, filename: filename, content: content})
}

// Set replaces every entry for the key with a single value, appending when
// the key is absent.
func (d *FormData) Set(key, value string) {
	d.Delete(key)
	d.Append(key, value)
}

// Delete removes every entry for the key.
func (d *FormData) Delete(key string) {
	kept := d.fields[:0]
	for _, f := range d.fields {
		if f.key != key {
			kept = append(kept, f)
		}
	}
	d.fields = kept
}

// Get returns the first string entry for the key, or "".
func (d *FormData) Get(key string) string {
	for _, f := range d.fields {
		if f.key == key && f.filename == "" {
			return f.value
		}
	}
	return ""
}

// Len returns the number of entries.
func (d *FormData) Len() int {
	return len(d.fields)
}

// Encode implements SubmissionData, writing the entries in insertion order
// as multipart/form-data.
func (d *FormData) Encode() (io.Reader, string, error) {
	buf := new(bytes.Buffer)
	w := multipart.NewWriter(buf)
	for _, f := range d.fields {
		if f.filename != "" {
			fw, err := w.CreateFormFile(f.key, f.filename)
			if err != nil {
				return nil, "", errors.Wrap(err, "unable to encode multipart file field")
			}
			if _, err := fw.Write(f.content); err != nil {
				return nil, "", errors.Wrap(err, "unable to encode multipart file field")
			}
			continue
		}
		if err := w.WriteField(f.key, f.value); err != nil {
			return nil, "", errors.Wrap(err, "unable to encode multipart field")
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "unable to finalize multipart body")
	}
	return buf, w.FormDataContentType(), nil
}

func (d *FormData) working() SubmissionData {
	return d
}
