package forms

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendExtraData_Literal(t *testing.T) {
	data := Values{}
	extra := NewExtraData()
	extra.SetLiteral("_language", "en")

	require.NoError(t, AppendExtraData(context.Background(), data, extra))
	assert.Equal(t, "en", data.Get("_language"))
}

func TestAppendExtraData_NilValueSkipsKey(t *testing.T) {
	data := Values{}
	extra := NewExtraData()
	extra.Set("_gotcha", func(ctx context.Context) (*string, error) {
		return nil, nil
	})

	require.NoError(t, AppendExtraData(context.Background(), data, extra))
	_, present := data["_gotcha"]
	assert.False(t, present)
}

func TestAppendExtraData_ResolutionOrder(t *testing.T) {
	var order []string
	resolver := func(name, value string) ExtraDataValue {
		return func(ctx context.Context) (*string, error) {
			order = append(order, name)
			return &value, nil
		}
	}

	extra := NewExtraData()
	extra.Set("first", resolver("first", "1"))
	extra.Set("second", resolver("second", "2"))
	extra.Set("third", resolver("third", "3"))
	// replacing a resolver keeps the key's original position
	extra.Set("first", resolver("first", "one"))

	data := Values{}
	require.NoError(t, AppendExtraData(context.Background(), data, extra))

	assert.Equal(t, []string{"first", "second", "third"}, order)
	assert.Equal(t, "one", data.Get("first"))
}

func TestAppendExtraData_MultipartAppends(t *testing.T) {
	data := NewFormData()
	data.Append("_language", "en")

	extra := NewExtraData()
	extra.SetLiteral("_language", "fr")

	require.NoError(t, AppendExtraData(context.Background(), data, extra))
	assert.Equal(t, 2, data.Len())
}

func TestAppendExtraData_ResolverErrorPropagates(t *testing.T) {
	boom := errors.New("resolver failed")
	extra := NewExtraData()
	extra.SetLiteral("resolved", "yes")
	extra.Set("broken", func(ctx context.Context) (*string, error) {
		return nil, boom
	})
	extra.SetLiteral("never", "reached")

	data := Values{}
	err := AppendExtraData(context.Background(), data, extra)

	assert.ErrorIs(t, err, boom)
	// keys resolved before the failure stay applied
	assert.Equal(t, "yes", data.Get("resolved"))
	assert.Equal(t, "", data.Get("never"))
}
