package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/last9/otelkit/pkg/errors"
)

func TestProductListReturnsCopy(t *testing.T) {
	first := Products().List()
	require.NotEmpty(t, first)

	first[0].Name = "mutated"

	second := Products().List()
	assert.NotEqual(t, "mutated", second[0].Name)
}

func TestProductGet(t *testing.T) {
	p, err := Products().Get("prod-002")
	require.NoError(t, err)
	assert.Equal(t, "USB-C Hub", p.Name)
	assert.Equal(t, int64(4599), p.PriceCents)

	_, err = Products().Get("prod-000")
	assert.True(t, errors.Is(err, pkgerrors.ProductNotFound))
}
