package i18n

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestT(t *testing.T) {
	Init("pt-BR")

	ctx := context.Background()
	assert.Equal(t, "Acesso ao GPS negado", T(ctx, "location_denied"))
	assert.Equal(t, "GPS access denied", T(WithLocale(ctx, "en"), "location_denied"))
	assert.Equal(t, "unknown_id", T(ctx, "unknown_id"))
	assert.Equal(t, "Could not register the point: boom",
		T(WithLocale(ctx, "en"), "record_failed", map[string]any{"Reason": "boom"}))
}

func TestNegotiate(t *testing.T) {
	Init("pt-BR")

	tests := []struct {
		header string
		want   string
	}{
		{header: "", want: "pt-BR"},
		{header: "en-US,en;q=0.9", want: "en"},
		{header: "pt-BR,pt;q=0.9", want: "pt-BR"},
		{header: "not a header;;", want: "pt-BR"},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, Negotiate(tt.header))
		})
	}
}
