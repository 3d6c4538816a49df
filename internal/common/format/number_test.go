package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAbbreviate(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{4200000, "4.2M"},
		{1000000, "1.0M"},
		{-2500000, "-2.5M"},
		{1234, "1.2K"},
		{999, "999"},
		{0.0508, "0.0508"},
		{0, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Abbreviate(tt.in))
		})
	}
}
