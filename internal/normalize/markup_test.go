package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "plain text", in: "  hello   world ", want: "hello world"},
		{name: "tags removed", in: "<p>Your <b>invoice</b></p><p>is ready</p>", want: "Your invoice is ready"},
		{
			name: "style and script dropped",
			in:   `<html><head><style>p{color:red}</style></head><body><script>alert(1)</script>Total 12,34</body></html>`,
			want: "Total 12,34",
		},
		{name: "entities decoded", in: "Fish &amp; Chips", want: "Fish & Chips"},
		{name: "line breaks", in: "Line one<br/>Line\n\ntwo", want: "Line one Line two"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripMarkup(tt.in))
		})
	}
}
