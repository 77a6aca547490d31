package bearer

import (
	"net/http/httptest"
	"testing"

	. "github.com/onsi/gomega"
)

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		token  string
		ok     bool
	}{
		{name: "bearer token", header: "Bearer abc.def.ghi", token: "abc.def.ghi", ok: true},
		{name: "empty header", header: ""},
		{name: "other scheme", header: "Basic dXNlcjpwYXNz"},
		{name: "lowercase scheme", header: "bearer abc"},
		{name: "missing space", header: "Bearerabc"},
		{name: "prefix only", header: "Bearer ", token: "", ok: true},
		{name: "prefix stripped once", header: "Bearer Bearer abc", token: "Bearer abc", ok: true},
		{name: "leading whitespace", header: " Bearer abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)

			token, ok := ExtractToken(tt.header)
			g.Expect(ok).To(Equal(tt.ok))
			g.Expect(token).To(Equal(tt.token))
		})
	}
}

func TestFromRequest(t *testing.T) {
	g := NewWithT(t)

	r := httptest.NewRequest("GET", "/", nil)
	_, ok := FromRequest(r)
	g.Expect(ok).To(BeFalse())

	r.Header.Set("Authorization", "Bearer token")
	token, ok := FromRequest(r)
	g.Expect(ok).To(BeTrue())
	g.Expect(token).To(Equal("token"))
}
