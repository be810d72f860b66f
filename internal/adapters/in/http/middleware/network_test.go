package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bnema/zerowrap"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ltuffery/Octopus/internal/adapters/dto"
)

func TestParseNetworks(t *testing.T) {
	nets := ParseNetworks([]string{"10.0.0.0/8", "192.168.1.10", "::1", "not-an-ip", "2001:db8::/32"})

	require.Len(t, nets, 4)
	assert.Equal(t, "10.0.0.0/8", nets[0].String())
	assert.Equal(t, "192.168.1.10/32", nets[1].String())
	assert.Equal(t, "::1/128", nets[2].String())
	assert.Equal(t, "2001:db8::/32", nets[3].String())
}

func TestContainsIP(t *testing.T) {
	nets := ParseNetworks([]string{"10.0.0.0/8"})

	assert.True(t, ContainsIP("10.1.2.3", nets))
	assert.False(t, ContainsIP("11.1.2.3", nets))
	assert.False(t, ContainsIP("garbage", nets))
	assert.False(t, ContainsIP("10.1.2.3", nil))
}

func TestCIDRAllowlist(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []*net.IPNet
		trusted    []*net.IPNet
		remoteAddr string
		xff        string
		wantStatus int
	}{
		{
			name:       "no CIDRs configured passes through",
			remoteAddr: "203.0.113.50:1234",
			wantStatus: http.StatusOK,
		},
		{
			name:       "allowed IP returns 200",
			allowed:    ParseNetworks([]string{"100.64.0.0/10"}),
			remoteAddr: "100.100.1.1:1234",
			wantStatus: http.StatusOK,
		},
		{
			name:       "denied IP returns 403",
			allowed:    ParseNetworks([]string{"100.64.0.0/10"}),
			remoteAddr: "203.0.113.50:1234",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "localhost always allowed",
			allowed:    ParseNetworks([]string{"100.64.0.0/10"}),
			remoteAddr: "127.0.0.1:1234",
			wantStatus: http.StatusOK,
		},
		{
			name:       "spoofed XFF ignored without trusted proxy",
			allowed:    ParseNetworks([]string{"100.64.0.0/10"}),
			remoteAddr: "203.0.113.50:1234",
			xff:        "100.100.1.1",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "XFF honored from trusted proxy",
			allowed:    ParseNetworks([]string{"100.64.0.0/10"}),
			trusted:    ParseNetworks([]string{"10.0.0.1"}),
			remoteAddr: "10.0.0.1:1234",
			xff:        "100.100.1.1",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.IPExtractor = IPExtractor(tt.trusted)
			e.Use(CIDRAllowlist(tt.allowed, zerowrap.Default()))
			e.GET("/", okHandler)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set(echo.HeaderXForwardedFor, tt.xff)
			}
			rec := serve(e, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusForbidden {
				var body dto.ErrorResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, "Forbidden", body.Error)
			}
		})
	}
}
