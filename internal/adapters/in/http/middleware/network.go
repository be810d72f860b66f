package middleware

import (
	"net"
	"net/http"

	"github.com/bnema/zerowrap"
	"github.com/labstack/echo/v4"

	"github.com/ltuffery/Octopus/internal/adapters/dto"
)

// localhostNets contains the loopback ranges that are always allowed.
var localhostNets = ParseNetworks([]string{"127.0.0.0/8", "::1"})

// ParseNetworks converts IP addresses and CIDR ranges to net.IPNet.
// Single IPs become /32 or /128 blocks. Invalid entries are skipped.
func ParseNetworks(entries []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, entry := range entries {
		if _, ipNet, err := net.ParseCIDR(entry); err == nil {
			nets = append(nets, ipNet)
			continue
		}
		if ip := net.ParseIP(entry); ip != nil {
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
		}
	}
	return nets
}

// ContainsIP reports whether ip belongs to one of nets.
func ContainsIP(ip string, nets []*net.IPNet) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, n := range nets {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}

// IPExtractor returns how echo resolves the client IP. X-Forwarded-For is
// honored only for requests coming from one of the trusted proxies.
func IPExtractor(trusted []*net.IPNet) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, n := range trusted {
		opts = append(opts, echo.TrustIPRange(n))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

// CIDRAllowlist restricts the API to the given ranges. Localhost is always
// allowed so the CLI keeps working on the host. An empty list is a no-op.
func CIDRAllowlist(allowed []*net.IPNet, log zerowrap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if len(allowed) == 0 {
			return next
		}
		return func(c echo.Context) error {
			clientIP := c.RealIP()
			if ContainsIP(clientIP, localhostNets) || ContainsIP(clientIP, allowed) {
				return next(c)
			}

			log.Warn().
				Str(zerowrap.FieldLayer, "adapter").
				Str(zerowrap.FieldAdapter, "http").
				Str(zerowrap.FieldMethod, c.Request().Method).
				Str(zerowrap.FieldPath, c.Request().URL.Path).
				Str(zerowrap.FieldClientIP, clientIP).
				Msg("API access denied by CIDR allowlist")

			return c.JSON(http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
		}
	}
}
