package panel

import (
	"net"
	"strconv"
	"strings"
)

// Link holds the parts of a VLESS Reality connection URI.
type Link struct {
	UUID      string
	Host      string
	Port      int
	PublicKey string
	SNI       string
	ShortID   string
	Flow      string
	Label     string
}

// String renders the URI with its query parameters in the fixed order
// clients expect: type, security, pbk, sni, sid, flow.
func (l Link) String() string {
	var b strings.Builder
	b.WriteString("vless://")
	b.WriteString(l.UUID)
	b.WriteByte('@')
	b.WriteString(net.JoinHostPort(l.Host, strconv.Itoa(l.Port)))
	b.WriteString("?type=tcp&security=reality")
	b.WriteString("&pbk=" + l.PublicKey)
	b.WriteString("&sni=" + l.SNI)
	b.WriteString("&sid=" + l.ShortID)
	b.WriteString("&flow=" + l.Flow)
	b.WriteByte('#')
	b.WriteString(l.Label)
	return b.String()
}
