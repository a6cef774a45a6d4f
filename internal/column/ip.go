package column

import (
	"fmt"
	"net/netip"

	"github.com/tabulardb/go-tabular/internal/proto"
)

// ipv4Column is IPv4: a 4-byte address stored as an unsigned 32-bit
// integer in host byte order (i.e. little-endian on the wire, most
// significant octet last), not as four raw dotted-quad bytes.
type ipv4Column struct {
	values []netip.Addr
}

func newIPv4Column() *ipv4Column { return &ipv4Column{} }

func (c *ipv4Column) Type() string { return "IPv4" }
func (c *ipv4Column) Rows() int    { return len(c.values) }

func (c *ipv4Column) Values() []any {
	out := make([]any, len(c.values))
	for i, v := range c.values {
		out[i] = v
	}
	return out
}

func (c *ipv4Column) SetValues(vals []any) error {
	c.values = make([]netip.Addr, len(vals))
	for i, v := range vals {
		a, ok := v.(netip.Addr)
		if !ok || !a.Is4() {
			return fmt.Errorf("IPv4[%d]: expected netip.Addr (v4), got %v", i, v)
		}
		c.values[i] = a
	}
	return nil
}

func (c *ipv4Column) ReadData(r *proto.Reader, rows int) error {
	c.values = make([]netip.Addr, rows)
	for i := range c.values {
		u, err := r.ReadUInt32()
		if err != nil {
			return err
		}
		c.values[i] = netip.AddrFrom4([4]byte{byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u)})
	}
	return nil
}

func (c *ipv4Column) WriteData(w *proto.Writer) error {
	for _, a := range c.values {
		b := a.As4()
		u := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
		if err := w.WriteUInt32(u); err != nil {
			return err
		}
	}
	return nil
}

// ipv6Column is IPv6: 16 raw address bytes, network byte order.
type ipv6Column struct {
	values []netip.Addr
}

func newIPv6Column() *ipv6Column { return &ipv6Column{} }

func (c *ipv6Column) Type() string { return "IPv6" }
func (c *ipv6Column) Rows() int    { return len(c.values) }

func (c *ipv6Column) Values() []any {
	out := make([]any, len(c.values))
	for i, v := range c.values {
		out[i] = v
	}
	return out
}

func (c *ipv6Column) SetValues(vals []any) error {
	c.values = make([]netip.Addr, len(vals))
	for i, v := range vals {
		a, ok := v.(netip.Addr)
		if !ok {
			return fmt.Errorf("IPv6[%d]: expected netip.Addr, got %T", i, v)
		}
		c.values[i] = a
	}
	return nil
}

func (c *ipv6Column) ReadData(r *proto.Reader, rows int) error {
	c.values = make([]netip.Addr, rows)
	for i := range c.values {
		b, err := r.ReadFixed(16)
		if err != nil {
			return err
		}
		addr, ok := netip.AddrFromSlice(b)
		if !ok {
			return fmt.Errorf("IPv6: malformed 16-byte address")
		}
		c.values[i] = addr
	}
	return nil
}

func (c *ipv6Column) WriteData(w *proto.Writer) error {
	for _, a := range c.values {
		b := a.As16()
		if err := w.WriteFixed(b[:]); err != nil {
			return err
		}
	}
	return nil
}
