package column

import (
	"context"
	"fmt"
	"math/big"
	"net"
	"net/netip"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tabulardb/go-tabular/internal/proto"
)

// pipe mirrors internal/proto's own test helper: a connected net.Conn
// pair lets WriteData/ReadData drive a real proto.Reader/Writer rather
// than a bytes.Buffer stand-in.
func pipe(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() { a.Close(); b.Close() })
	return a, b
}

// roundTrip builds a column of typeDesc, loads it with vals, writes it
// to one end of a pipe and reads it back from the other, and returns
// the decoded values for the caller to compare.
func roundTrip(t *testing.T, typeDesc string, vals []any) []any {
	t.Helper()
	client, server := pipe(t)
	w := proto.NewWriter(client)
	r := proto.NewReader(server)

	src, err := NewWithValues(typeDesc, vals)
	if err != nil {
		t.Fatalf("NewWithValues(%q): %v", typeDesc, err)
	}

	done := make(chan error, 1)
	go func() {
		if err := src.WriteData(w); err != nil {
			done <- err
			return
		}
		done <- w.Flush(context.Background())
	}()

	dst, err := New(typeDesc)
	if err != nil {
		t.Fatalf("New(%q): %v", typeDesc, err)
	}
	if err := dst.ReadData(r, len(vals)); err != nil {
		t.Fatalf("ReadData(%q): %v", typeDesc, err)
	}
	if err := <-done; err != nil {
		t.Fatalf("writer side: %v", err)
	}
	if dst.Rows() != len(vals) {
		t.Errorf("Rows() = %d, want %d", dst.Rows(), len(vals))
	}
	return dst.Values()
}

func TestIntegerRoundTrip(t *testing.T) {
	cases := []struct {
		typeDesc string
		vals     []any
		want     []any
	}{
		{"Int8", []any{int64(-1), int64(127), int64(-128)}, []any{int64(-1), int64(127), int64(-128)}},
		{"UInt8", []any{uint64(0), uint64(255)}, []any{uint64(0), uint64(255)}},
		{"Int32", []any{int64(-2147483648), int64(2147483647)}, []any{int64(-2147483648), int64(2147483647)}},
		{"UInt64", []any{uint64(0), uint64(1) << 63}, []any{uint64(0), uint64(1) << 63}},
	}
	for _, c := range cases {
		t.Run(c.typeDesc, func(t *testing.T) {
			got := roundTrip(t, c.typeDesc, c.vals)
			if !reflect.DeepEqual(got, c.want) {
				t.Errorf("got %v, want %v", got, c.want)
			}
		})
	}
}

func TestBigIntRoundTrip(t *testing.T) {
	cases := []struct {
		typeDesc string
		v        *big.Int
	}{
		{"Int128", big.NewInt(-123456789)},
		{"UInt128", big.NewInt(123456789)},
		{"Int256", new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 200))},
		{"UInt256", new(big.Int).Lsh(big.NewInt(1), 200)},
	}
	for _, c := range cases {
		t.Run(c.typeDesc, func(t *testing.T) {
			got := roundTrip(t, c.typeDesc, []any{c.v})
			gotBig := got[0].(*big.Int)
			if gotBig.Cmp(c.v) != 0 {
				t.Errorf("got %v, want %v", gotBig, c.v)
			}
		})
	}
}

func TestFloatRoundTrip(t *testing.T) {
	got := roundTrip(t, "Float64", []any{float64(3.14159265), float64(-0.0), float64(1e300)})
	want := []any{float64(3.14159265), float64(-0.0), float64(1e300)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestStringRoundTrip(t *testing.T) {
	vals := []any{"", "a", "hello, 世界", string(make([]byte, 70000))}
	got := roundTrip(t, "String", vals)
	if !reflect.DeepEqual(got, vals) {
		t.Errorf("got %v, want %v", got, vals)
	}
}

func TestFixedStringRoundTrip(t *testing.T) {
	got := roundTrip(t, "FixedString(5)", []any{"ab", "abcde"})
	want := []any{"ab\x00\x00\x00", "abcde"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDateRoundTrip(t *testing.T) {
	d := time.Date(2020, 8, 8, 0, 0, 0, 0, time.UTC)
	got := roundTrip(t, "Date", []any{d})
	gotT := got[0].(time.Time)
	if !gotT.Equal(d) {
		t.Errorf("got %v, want %v", gotT, d)
	}
}

func TestDateTimeWithTimezoneRoundTrip(t *testing.T) {
	// Asia/Kolkata carries a half-hour offset, exercising the
	// half-hour-offset boundary called out in spec.md §8.
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	d := time.Date(2020, 8, 8, 12, 30, 0, 0, loc)
	got := roundTrip(t, `DateTime('Asia/Kolkata')`, []any{d})
	gotT := got[0].(time.Time)
	if !gotT.Equal(d) {
		t.Errorf("got %v, want %v", gotT, d)
	}
}

func TestDateTime64RoundTrip(t *testing.T) {
	d := time.Date(2020, 8, 8, 0, 0, 0, 123000000, time.UTC)
	got := roundTrip(t, "DateTime64(3)", []any{d})
	gotT := got[0].(time.Time).UTC()
	if gotT.Unix() != d.Unix() || gotT.Nanosecond() != d.Nanosecond() {
		t.Errorf("got %v, want %v", gotT, d)
	}
}

func TestDecimalRoundTrip(t *testing.T) {
	cases := []struct {
		typeDesc string
		v        *big.Int
	}{
		{"Decimal(9, 2)", big.NewInt(123456789)},
		{"Decimal(18, 4)", big.NewInt(-123456789012345)},
		{"Decimal256(10)", new(big.Int).Lsh(big.NewInt(1), 180)},
	}
	for _, c := range cases {
		t.Run(c.typeDesc, func(t *testing.T) {
			got := roundTrip(t, c.typeDesc, []any{c.v})
			gotBig := got[0].(*big.Int)
			if gotBig.Cmp(c.v) != 0 {
				t.Errorf("got %v, want %v", gotBig, c.v)
			}
		})
	}
}

func TestUUIDRoundTrip(t *testing.T) {
	u := uuid.MustParse("59e182c4-545d-4f30-8b32-cefea2d0d5ba")
	got := roundTrip(t, "UUID", []any{u})
	if got[0].(uuid.UUID) != u {
		t.Errorf("got %v, want %v", got[0], u)
	}
}

func TestIPv4RoundTrip(t *testing.T) {
	cases := []netip.Addr{
		netip.MustParseAddr("0.0.0.0"),
		netip.MustParseAddr("255.255.255.255"),
		netip.MustParseAddr("192.168.1.1"),
	}
	vals := make([]any, len(cases))
	for i, a := range cases {
		vals[i] = a
	}
	got := roundTrip(t, "IPv4", vals)
	for i, a := range cases {
		if got[i].(netip.Addr) != a {
			t.Errorf("[%d] got %v, want %v", i, got[i], a)
		}
	}
}

func TestIPv6RoundTrip(t *testing.T) {
	a := netip.MustParseAddr("::")
	got := roundTrip(t, "IPv6", []any{a})
	if got[0].(netip.Addr) != a {
		t.Errorf("got %v, want %v", got[0], a)
	}
}

func TestEnumRoundTrip(t *testing.T) {
	got := roundTrip(t, `Enum8('hello' = 1, 'world' = 2)`, []any{"hello", "world", "hello"})
	want := []any{"hello", "world", "hello"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEnumAcceptsIntegerValueOnEncode(t *testing.T) {
	// spec.md §4.3: "encode accepts either the name or the integer."
	got := roundTrip(t, `Enum8('hello' = 1, 'world' = 2)`, []any{int64(1), int64(2), "hello"})
	want := []any{"hello", "world", "hello"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNullableRoundTrip(t *testing.T) {
	got := roundTrip(t, "Nullable(String)", []any{"a", nil, "", nil})
	want := []any{"a", nil, "", nil}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNullableAllNullRoundTrip(t *testing.T) {
	got := roundTrip(t, "Nullable(Int32)", []any{nil, nil, nil})
	want := []any{nil, nil, nil}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestArrayRoundTrip(t *testing.T) {
	vals := []any{
		[]any{},
		[]any{"x", "y"},
		[]any{"z"},
	}
	got := roundTrip(t, "Array(String)", vals)
	if !reflect.DeepEqual(got, vals) {
		t.Errorf("got %v, want %v", got, vals)
	}
}

func TestNestedArrayOfNullableRoundTrip(t *testing.T) {
	// Array(Array(Nullable(String))), one of spec.md §8's boundary cases.
	// Each outer row is a list of Array(Nullable(String)) values.
	vals := []any{
		[]any{[]any{"a", nil}, []any{}},
		[]any{},
		[]any{[]any{nil, nil, "z"}},
	}
	got := roundTrip(t, "Array(Array(Nullable(String)))", vals)
	if !reflect.DeepEqual(got, vals) {
		t.Errorf("got %v, want %v", got, vals)
	}
}

func TestTupleRoundTrip(t *testing.T) {
	vals := []any{
		[]any{int64(1), "a"},
		[]any{int64(2), "b"},
	}
	got := roundTrip(t, "Tuple(Int32, String)", vals)
	if !reflect.DeepEqual(got, vals) {
		t.Errorf("got %v, want %v", got, vals)
	}
}

func TestMapRoundTrip(t *testing.T) {
	vals := []any{
		[]KV{{Key: "a", Value: int64(1)}, {Key: "b", Value: int64(2)}},
		[]KV{},
	}
	got := roundTrip(t, "Map(String, Int32)", vals)
	if !reflect.DeepEqual(got, vals) {
		t.Errorf("got %v, want %v", got, vals)
	}
}

func TestLowCardinalityRoundTrip(t *testing.T) {
	vals := []any{"a", "b", "a", "c", "b", "a"}
	got := roundTrip(t, "LowCardinality(String)", vals)
	if !reflect.DeepEqual(got, vals) {
		t.Errorf("got %v, want %v", got, vals)
	}
}

func TestLowCardinalityLargeDictionaryIndexWidth(t *testing.T) {
	// Exercise the U8->U16 index-width transition named in spec.md §8:
	// 300 distinct values forces the dictionary past the 256-entry
	// single-byte index width.
	n := 300
	vals := make([]any, n)
	for i := range vals {
		vals[i] = fmt.Sprintf("distinct-%d", i)
	}
	got := roundTrip(t, "LowCardinality(String)", vals)
	if !reflect.DeepEqual(got, vals) {
		t.Error("round trip mismatch across the U8/U16 dictionary-size boundary")
	}
}

func TestLowCardinalityIndexWidthFollowsDictionarySize(t *testing.T) {
	// Many repeated rows drawn from a small (3-entry) dictionary: the
	// index width flag must reflect the dictionary size (fits in a
	// single byte), not the much larger row count.
	vals := make([]any, 1000)
	for i := range vals {
		vals[i] = []string{"a", "b", "c"}[i%3]
	}
	col, err := NewWithValues("LowCardinality(String)", vals)
	if err != nil {
		t.Fatalf("NewWithValues: %v", err)
	}
	client, server := pipe(t)
	w := proto.NewWriter(client)
	r := proto.NewReader(server)
	go func() {
		if err := col.WriteData(w); err != nil {
			t.Error(err)
		}
		w.Flush(context.Background())
	}()
	if _, err := r.ReadUInt64(); err != nil { // key serialization version
		t.Fatalf("read version: %v", err)
	}
	flags, err := r.ReadUInt64()
	if err != nil {
		t.Fatalf("read flags: %v", err)
	}
	if got := flags & 0xff; got != lcIndexUInt8 {
		t.Errorf("index width selector = %d, want %d (dictionary has only 3 entries)", got, lcIndexUInt8)
	}
}

func TestLowCardinalityNullableRoundTrip(t *testing.T) {
	vals := []any{"a", nil, "b", "a", nil}
	got := roundTrip(t, "LowCardinality(Nullable(String))", vals)
	if !reflect.DeepEqual(got, vals) {
		t.Errorf("got %v, want %v", got, vals)
	}
}

func TestLowCardinalityNullableIndexWidthAtDictionaryBoundary(t *testing.T) {
	// 256 distinct non-null values plus the reserved null sentinel slot
	// makes 257 addressable dictionary entries (indices 0..256), one
	// past the U8 width's 256-value ceiling. Computing the index width
	// from the dictionary size before accounting for the reserved null
	// slot would undercount by one here and pick U8, which cannot
	// address index 256: this is the exact regression the fix guards.
	n := 256
	vals := make([]any, 0, n+1)
	vals = append(vals, nil)
	for i := 0; i < n; i++ {
		vals = append(vals, fmt.Sprintf("v-%d", i))
	}
	got := roundTrip(t, "LowCardinality(Nullable(String))", vals)
	if !reflect.DeepEqual(got, vals) {
		t.Error("round trip mismatch at the nullable dictionary U8/U16 boundary")
	}
}

func TestNestedWireShapeMatchesArrayTuple(t *testing.T) {
	vals := []any{
		[]any{[]any{int64(1), "x"}, []any{int64(2), "y"}},
	}
	got := roundTrip(t, "Nested(Int32, String)", vals)
	if !reflect.DeepEqual(got, vals) {
		t.Errorf("got %v, want %v", got, vals)
	}
}

func TestSimpleAggregateFunctionIsTransparent(t *testing.T) {
	got := roundTrip(t, "SimpleAggregateFunction(max, Int32)", []any{int64(7), int64(-3)})
	want := []any{int64(7), int64(-3)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestGeoRoundTrip(t *testing.T) {
	point := []any{1.5, 2.5}
	got := roundTrip(t, "Point", []any{point})
	if !reflect.DeepEqual(got, []any{point}) {
		t.Errorf("Point: got %v, want %v", got, point)
	}

	ring := []any{
		[]any{[]any{0.0, 0.0}, []any{1.0, 1.0}},
	}
	gotRing := roundTrip(t, "Ring", ring)
	if !reflect.DeepEqual(gotRing, ring) {
		t.Errorf("Ring: got %v, want %v", gotRing, ring)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	got := roundTrip(t, "JSON", []any{`{"a":1}`, `[]`})
	want := []any{`{"a":1}`, `[]`}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNothingRoundTrip(t *testing.T) {
	got := roundTrip(t, "Nothing", []any{nil, nil, nil})
	if len(got) != 3 {
		t.Errorf("got %d rows, want 3", len(got))
	}
}

func TestUnsupportedTypeError(t *testing.T) {
	if _, err := New("NotARealType"); err == nil {
		t.Fatal("expected an error for an unsupported type descriptor")
	}
}

func TestTypeDescriptorRoundTrip(t *testing.T) {
	c, err := New("Array(Nullable(String))")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Type() != "Array(Nullable(String))" {
		t.Errorf("Type() = %q", c.Type())
	}
}
