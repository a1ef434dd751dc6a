package codec

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncodeScalars(t *testing.T) {
	cases := []struct {
		name string
		in   Value
		want string
	}{
		{"null", Null(), "null"},
		{"true", Bool(true), "true"},
		{"false", Bool(false), "false"},
		{"u64", U64(42), "42"},
		{"i64", I64(-7), "-7"},
		{"float", F64(150.99), "150.99"},
		{"float-rounds", F64(1), "1.00"},
		{"empty-seq", Seq(), "[]"},
		{"empty-map", Map(), "{}"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Encode(c.in)
			if got != c.want {
				t.Fatalf("Encode(%v) = %q, want %q", c.in, got, c.want)
			}
		})
	}
}

func TestEncodeNestedContainers(t *testing.T) {
	v := Map(
		Field("flight_ids", Seq(U64(1), U64(8))),
		Field("nested", Map(Field("a", Seq()), Field("b", Null()))),
	)
	got := Encode(v)
	want := `{"flight_ids":[1,8],"nested":{"a":[],"b":null}}`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestEscapeStringRoundTrip(t *testing.T) {
	in := "quote\" backslash\\ tab\t newline\n cr\r bs\b ff\f slash/ ctrl\x01"
	encoded := Encode(Str(in))
	decoded, err := Decode([]byte(encoded))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Kind != KindStr || decoded.Str != in {
		t.Fatalf("round trip mismatch: got %q, want %q", decoded.Str, in)
	}
}

func TestDecodeIntegerBoundary(t *testing.T) {
	cases := []struct {
		in       string
		wantKind Kind
	}{
		{"9223372036854775807", KindU64},
		{"9223372036854775808", KindF64},
		{"-9223372036854775808", KindI64},
	}
	for _, c := range cases {
		v, err := Decode([]byte(c.in))
		if err != nil {
			t.Fatalf("Decode(%q): %v", c.in, err)
		}
		if v.Kind != c.wantKind {
			t.Fatalf("Decode(%q) kind = %v, want %v", c.in, v.Kind, c.wantKind)
		}
	}
}

func TestDecodeExponentOverflowIsError(t *testing.T) {
	_, err := Decode([]byte("1e400"))
	if err == nil {
		t.Fatal("expected error for 1e400")
	}
}

func TestDecodeMismatchedCloseIsError(t *testing.T) {
	_, err := Decode([]byte("[}"))
	if err == nil {
		t.Fatal("expected error for mismatched close")
	}
}

func TestDecodeTrailingGarbageIsError(t *testing.T) {
	_, err := Decode([]byte("1 2"))
	if err == nil {
		t.Fatal("expected error for trailing garbage")
	}
}

func TestDecodeUnrecognizedEscapeIsError(t *testing.T) {
	_, err := Decode([]byte("\"\\" + "u0041\""))
	if err == nil {
		t.Fatal("expected error: \\u is not a recognized escape on the parse path")
	}
}

func TestValueRoundTrip(t *testing.T) {
	v := Map(
		Field("source", Str("LAS")),
		Field("destination", Str("HAN")),
		Field("seats", Seq(U64(1), U64(2), U64(3))),
		Field("airfare", F64(150.99)),
	)
	encoded := Encode(v)
	decoded, err := Decode([]byte(encoded))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if diff := cmp.Diff(v, decoded); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshalUnmarshalStruct(t *testing.T) {
	type body struct {
		FlightID uint32 `json:"flight_id"`
		NumSeat  uint32 `json:"num_seat"`
	}
	in := body{FlightID: 1, NumSeat: 5}
	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"flight_id":1`) {
		t.Fatalf("unexpected wire form: %s", data)
	}
	var out body
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out != in {
		t.Fatalf("got %+v, want %+v", out, in)
	}
}

func TestUnmarshalIntegerOverflowIsRejected(t *testing.T) {
	type body struct {
		Amount uint8 `json:"amount"`
	}
	var out body
	err := Unmarshal([]byte(`{"amount":1000}`), &out)
	if err == nil {
		t.Fatal("expected overflow error for uint8 field")
	}
}

func TestDeepNestingDoesNotPanic(t *testing.T) {
	const depth = 10000
	var sb strings.Builder
	for i := 0; i < depth; i++ {
		sb.WriteByte('[')
	}
	sb.WriteString("0")
	for i := 0; i < depth; i++ {
		sb.WriteByte(']')
	}
	_, err := Decode([]byte(sb.String()))
	if err != nil {
		t.Fatalf("Decode deep nesting: %v", err)
	}
}
