package codec

import (
	"fmt"
	"reflect"
)

// Marshal converts v — a struct, slice, map, or primitive — into wire bytes
// by first building its Value tree and then running it through Encode. The
// body schemas in this system are flat, fixed-shape records (§3 of the
// governing spec), so the struct walk below is a small, bounded reflection
// pass; it is Encode and Decode that carry the non-recursion guarantee
// against adversarial, unbounded-depth wire input.
func Marshal(v interface{}) ([]byte, error) {
	val, err := toValue(reflect.ValueOf(v))
	if err != nil {
		return nil, err
	}
	return []byte(Encode(val)), nil
}

// Unmarshal decodes data and materializes it into v, a pointer to a struct,
// slice, map, or primitive. Decoding rejects integers that overflow the
// destination field's width, mirroring the sink bounds-checking contract.
func Unmarshal(data []byte, v interface{}) error {
	val, err := Decode(data)
	if err != nil {
		return err
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("codec: Unmarshal target must be a non-nil pointer")
	}
	return fromValue(val, rv.Elem())
}

func toValue(rv reflect.Value) (Value, error) {
	if !rv.IsValid() {
		return Null(), nil
	}
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return toValue(rv.Elem())
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.String:
		return Str(rv.String()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return U64(rv.Uint()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return I64(rv.Int()), nil
	case reflect.Float32, reflect.Float64:
		return F64(rv.Float()), nil
	case reflect.Slice, reflect.Array:
		n := rv.Len()
		items := make([]Value, n)
		for i := 0; i < n; i++ {
			elem, err := toValue(rv.Index(i))
			if err != nil {
				return Value{}, err
			}
			items[i] = elem
		}
		return Seq(items...), nil
	case reflect.Struct:
		t := rv.Type()
		var entries []Entry
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.PkgPath != "" {
				continue // unexported
			}
			name := fieldName(f)
			if name == "-" {
				continue
			}
			fv, err := toValue(rv.Field(i))
			if err != nil {
				return Value{}, err
			}
			entries = append(entries, Field(name, fv))
		}
		return Map(entries...), nil
	case reflect.Map:
		keys := rv.MapKeys()
		entries := make([]Entry, 0, len(keys))
		for _, k := range keys {
			fv, err := toValue(rv.MapIndex(k))
			if err != nil {
				return Value{}, err
			}
			entries = append(entries, Field(fmt.Sprint(k.Interface()), fv))
		}
		return Map(entries...), nil
	default:
		return Value{}, fmt.Errorf("codec: cannot marshal kind %s", rv.Kind())
	}
}

func fieldName(f reflect.StructField) string {
	if tag, ok := f.Tag.Lookup("json"); ok && tag != "" {
		for i := 0; i < len(tag); i++ {
			if tag[i] == ',' {
				return tag[:i]
			}
		}
		return tag
	}
	return lowerFirst(f.Name)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}

func fromValue(v Value, rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		return fromValue(v, rv.Elem())
	case reflect.Bool:
		if v.Kind != KindBool {
			return fmt.Errorf("codec: expected bool, got kind %d", v.Kind)
		}
		rv.SetBool(v.Bool)
		return nil
	case reflect.String:
		if v.Kind != KindStr {
			return fmt.Errorf("codec: expected string, got kind %d", v.Kind)
		}
		rv.SetString(v.Str)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := asUint64(v)
		if err != nil {
			return err
		}
		if rv.OverflowUint(n) {
			return fmt.Errorf("codec: value %d out of range for %s", n, rv.Type())
		}
		rv.SetUint(n)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := asInt64(v)
		if err != nil {
			return err
		}
		if rv.OverflowInt(n) {
			return fmt.Errorf("codec: value %d out of range for %s", n, rv.Type())
		}
		rv.SetInt(n)
		return nil
	case reflect.Float32, reflect.Float64:
		f, err := asFloat64(v)
		if err != nil {
			return err
		}
		rv.SetFloat(f)
		return nil
	case reflect.Slice:
		if v.Kind != KindSeq {
			return fmt.Errorf("codec: expected sequence, got kind %d", v.Kind)
		}
		out := reflect.MakeSlice(rv.Type(), len(v.Seq), len(v.Seq))
		for i, elem := range v.Seq {
			if err := fromValue(elem, out.Index(i)); err != nil {
				return err
			}
		}
		rv.Set(out)
		return nil
	case reflect.Struct:
		if v.Kind != KindMap {
			return fmt.Errorf("codec: expected map, got kind %d", v.Kind)
		}
		t := rv.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.PkgPath != "" {
				continue
			}
			name := fieldName(f)
			if name == "-" {
				continue
			}
			fv, ok := v.Get(name)
			if !ok {
				return fmt.Errorf("codec: missing required field %q", name)
			}
			if err := fromValue(fv, rv.Field(i)); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("codec: cannot unmarshal into kind %s", rv.Kind())
	}
}

func asUint64(v Value) (uint64, error) {
	switch v.Kind {
	case KindU64:
		return v.U64, nil
	case KindI64:
		if v.I64 < 0 {
			return 0, fmt.Errorf("codec: negative value where unsigned expected")
		}
		return uint64(v.I64), nil
	default:
		return 0, fmt.Errorf("codec: expected integer, got kind %d", v.Kind)
	}
}

func asInt64(v Value) (int64, error) {
	switch v.Kind {
	case KindI64:
		return v.I64, nil
	case KindU64:
		if v.U64 > 1<<63-1 {
			return 0, fmt.Errorf("codec: value %d out of range for signed integer", v.U64)
		}
		return int64(v.U64), nil
	default:
		return 0, fmt.Errorf("codec: expected integer, got kind %d", v.Kind)
	}
}

func asFloat64(v Value) (float64, error) {
	switch v.Kind {
	case KindF64:
		return v.F64, nil
	case KindU64:
		return float64(v.U64), nil
	case KindI64:
		return float64(v.I64), nil
	default:
		return 0, fmt.Errorf("codec: expected number, got kind %d", v.Kind)
	}
}
