// Package bitfield packs and unpacks struct fields into a single integer.
//
// Adapted from mazarin's own bitfield package (itself a
// simplified take on golang.org/x/text/internal/gen/bitfield): annotate a
// struct's fields with a `bitfield:"<bits>"` tag and Pack/Unpack will lay
// them out low-bit-first in declaration order. The kernel core's hot paths
// (page flags, PTE bits, preempt counters) do not use this — those are
// fixed, performance-critical layouts hand-written as shift/mask constants.
// This package backs the slower, reflection-friendly corners: debug dumps
// and test fixtures that want to build or inspect a packed word from a
// named-field view without duplicating the bit arithmetic.
package bitfield

import (
	"fmt"
	"reflect"
)

// Pack compacts the tagged fields of x into a uint64, low bit first.
func Pack(x interface{}) (uint64, error) {
	v := reflect.ValueOf(x)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return 0, fmt.Errorf("bitfield: Pack expects a struct, got %v", v.Kind())
	}

	t := v.Type()
	var packed uint64
	var offset uint

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("bitfield")
		if tag == "" {
			continue
		}
		var bits uint
		if _, err := fmt.Sscanf(tag, "%d", &bits); err != nil || bits == 0 {
			return 0, fmt.Errorf("bitfield: invalid tag %q on field %s", tag, field.Name)
		}

		fv := v.Field(i)
		var bits64 uint64
		switch fv.Kind() {
		case reflect.Bool:
			if fv.Bool() {
				bits64 = 1
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			bits64 = fv.Uint()
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			n := fv.Int()
			if n < 0 {
				return 0, fmt.Errorf("bitfield: negative value %d for field %s", n, field.Name)
			}
			bits64 = uint64(n)
		default:
			return 0, fmt.Errorf("bitfield: unsupported kind %v for field %s", fv.Kind(), field.Name)
		}

		max := uint64(1)<<bits - 1
		if bits64 > max {
			return 0, fmt.Errorf("bitfield: value %d exceeds %d bits for field %s", bits64, bits, field.Name)
		}
		if offset+bits > 64 {
			return 0, fmt.Errorf("bitfield: field %s overflows 64 bits", field.Name)
		}

		packed |= bits64 << offset
		offset += bits
	}
	return packed, nil
}

// Unpack distributes the bits of packed into the tagged fields of dst,
// which must be a pointer to a struct with the same tagging Pack used.
func Unpack(packed uint64, dst interface{}) error {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("bitfield: Unpack expects a pointer to struct")
	}
	v = v.Elem()
	t := v.Type()
	var offset uint

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("bitfield")
		if tag == "" {
			continue
		}
		var bits uint
		if _, err := fmt.Sscanf(tag, "%d", &bits); err != nil || bits == 0 {
			return fmt.Errorf("bitfield: invalid tag %q on field %s", tag, field.Name)
		}

		mask := uint64(1)<<bits - 1
		val := (packed >> offset) & mask
		fv := v.Field(i)
		switch fv.Kind() {
		case reflect.Bool:
			fv.SetBool(val != 0)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			fv.SetUint(val)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			fv.SetInt(int64(val))
		default:
			return fmt.Errorf("bitfield: unsupported kind %v for field %s", fv.Kind(), field.Name)
		}
		offset += bits
	}
	return nil
}
