/*
 * Copyright 2018 The Trickster Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package docstore

import (
	"fmt"
	"reflect"
)

// OpType identifies a field operator
type OpType int

const (
	OpSet OpType = iota
	OpIncrement
	OpArrayUnion
	OpArrayRemove
	OpSizeOf
)

var opNames = map[OpType]string{
	OpSet:         "set",
	OpIncrement:   "increment",
	OpArrayUnion:  "arrayUnion",
	OpArrayRemove: "arrayRemove",
	OpSizeOf:      "sizeOf",
}

func (t OpType) String() string {
	if s, ok := opNames[t]; ok {
		return s
	}
	return fmt.Sprintf("op(%d)", int(t))
}

// FieldOp is an atomic change to one top-level field
type FieldOp struct {
	Type   OpType
	Field  string
	Value  any
	Values []any
	Source string
}

// Set replaces field with v
func Set(field string, v any) FieldOp {
	return FieldOp{Type: OpSet, Field: field, Value: v}
}

// Increment adds n to a numeric field; a missing field counts as zero
func Increment(field string, n float64) FieldOp {
	return FieldOp{Type: OpIncrement, Field: field, Value: n}
}

// ArrayUnion appends each value not already present in the array field
func ArrayUnion(field string, values ...any) FieldOp {
	return FieldOp{Type: OpArrayUnion, Field: field, Values: values}
}

// ArrayRemove removes every occurrence of each value from the array field
func ArrayRemove(field string, values ...any) FieldOp {
	return FieldOp{Type: OpArrayRemove, Field: field, Values: values}
}

// SizeOf sets field to the length of arrayField, as evaluated after the
// operators before it
func SizeOf(field, arrayField string) FieldOp {
	return FieldOp{Type: OpSizeOf, Field: field, Source: arrayField}
}

// Apply returns a copy of f with ops applied in order. f is not modified.
func Apply(f Fields, ops ...FieldOp) (Fields, error) {
	out := f.Clone()
	if out == nil {
		out = Fields{}
	}
	for _, op := range ops {
		if op.Field == "" {
			return nil, fmt.Errorf("%w: %s requires a field", ErrInvalidField, op.Type)
		}
		switch op.Type {
		case OpSet:
			v, err := normalizeValue(op.Value)
			if err != nil {
				return nil, err
			}
			out[op.Field] = v
		case OpIncrement:
			cur, err := number(out, op.Field)
			if err != nil {
				return nil, err
			}
			n, err := normalizeValue(op.Value)
			if err != nil {
				return nil, err
			}
			d, ok := n.(float64)
			if !ok {
				return nil, fmt.Errorf("%w: increment of %s by non-number", ErrInvalidField, op.Field)
			}
			out[op.Field] = cur + d
		case OpArrayUnion, OpArrayRemove:
			arr, err := array(out, op.Field)
			if err != nil {
				return nil, err
			}
			vals, err := normalizeValues(op.Values)
			if err != nil {
				return nil, err
			}
			if op.Type == OpArrayUnion {
				out[op.Field] = union(arr, vals)
			} else {
				out[op.Field] = remove(arr, vals)
			}
		case OpSizeOf:
			arr, err := array(out, op.Source)
			if err != nil {
				return nil, err
			}
			out[op.Field] = float64(len(arr))
		default:
			return nil, fmt.Errorf("%w: unknown operator %s", ErrInvalidField, op.Type)
		}
	}
	return out, nil
}

func normalizeValue(v any) (any, error) {
	f, err := Normalize(Fields{"v": v})
	if err != nil {
		return nil, err
	}
	return f["v"], nil
}

func normalizeValues(vs []any) ([]any, error) {
	out := make([]any, len(vs))
	for i, v := range vs {
		n, err := normalizeValue(v)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func number(f Fields, field string) (float64, error) {
	switch v := f[field].(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	}
	return 0, fmt.Errorf("%w: %s is not a number", ErrInvalidField, field)
}

func array(f Fields, field string) ([]any, error) {
	switch v := f[field].(type) {
	case nil:
		return []any{}, nil
	case []any:
		return v, nil
	}
	return nil, fmt.Errorf("%w: %s is not an array", ErrInvalidField, field)
}

func contains(arr []any, v any) bool {
	for _, e := range arr {
		if reflect.DeepEqual(e, v) {
			return true
		}
	}
	return false
}

func union(arr, vals []any) []any {
	for _, v := range vals {
		if !contains(arr, v) {
			arr = append(arr, v)
		}
	}
	return arr
}

func remove(arr, vals []any) []any {
	out := make([]any, 0, len(arr))
	for _, e := range arr {
		if !contains(vals, e) {
			out = append(out, e)
		}
	}
	return out
}
