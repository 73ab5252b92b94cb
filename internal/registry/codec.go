package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

var nullJSON = json.RawMessage("null")

// decodeArgs populates target (a pointer to the handler's input struct) from
// a JSON object payload. The payload is read into a cty.Value, projected
// onto the struct's implied object type, converted, and handed to gocty.
func decodeArgs(payload []byte, inputType reflect.Type, target any) error {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || bytes.Equal(payload, nullJSON) {
		payload = []byte("{}")
	}

	wantTy, err := gocty.ImpliedType(reflect.Zero(inputType).Interface())
	if err != nil {
		return fmt.Errorf("cannot imply cty type for %s: %w", inputType, err)
	}

	gotTy, err := ctyjson.ImpliedType(payload)
	if err != nil {
		return fmt.Errorf("malformed JSON payload: %w", err)
	}
	if !gotTy.IsObjectType() {
		return fmt.Errorf("arguments must be a JSON object, got %s", gotTy.FriendlyName())
	}
	val, err := ctyjson.Unmarshal(payload, gotTy)
	if err != nil {
		return fmt.Errorf("malformed JSON payload: %w", err)
	}

	projected, err := project(val, wantTy, nil)
	if err != nil {
		return fmt.Errorf("cannot convert arguments to %s: %w", wantTy.FriendlyName(), describePathError(err))
	}
	converted, err := convert.Convert(projected, wantTy)
	if err != nil {
		return fmt.Errorf("cannot convert arguments to %s: %w", wantTy.FriendlyName(), describePathError(err))
	}
	if err := gocty.FromCtyValue(converted, target); err != nil {
		return describePathError(err)
	}
	return nil
}

// project shapes val after ty: attributes ty does not declare are dropped
// and attributes it declares but val lacks become null. Collections are
// projected element-wise. Primitives must already have the declared type,
// so a number or bool is never accepted where a string is expected.
func project(val cty.Value, ty cty.Type, path cty.Path) (cty.Value, error) {
	if val.IsNull() {
		return cty.NullVal(ty), nil
	}
	vt := val.Type()

	switch {
	case ty.IsPrimitiveType():
		if !vt.Equals(ty) {
			return cty.NilVal, path.NewErrorf("%s required, but have %s", ty.FriendlyName(), vt.FriendlyName())
		}
		return val, nil

	case ty.IsObjectType() && vt.IsObjectType():
		attrTypes := ty.AttributeTypes()
		if len(attrTypes) == 0 {
			return cty.EmptyObjectVal, nil
		}
		attrs := make(map[string]cty.Value, len(attrTypes))
		for name, aty := range attrTypes {
			if !vt.HasAttribute(name) {
				attrs[name] = cty.NullVal(aty)
				continue
			}
			av, err := project(val.GetAttr(name), aty, path.GetAttr(name))
			if err != nil {
				return cty.NilVal, err
			}
			attrs[name] = av
		}
		return cty.ObjectVal(attrs), nil

	case (ty.IsListType() || ty.IsSetType()) && (vt.IsTupleType() || vt.IsListType()):
		if val.LengthInt() == 0 {
			return val, nil
		}
		elems := make([]cty.Value, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			pv, err := project(ev, ty.ElementType(), path.Index(k))
			if err != nil {
				return cty.NilVal, err
			}
			elems = append(elems, pv)
		}
		return cty.TupleVal(elems), nil

	case ty.IsMapType() && vt.IsObjectType():
		if val.LengthInt() == 0 {
			return val, nil
		}
		elems := make(map[string]cty.Value, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			pv, err := project(ev, ty.ElementType(), path.Index(k))
			if err != nil {
				return cty.NilVal, err
			}
			elems[k.AsString()] = pv
		}
		return cty.ObjectVal(elems), nil
	}
	return val, nil
}

// encodeResult renders a handler's output as JSON.
func encodeResult(out any) (json.RawMessage, error) {
	if out == nil {
		return nullJSON, nil
	}
	if v, ok := out.(cty.Value); ok {
		return ctyjson.Marshal(v, v.Type())
	}

	rv := reflect.ValueOf(out)
	if rv.Kind() == reflect.Ptr && rv.IsNil() {
		return nullJSON, nil
	}

	ty, err := gocty.ImpliedType(out)
	if err != nil {
		return nil, fmt.Errorf("cannot imply cty type from result %T: %w", out, err)
	}
	val, err := gocty.ToCtyValue(out, ty)
	if err != nil {
		return nil, fmt.Errorf("cannot convert result %T: %w", out, err)
	}
	return ctyjson.Marshal(val, ty)
}

// describePathError prefixes a cty path error with the attribute it
// happened at so callers can tell which argument was wrong.
func describePathError(err error) error {
	var pathErr cty.PathError
	if !errors.As(err, &pathErr) || len(pathErr.Path) == 0 {
		return err
	}
	var where string
	for _, step := range pathErr.Path {
		switch s := step.(type) {
		case cty.GetAttrStep:
			where += "." + s.Name
		case cty.IndexStep:
			if s.Key.Type() == cty.String {
				where += fmt.Sprintf("[%q]", s.Key.AsString())
			} else if s.Key.Type() == cty.Number {
				where += fmt.Sprintf("[%s]", s.Key.AsBigFloat().Text('f', -1))
			}
		}
	}
	if where == "" {
		return err
	}
	return fmt.Errorf("argument %s: %w", strings.TrimPrefix(where, "."), err)
}
