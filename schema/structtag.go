package schema

import (
	"errors"
	"fmt"
	"reflect"

	stgpsr "github.com/yuin/stagparser"
)

// ErrFromStruct wraps failures deriving an attribute set from a struct tag
// definition (FromStruct below).
var ErrFromStruct = errors.New("schema: error deriving attributes from struct")

// CompressionHint records a requested storage-manager compression filter
// for one attribute. It is carried as schema metadata only: (de)compression
// is the storage manager's job, so the iterator core never applies these
// itself. A storage.Manager implementation reads compression intent from
// here the same way TileDB's filter pipeline reads a `filters:"..."` tag.
type CompressionHint struct {
	Name  string // "zstd", "gzip", "lz4", "rle", "bzip2", "bitw", "bysh", "bish"
	Level int32
}

// FieldHints carries the per-field compression hints parsed from a
// `filters:"..."` struct tag, keyed by exported field name.
type FieldHints map[string][]CompressionHint

// FromStruct derives an Attribute list from the exported fields of a Go
// struct annotated with the tag vocabulary TileDB bindings use:
//
//	`tiledb:"dtype=uint16,ftype=attr" filters:"zstd(level=16)"`
//
// dtype selects the AttrKind; ftype="dim" marks a field as a dimension
// placeholder and excludes it from the attribute list (dimensions are
// described separately via Dimension, since they also carry domain bounds
// FromStruct has no way to infer from a Go type); a `var` tag (no value)
// marks the attribute variable-length.
func FromStruct(t any) ([]Attribute, FieldHints, error) {
	values := reflect.ValueOf(t)
	if values.Kind() == reflect.Ptr {
		values = values.Elem()
	}
	types := values.Type()

	tdbDefs, _ := stgpsr.ParseStruct(t, "tiledb")
	filtDefs, _ := stgpsr.ParseStruct(t, "filters")

	attrs := make([]Attribute, 0, types.NumField())
	hints := make(FieldHints)

	for i := 0; i < types.NumField(); i++ {
		field := types.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name

		fieldTdb := make(map[string]stgpsr.Definition)
		for _, v := range tdbDefs[name] {
			fieldTdb[v.Name()] = v
		}

		def, ok := fieldTdb["ftype"]
		if !ok {
			return nil, nil, errors.Join(ErrFromStruct, fmt.Errorf("field %q missing ftype tag", name))
		}
		ftype, _ := def.Attribute("ftype")
		if ftype == "dim" {
			continue
		}

		dtypeDef, ok := fieldTdb["dtype"]
		if !ok {
			return nil, nil, errors.Join(ErrFromStruct, fmt.Errorf("field %q missing dtype tag", name))
		}
		dtypeName, _ := dtypeDef.Attribute("dtype")

		kind, err := attrKindFromTag(fmt.Sprint(dtypeName))
		if err != nil {
			return nil, nil, errors.Join(ErrFromStruct, fmt.Errorf("field %q", name), err)
		}

		valNum := 1
		if _, isVar := fieldTdb["var"]; isVar {
			valNum = VarSize
		}

		attrs = append(attrs, Attribute{Name: name, Kind: kind, ValNum: valNum})

		for _, fdef := range filtDefs[name] {
			hint := CompressionHint{Name: fdef.Name()}
			if lvl, ok := fdef.Attribute("level"); ok {
				if i64, ok := lvl.(int64); ok {
					hint.Level = int32(i64)
				}
			}
			hints[name] = append(hints[name], hint)
		}
	}

	return attrs, hints, nil
}

func attrKindFromTag(name string) (AttrKind, error) {
	switch name {
	case "int8":
		return Int8, nil
	case "uint8":
		return Uint8, nil
	case "int16":
		return Int16, nil
	case "uint16":
		return Uint16, nil
	case "int32":
		return Int32, nil
	case "uint32":
		return Uint32, nil
	case "int64":
		return Int64, nil
	case "uint64":
		return Uint64, nil
	case "float32":
		return Float32, nil
	case "float64":
		return Float64, nil
	default:
		return 0, fmt.Errorf("unsupported dtype %q", name)
	}
}
