package product

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Encode writes p as a JSON object. The id is omitted while empty, which is
// how stored documents are written.
func (p Product) Encode(e *jx.Encoder) {
	e.ObjStart()
	if p.ID != "" {
		e.FieldStart("id")
		e.Str(p.ID)
	}
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("variant")
	e.Str(p.Variant)
	e.FieldStart("price")
	e.Int64(p.Price)
	if p.OriginalPrice != nil {
		e.FieldStart("originalPrice")
		e.Int64(*p.OriginalPrice)
	}
	e.FieldStart("category")
	e.Str(p.Category)
	e.FieldStart("colors")
	encodeStrings(e, p.Colors)
	e.FieldStart("rating")
	e.Float64(p.Rating)
	e.FieldStart("reviews")
	e.Int64(p.Reviews)
	e.FieldStart("isNew")
	e.Bool(p.IsNew)
	if p.Badge != nil {
		e.FieldStart("badge")
		e.Str(*p.Badge)
	}
	e.FieldStart("createdAt")
	e.Str(p.CreatedAt.UTC().Format(time.RFC3339Nano))
	e.FieldStart("images")
	encodeStrings(e, p.Images)
	e.ObjEnd()
}

// MarshalJSON implements json.Marshaler.
func (p Product) MarshalJSON() ([]byte, error) {
	var e jx.Encoder
	p.Encode(&e)
	return e.Bytes(), nil
}

// Decode reads a full product object. Unknown fields are skipped.
func (p *Product) Decode(d *jx.Decoder) error {
	var patch Patch
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			v, err := d.Str()
			p.ID = v
			return err
		case "createdAt":
			v, err := d.Str()
			if err != nil {
				return err
			}
			t, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				return errors.Wrap(err, "createdAt")
			}
			p.CreatedAt = t
			return nil
		default:
			return patch.decodeField(d, key)
		}
	})
	if err != nil {
		return errors.Wrap(err, "decode product")
	}
	patch.Apply(p)
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Product) UnmarshalJSON(data []byte) error {
	return p.Decode(jx.DecodeBytes(data))
}

// EncodeList writes products as a JSON array.
func EncodeList(e *jx.Encoder, products []Product) {
	e.ArrStart()
	for _, p := range products {
		p.Encode(e)
	}
	e.ArrEnd()
}

// DecodeList reads a JSON array of products.
func DecodeList(data []byte) ([]Product, error) {
	var out []Product
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		var p Product
		if err := p.Decode(d); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func encodeStrings(e *jx.Encoder, values []string) {
	e.ArrStart()
	for _, v := range values {
		e.Str(v)
	}
	e.ArrEnd()
}

func decodeStrings(d *jx.Decoder) ([]string, error) {
	out := []string{}
	err := d.Arr(func(d *jx.Decoder) error {
		v, err := d.Str()
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

// decodeMinor reads an integer amount written either as a JSON number or as a
// numeric string.
func decodeMinor(d *jx.Decoder, field string) (int64, error) {
	var raw string
	switch d.Next() {
	case jx.String:
		v, err := d.Str()
		if err != nil {
			return 0, err
		}
		raw = v
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return 0, err
		}
		raw = string(n)
	default:
		return 0, &ValidationError{Field: field, Reason: "must be an integer"}
	}
	return ParseMinor(field, raw)
}

// ParseMinor parses s as a non-negative whole number of minor currency units.
func ParseMinor(field, s string) (int64, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return 0, &ValidationError{Field: field, Reason: "must be an integer"}
	}
	if !v.IsInteger() {
		return 0, &ValidationError{Field: field, Reason: "must be a whole number of minor units"}
	}
	if v.IsNegative() {
		return 0, &ValidationError{Field: field, Reason: "must not be negative"}
	}
	if !v.BigInt().IsInt64() {
		return 0, &ValidationError{Field: field, Reason: "is out of range"}
	}
	return v.IntPart(), nil
}
