package product

import (
	"io"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Opt is an optional patch value. Set reports whether the field was present;
// Null reports an explicit JSON null.
type Opt[T any] struct {
	Value T
	Set   bool
	Null  bool
}

func set[T any](v T) Opt[T] { return Opt[T]{Value: v, Set: true} }

// Patch is a partial product update. Only fields present in the request are
// applied. The id and creation time cannot be changed.
type Patch struct {
	Name          Opt[string]
	Variant       Opt[string]
	Price         Opt[int64]
	OriginalPrice Opt[int64]
	Category      Opt[string]
	Colors        Opt[[]string]
	Rating        Opt[float64]
	Reviews       Opt[int64]
	IsNew         Opt[bool]
	Badge         Opt[string]
	Images        Opt[[]string]
}

// DecodePatch parses a JSON object into a Patch.
func DecodePatch(data []byte) (Patch, error) {
	var p Patch
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return p, &ValidationError{Field: "body", Reason: "must be a JSON object"}
	}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id", "_id", "createdAt":
			return d.Skip()
		default:
			return p.decodeField(d, key)
		}
	})
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return p, verr
		}
		return p, &ValidationError{Field: "body", Reason: err.Error()}
	}
	if err := d.Skip(); !errors.Is(err, io.EOF) {
		return p, &ValidationError{Field: "body", Reason: "unexpected data after JSON object"}
	}
	return p, nil
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return !p.Name.Set && !p.Variant.Set && !p.Price.Set && !p.OriginalPrice.Set &&
		!p.Category.Set && !p.Colors.Set && !p.Rating.Set && !p.Reviews.Set &&
		!p.IsNew.Set && !p.Badge.Set && !p.Images.Set
}

// Apply writes the present fields onto dst.
func (p Patch) Apply(dst *Product) {
	if p.Name.Set {
		dst.Name = p.Name.Value
	}
	if p.Variant.Set {
		dst.Variant = p.Variant.Value
	}
	if p.Price.Set {
		dst.Price = p.Price.Value
	}
	if p.OriginalPrice.Set {
		if p.OriginalPrice.Null {
			dst.OriginalPrice = nil
		} else {
			v := p.OriginalPrice.Value
			dst.OriginalPrice = &v
		}
	}
	if p.Category.Set {
		dst.Category = p.Category.Value
	}
	if p.Colors.Set {
		dst.Colors = p.Colors.Value
	}
	if p.Rating.Set {
		dst.Rating = p.Rating.Value
	}
	if p.Reviews.Set {
		dst.Reviews = p.Reviews.Value
	}
	if p.IsNew.Set {
		dst.IsNew = p.IsNew.Value
	}
	if p.Badge.Set {
		if p.Badge.Null {
			dst.Badge = nil
		} else {
			v := p.Badge.Value
			dst.Badge = &v
		}
	}
	if p.Images.Set {
		dst.Images = p.Images.Value
	}
}

func (p *Patch) decodeField(d *jx.Decoder, key string) error {
	if d.Next() == jx.Null {
		if err := d.Null(); err != nil {
			return err
		}
		switch key {
		case "originalPrice":
			p.OriginalPrice = Opt[int64]{Set: true, Null: true}
		case "badge":
			p.Badge = Opt[string]{Set: true, Null: true}
		case "name", "variant", "price", "category", "colors", "rating", "reviews", "isNew", "images":
			return &ValidationError{Field: key, Reason: "must not be null"}
		}
		return nil
	}

	var err error
	switch key {
	case "name":
		p.Name.Value, err = d.Str()
		p.Name.Set = true
	case "variant":
		p.Variant.Value, err = d.Str()
		p.Variant.Set = true
	case "category":
		p.Category.Value, err = d.Str()
		p.Category.Set = true
	case "badge":
		p.Badge.Value, err = d.Str()
		p.Badge.Set = true
	case "price":
		var v int64
		v, err = decodeMinor(d, key)
		p.Price = set(v)
	case "originalPrice":
		var v int64
		v, err = decodeMinor(d, key)
		p.OriginalPrice = set(v)
	case "colors":
		p.Colors.Value, err = decodeStrings(d)
		p.Colors.Set = true
	case "images":
		p.Images.Value, err = decodeStrings(d)
		p.Images.Set = true
	case "rating":
		p.Rating.Value, err = d.Float64()
		p.Rating.Set = true
	case "reviews":
		p.Reviews.Value, err = d.Int64()
		p.Reviews.Set = true
	case "isNew":
		p.IsNew.Value, err = d.Bool()
		p.IsNew.Set = true
	default:
		return d.Skip()
	}
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return err
		}
		return &ValidationError{Field: key, Reason: "has the wrong type"}
	}
	return nil
}
