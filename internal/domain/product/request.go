package product

import (
	"mime/multipart"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-playground/validator/v10"
)

// CreateRequest carries the text fields and image files of a new product, as
// submitted in a multipart form.
type CreateRequest struct {
	Name          string `form:"name" validate:"required"`
	Variant       string `form:"variant" validate:"required"`
	Price         string `form:"price" validate:"required"`
	OriginalPrice string `form:"originalPrice"`
	Category      string `form:"category" validate:"required"`
	// Colors is a JSON-encoded array of color tokens.
	Colors  string `form:"colors" validate:"required"`
	Rating  string `form:"rating"`
	Reviews string `form:"reviews"`
	IsNew   string `form:"isNew"`
	Badge   string `form:"badge"`

	Images []*multipart.FileHeader `validate:"-"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("form")
	})
	return v
}

// product validates the text fields and converts them. Rating and reviews
// fall back to zero when they do not parse.
func (r CreateRequest) product(v *validator.Validate) (Product, error) {
	if err := v.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return Product{}, &ValidationError{Field: verrs[0].Field(), Reason: "is required"}
		}
		return Product{}, errors.Wrap(err, "validate")
	}

	price, err := ParseMinor("price", strings.TrimSpace(r.Price))
	if err != nil {
		return Product{}, err
	}
	colors, err := parseColors(r.Colors)
	if err != nil {
		return Product{}, err
	}

	p := Product{
		Name:     r.Name,
		Variant:  r.Variant,
		Price:    price,
		Category: r.Category,
		Colors:   colors,
	}
	if s := strings.TrimSpace(r.OriginalPrice); s != "" {
		v, err := ParseMinor("originalPrice", s)
		if err != nil {
			return Product{}, err
		}
		p.OriginalPrice = &v
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(r.Rating), 64); err == nil {
		p.Rating = v
	}
	if v, err := strconv.ParseInt(strings.TrimSpace(r.Reviews), 10, 64); err == nil {
		p.Reviews = v
	}
	if v, err := strconv.ParseBool(strings.TrimSpace(r.IsNew)); err == nil {
		p.IsNew = v
	}
	if r.Badge != "" {
		badge := r.Badge
		p.Badge = &badge
	}
	return p, nil
}

func parseColors(s string) ([]string, error) {
	d := jx.DecodeStr(s)
	if d.Next() != jx.Array {
		return nil, &ValidationError{Field: "colors", Reason: "must be a JSON array of strings"}
	}
	colors, err := decodeStrings(d)
	if err != nil {
		return nil, &ValidationError{Field: "colors", Reason: "must be a JSON array of strings"}
	}
	if len(colors) == 0 {
		return nil, &ValidationError{Field: "colors", Reason: "must not be empty"}
	}
	return colors, nil
}
