package asset

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Encode writes img as a JSON object with its derived url. The id is omitted
// while empty.
func (i Image) Encode(e *jx.Encoder) {
	e.ObjStart()
	if i.ID != "" {
		e.FieldStart("id")
		e.Str(i.ID)
	}
	e.FieldStart("filename")
	e.Str(i.Filename)
	e.FieldStart("path")
	e.Str(i.Path)
	e.FieldStart("createdAt")
	e.Str(i.CreatedAt.UTC().Format(time.RFC3339Nano))
	if i.ID != "" {
		e.FieldStart("url")
		e.Str(i.URL())
	}
	e.ObjEnd()
}

// Decode reads an image object. The url is derived and therefore skipped.
func (i *Image) Decode(d *jx.Decoder) error {
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			i.ID, err = d.Str()
		case "filename":
			i.Filename, err = d.Str()
		case "path":
			i.Path, err = d.Str()
		case "createdAt":
			var v string
			if v, err = d.Str(); err != nil {
				return err
			}
			i.CreatedAt, err = time.Parse(time.RFC3339Nano, v)
		default:
			return d.Skip()
		}
		return err
	})
	if err != nil {
		return errors.Wrap(err, "decode image")
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (i Image) MarshalJSON() ([]byte, error) {
	var e jx.Encoder
	i.Encode(&e)
	return e.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (i *Image) UnmarshalJSON(data []byte) error {
	return i.Decode(jx.DecodeBytes(data))
}
