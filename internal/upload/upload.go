// Package upload validates multipart image uploads and writes accepted files
// to the blob store.
//
// Validation happens before anything touches the disk: a request whose body
// exceeds the policy limit, carries too many files, or contains a file that is
// not a jpeg/png is rejected as a whole.
package upload

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"
)

// memoryLimit is how much of a multipart body is buffered in memory before
// file parts spill to temporary files.
const memoryLimit = 8 << 20

var (
	// ErrTooLarge is returned when the request body exceeds Policy.MaxBytes.
	ErrTooLarge = errors.New("file too large")
	// ErrTooManyFiles is returned when the field carries more than Policy.MaxFiles files.
	ErrTooManyFiles = errors.New("too many files")
	// ErrUnsupportedType is returned when a file is not a jpeg or png image.
	ErrUnsupportedType = errors.New("only .jpeg, .jpg and .png images are allowed")
	// ErrMissingFile is returned by Form.File when no file was attached.
	ErrMissingFile = errors.New("no file uploaded")
	// ErrMalformed is returned when the body is not a readable multipart form.
	ErrMalformed = errors.New("malformed multipart form")
)

var (
	allowedExts = map[string]struct{}{
		".jpeg": {},
		".jpg":  {},
		".png":  {},
	}
	allowedTypes = map[string]struct{}{
		"image/jpeg": {},
		"image/jpg":  {},
		"image/png":  {},
	}
)

// Policy limits a single upload route.
type Policy struct {
	// Field is the multipart field holding the files.
	Field string
	// MaxBytes caps the whole request body.
	MaxBytes int64
	// MaxFiles caps the number of files in Field. Zero means one.
	MaxFiles int
}

func (p Policy) maxFiles() int {
	if p.MaxFiles <= 0 {
		return 1
	}
	return p.MaxFiles
}

// Form is a parsed and validated multipart request.
type Form struct {
	form  *multipart.Form
	Files []*multipart.FileHeader
}

// Value returns the first value of a text field.
func (f *Form) Value(key string) string {
	if vs := f.form.Value[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Has reports whether the text field was sent at all.
func (f *Form) Has(key string) bool {
	_, ok := f.form.Value[key]
	return ok
}

// File returns the single uploaded file.
func (f *Form) File() (*multipart.FileHeader, error) {
	if len(f.Files) == 0 {
		return nil, ErrMissingFile
	}
	return f.Files[0], nil
}

// Close removes temporary files created while parsing.
func (f *Form) Close() error {
	return f.form.RemoveAll()
}

// Parse reads the multipart body of r under policy p and validates every
// file in p.Field.
func Parse(w http.ResponseWriter, r *http.Request, p Policy) (*Form, error) {
	r.Body = http.MaxBytesReader(w, r.Body, p.MaxBytes)
	if err := r.ParseMultipartForm(memoryLimit); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || errors.Is(err, multipart.ErrMessageTooLarge) {
			return nil, errors.Wrapf(ErrTooLarge, "limit is %s", humanSize(p.MaxBytes))
		}
		return nil, errors.Wrap(ErrMalformed, err.Error())
	}

	form := &Form{
		form:  r.MultipartForm,
		Files: r.MultipartForm.File[p.Field],
	}
	if len(form.Files) > p.maxFiles() {
		_ = form.Close()
		return nil, errors.Wrapf(ErrTooManyFiles, "at most %d allowed in %q", p.maxFiles(), p.Field)
	}
	for _, fh := range form.Files {
		if err := Check(fh); err != nil {
			_ = form.Close()
			return nil, err
		}
	}
	return form, nil
}

// Check verifies that both the extension and the declared content type of fh
// are on the image allow-list.
func Check(fh *multipart.FileHeader) error {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if _, ok := allowedExts[ext]; !ok {
		return errors.Wrapf(ErrUnsupportedType, "%q", fh.Filename)
	}
	mediaType, _, err := mime.ParseMediaType(fh.Header.Get("Content-Type"))
	if err != nil {
		return errors.Wrapf(ErrUnsupportedType, "%q", fh.Filename)
	}
	if _, ok := allowedTypes[strings.ToLower(mediaType)]; !ok {
		return errors.Wrapf(ErrUnsupportedType, "%q has type %s", fh.Filename, mediaType)
	}
	return nil
}

// Blobs is the subset of the blob store used to persist uploads.
type Blobs interface {
	Save(ctx context.Context, name string, r io.Reader) (int64, error)
	Remove(name string) error
	Path(name string) string
}

// Stored describes a file written to the blob store.
type Stored struct {
	Filename string
	Path     string
	Size     int64
}

// Writer stores validated files under generated names.
type Writer struct {
	blobs Blobs
	now   func() time.Time
}

// NewWriter returns a Writer backed by blobs.
func NewWriter(blobs Blobs) *Writer {
	return &Writer{blobs: blobs, now: time.Now}
}

// Save writes a single file.
func (w *Writer) Save(ctx context.Context, fh *multipart.FileHeader) (Stored, error) {
	return w.save(ctx, fh, Filename(w.now(), fh.Filename))
}

func (w *Writer) save(ctx context.Context, fh *multipart.FileHeader, name string) (Stored, error) {
	f, err := fh.Open()
	if err != nil {
		return Stored{}, errors.Wrap(err, "open upload")
	}
	defer func() { _ = f.Close() }()

	n, err := w.blobs.Save(ctx, name, f)
	if err != nil {
		return Stored{}, err
	}
	return Stored{Filename: name, Path: w.blobs.Path(name), Size: n}, nil
}

// SaveAll writes files concurrently and returns them in input order. If any
// write fails, the files already written are removed.
func (w *Writer) SaveAll(ctx context.Context, files []*multipart.FileHeader) ([]Stored, error) {
	out := make([]Stored, len(files))
	// Offset each timestamp so identical originals in one batch get distinct names.
	now := w.now()
	g, gctx := errgroup.WithContext(ctx)
	for i, fh := range files {
		name := Filename(now.Add(time.Duration(i)), fh.Filename)
		g.Go(func() error {
			s, err := w.save(gctx, fh, name)
			if err != nil {
				return errors.Wrapf(err, "save %q", fh.Filename)
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		w.Discard(out)
		return nil, err
	}
	return out, nil
}

// Remove deletes a single stored file.
func (w *Writer) Remove(name string) error {
	return w.blobs.Remove(name)
}

// Discard removes stored files, ignoring errors.
func (w *Writer) Discard(stored []Stored) {
	for _, s := range stored {
		if s.Filename != "" {
			_ = w.blobs.Remove(s.Filename)
		}
	}
}

// Filename builds a collision-resistant blob name by prefixing the sanitized
// original base name with the creation timestamp in nanoseconds. The stem is
// capped at maxStem bytes and the extension is kept lowercased.
func Filename(now time.Time, original string) string {
	return fmt.Sprintf("%d-%s", now.UnixNano(), sanitize(original))
}

const (
	maxStem = 100
	maxExt  = 10
)

func sanitize(original string) string {
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	ext := filepath.Ext(base)
	stem := strings.TrimLeft(clean(strings.TrimSuffix(base, ext)), ".")
	if len(stem) > maxStem {
		stem = stem[:maxStem]
	}
	if stem == "" {
		stem = "image"
	}
	ext = clean(strings.ToLower(strings.TrimPrefix(ext, ".")))
	ext = strings.ReplaceAll(ext, ".", "")
	if len(ext) > maxExt {
		ext = ext[:maxExt]
	}
	if ext == "" {
		return stem
	}
	return stem + "." + ext
}

// clean keeps ASCII letters and digits, dots, dashes and underscores, and
// turns whitespace into dashes.
func clean(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('-')
		}
	}
	return b.String()
}

func humanSize(n int64) string {
	const mb = 1 << 20
	if n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	return fmt.Sprintf("%d bytes", n)
}
