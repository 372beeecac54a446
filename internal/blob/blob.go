// Package blob stores raw uploaded files in a local directory, addressed by
// their generated filename.
package blob

import (
	"context"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
)

var (
	// ErrInvalidName is returned for names that would escape the directory.
	ErrInvalidName = errors.New("invalid blob name")
	// ErrNotFound is returned when removing a blob that does not exist.
	ErrNotFound = errors.New("blob not found")
)

// tempPattern names in-progress writes. Dot-prefixed names are never
// produced by the upload naming scheme.
const tempPattern = ".tmp-*"

// Dir is a flat directory of blobs.
type Dir struct {
	root string
}

// Open returns a Dir rooted at root, creating the directory if absent.
func Open(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "resolve upload dir")
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, errors.Wrap(err, "create upload dir")
	}
	return &Dir{root: abs}, nil
}

// Root returns the absolute directory path.
func (d *Dir) Root() string { return d.root }

// Path returns the on-disk path for name.
func (d *Dir) Path(name string) string {
	return filepath.Join(d.root, name)
}

// Save writes r to a new blob called name. The content goes to a temporary
// file first and is linked under name only once complete, so readers never
// see a partial blob. An existing blob with the same name is never
// overwritten.
func (d *Dir) Save(ctx context.Context, name string, r io.Reader) (int64, error) {
	if err := checkName(name); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	f, err := os.CreateTemp(d.root, tempPattern)
	if err != nil {
		return 0, errors.Wrapf(err, "create blob %q", name)
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, errors.Wrapf(err, "write blob %q", name)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		return 0, errors.Wrapf(err, "chmod blob %q", name)
	}
	// Link fails if name exists.
	if err := os.Link(tmp, d.Path(name)); err != nil {
		return 0, errors.Wrapf(err, "commit blob %q", name)
	}
	return n, nil
}

// Remove deletes the blob called name.
func (d *Dir) Remove(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := os.Remove(d.Path(name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errors.Wrapf(ErrNotFound, "remove blob %q", name)
		}
		return errors.Wrapf(err, "remove blob %q", name)
	}
	return nil
}

// Writable reports whether new blobs can be created. Used as a readiness
// check.
func (d *Dir) Writable(context.Context) error {
	f, err := os.CreateTemp(d.root, ".probe-*")
	if err != nil {
		return errors.Wrap(err, "upload dir not writable")
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// Handler serves blobs read-only. Directory listings and dot-files are not
// exposed.
func (d *Dir) Handler() http.Handler {
	files := http.FileServer(http.Dir(d.root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if p == "" || strings.HasSuffix(p, "/") || strings.HasPrefix(path.Base(p), ".") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return errors.Wrapf(ErrInvalidName, "%q", name)
	}
	return nil
}
