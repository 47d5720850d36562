package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/recon-cli/internal/loader"
	"github.com/sells-group/recon-cli/internal/model"
)

// Multipart field names for the two uploads.
const (
	goldField   = "gold_file"
	growthField = "growth_file"
)

// uploads is the pair of files received with one request, spooled to a
// private temp dir until loaded.
type uploads struct {
	dir    string
	gold   string
	growth string
}

// receive parses the multipart body and writes both files to disk. The
// caller must call cleanup.
func (s *Server) receive(w http.ResponseWriter, r *http.Request) (*uploads, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, tooBig
		}
		return nil, badRequest("expected multipart form with gold_file and growth_file")
	}

	dir, err := os.MkdirTemp("", "recon-upload-*")
	if err != nil {
		return nil, eris.Wrap(err, "server: create upload dir")
	}
	u := &uploads{dir: dir}
	if u.gold, err = spool(r, goldField, dir, "gold"); err != nil {
		u.cleanup()
		return nil, err
	}
	if u.growth, err = spool(r, growthField, dir, "growth"); err != nil {
		u.cleanup()
		return nil, err
	}
	return u, nil
}

// spool copies one form file into dir/sub, keeping the client's base name so
// the loader can dispatch on its extension.
func spool(r *http.Request, field, dir, sub string) (string, error) {
	f, hdr, err := r.FormFile(field)
	if err != nil {
		return "", badRequest(field + " is required")
	}
	defer f.Close()

	name := filepath.Base(hdr.Filename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "", badRequest(field + " has no file name")
	}
	if err := os.Mkdir(filepath.Join(dir, sub), 0o700); err != nil {
		return "", eris.Wrap(err, "server: create upload subdir")
	}
	path := filepath.Join(dir, sub, name)

	out, err := os.Create(path)
	if err != nil {
		return "", eris.Wrapf(err, "server: create %s", name)
	}
	if _, err := io.Copy(out, f); err != nil {
		out.Close() //nolint:errcheck
		return "", eris.Wrapf(err, "server: write %s", name)
	}
	return path, eris.Wrapf(out.Close(), "server: close %s", name)
}

// load parses both uploads concurrently.
func (u *uploads) load(ctx context.Context, opts loader.Options) (model.Table, model.Table, error) {
	var gold, growth model.Table
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		gold, err = loader.Load(gctx, u.gold, opts)
		return err
	})
	g.Go(func() error {
		var err error
		growth, err = loader.Load(gctx, u.growth, opts)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.Table{}, model.Table{}, err
	}
	return gold, growth, nil
}

func (u *uploads) cleanup() {
	if err := os.RemoveAll(u.dir); err != nil {
		zap.L().Warn("server: remove upload dir", zap.String("dir", u.dir), zap.Error(err))
	}
}
