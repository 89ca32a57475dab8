package manager

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/modelyard/modelyard/pkg/errors"
	"github.com/modelyard/modelyard/pkg/util"
	"github.com/modelyard/modelyard/pkg/util/console"
)

// Download fetches a model to its on-disk location. Without force it is an
// idempotent no-op when the model already verifies. Concurrent downloads of
// the same name are collapsed into one transfer.
func (m *Manager) Download(ctx context.Context, name string, force bool, p *mpb.Progress) error {
	_, err, _ := m.downloads.Do(name, func() (interface{}, error) {
		return nil, m.download(ctx, name, force, p)
	})
	return err
}

func (m *Manager) download(ctx context.Context, name string, force bool, p *mpb.Progress) error {
	model, err := m.registry.Get(name)
	if err != nil {
		return err
	}

	if !force {
		ok, err := m.Verify(name)
		if err != nil {
			return err
		}
		if ok {
			console.Infof("Model %s already exists and is valid", name)
			return nil
		}
	}

	path := m.path(name)
	tmp := path + ".tmp"

	console.Infof("Downloading %s...", name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, model.URL, nil)
	if err != nil {
		return errors.TransportFailure(name, err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return errors.TransportFailure(name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.TransportFailure(name, fmt.Errorf("unexpected status %s", resp.Status))
	}

	total := resp.ContentLength
	if total <= 0 {
		total = model.Size
	}

	var reader io.Reader = resp.Body
	var bar *mpb.Bar
	if p != nil {
		bar = p.New(total,
			mpb.BarStyle().Rbound("|"),
			mpb.PrependDecorators(
				decor.Name(name+" "),
				decor.Counters(decor.SizeB1024(0), "% .2f / % .2f"),
			),
			mpb.AppendDecorators(
				decor.EwmaETA(decor.ET_STYLE_GO, 30),
				decor.Name(" ] "),
				decor.EwmaSpeed(decor.SizeB1024(0), "% .2f", 30),
			),
		)
		proxy := bar.ProxyReader(resp.Body)
		defer proxy.Close()
		reader = proxy
	}

	if err := os.MkdirAll(filepath.Dir(tmp), 0o755); err != nil {
		return err
	}
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}

	written, err := io.Copy(file, reader)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		if bar != nil {
			bar.Abort(false)
		}
		return errors.TransportFailure(name, err)
	}
	if total > 0 && written != total {
		console.Warnf("Downloaded %d bytes for %s, expected %d", written, name, total)
	}
	console.Debugf("Downloaded %d bytes to %s", written, tmp)

	computed, err := util.SHA256HashFile(tmp)
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	switch {
	case model.SHA256 != nil && computed == *model.SHA256:
		// matches the recorded hash, nothing to update
	case model.SHA256 != nil && !force:
		_ = os.Remove(tmp)
		return errors.IntegrityMismatch(name, *model.SHA256, computed)
	default:
		// First download, or an explicit force overwriting a stale recorded
		// hash after upstream rotation.
		if model.SHA256 != nil {
			console.Warnf("Content for %s changed upstream, recording new hash", name)
		}
		if err := m.registry.SetHash(name, computed); err != nil {
			_ = os.Remove(tmp)
			return err
		}
		console.Debugf("Recorded hash for %s: %s", name, computed)
	}

	// rename is the only step that makes the download visible: readers never
	// observe a partially written artifact
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	console.Infof("Successfully downloaded %s", name)
	return nil
}
