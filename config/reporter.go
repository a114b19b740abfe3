package config

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/multierr"

	"hexbook/misc"
)

type ReporterConfig struct {
	Destination string `yaml:"destination" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
}

// Prepare creates initialized empty reporter.
func (conf *ReporterConfig) Prepare() (*Report, error) {

	r := &Report{entries: make(map[string]entry)}

	if f, err := os.Create(conf.Destination); err == nil {
		r.file = f
	} else if f, err = os.CreateTemp("", misc.GetAppName()+"-report.*.zip"); err == nil {
		r.file = f
	} else {
		return nil, fmt.Errorf("unable to create report: %w", err)
	}
	return r, nil
}

// entry is either a snapshot of data taken when stored or a reference to
// a file which is read when report is closed (logs).
type entry struct {
	origin string
	live   bool
	stamp  time.Time
	data   []byte
}

// Report accumulates build inputs and outputs necessary to prepare full debug report.
// NOTE: presently not to be used concurrently!
type Report struct {
	entries map[string]entry
	file    *os.File
}

// Close writes debug report archive.
func (r *Report) Close() error {
	if r == nil || r.file == nil {
		// no report has been requested
		return nil
	}
	err := r.finalize()
	if e := r.file.Close(); e != nil {
		err = multierr.Append(err, e)
	}
	r.file = nil
	return err
}

// Name returns name of underlying file.
func (r *Report) Name() string {
	if r == nil || r.file == nil {
		return ""
	}
	if n, err := filepath.Abs(r.file.Name()); err == nil {
		return n
	}
	return r.file.Name()
}

// Store references file which content will be read when report is closed.
// Used for logs which are still being written.
func (r *Report) Store(name, fname string) {
	if r == nil {
		return
	}
	if abs, err := filepath.Abs(fname); err == nil {
		fname = abs
	}
	if old, exists := r.entries[name]; exists && old.origin != fname {
		panic(fmt.Sprintf("report entry [%s] already refers to %s, not %s", name, old.origin, fname))
	}
	r.entries[name] = entry{origin: fname, live: true}
}

// StoreData puts data into report under requested name.
func (r *Report) StoreData(name string, data []byte) {
	if r == nil {
		return
	}
	if _, exists := r.entries[name]; exists {
		panic(fmt.Sprintf("report entry [%s] already exists", name))
	}
	r.entries[name] = entry{data: data, stamp: time.Now()}
}

// StoreCopy takes snapshot of file or directory content at the time of the
// call. When name is already taken it is versioned with timestamp, so the
// same location could be stored several times during a build.
func (r *Report) StoreCopy(name, fname string) error {
	if r == nil {
		return nil
	}

	root, err := filepath.Abs(fname)
	if err != nil {
		return err
	}
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if r.taken(name) {
		name = fmt.Sprintf("%s-%d", name, time.Now().UnixNano())
	}

	if !info.IsDir() {
		return r.snapshot(name, root, info)
	}
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			// links, sockets, etc. are skipped
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		return r.snapshot(path.Join(name, filepath.ToSlash(rel)), p, fi)
	})
}

func (r *Report) snapshot(name, fname string, info fs.FileInfo) error {
	if !info.Mode().IsRegular() {
		return nil
	}
	data, err := os.ReadFile(fname)
	if err != nil {
		return err
	}
	r.entries[name] = entry{origin: fname, stamp: info.ModTime(), data: data}
	return nil
}

// taken reports if name is used either as entry or as directory prefix.
func (r *Report) taken(name string) bool {
	if _, exists := r.entries[name]; exists {
		return true
	}
	for n := range r.entries {
		if strings.HasPrefix(n, name+"/") {
			return true
		}
	}
	return false
}

// finalize writes MANIFEST followed by all stored entries in name order.
func (r *Report) finalize() error {
	arc := zip.NewWriter(r.file)

	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	slices.Sort(names)

	now := time.Now()
	manifest := new(bytes.Buffer)
	for _, n := range names {
		e := r.entries[n]
		stamp := e.stamp
		if stamp.IsZero() {
			stamp = now
		}
		fmt.Fprintf(manifest, "%s\t%s\t%s\n", stamp.UTC().Format(time.UnixDate), n, e.origin)
	}

	err := saveFile(arc, "MANIFEST", now, manifest)
	for _, n := range names {
		if err != nil {
			break
		}
		e := r.entries[n]
		if !e.live {
			err = saveFile(arc, n, e.stamp, bytes.NewReader(e.data))
			continue
		}
		err = saveLive(arc, n, e.origin)
	}
	return multierr.Append(err, arc.Close())
}

// saveLive copies current content of the file, absent files are ignored.
func saveLive(arc *zip.Writer, name, fname string) error {
	f, err := os.Open(fname)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	return saveFile(arc, name, info.ModTime(), f)
}

func saveFile(dst *zip.Writer, name string, t time.Time, src io.Reader) error {
	w, err := dst.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: t})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}
