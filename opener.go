package pbase

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/edsrzf/mmap-go"
	"golang.org/x/sys/unix"

	"github.com/pbase/pbase/internal/schemaio"
)

// Opener resolves a table name to its on-disk files within one directory
// and provides scoped, explicitly-released access to their bytes: memory
// mappings for reads, and append/rewrite handles for writes. It holds no
// long-lived file descriptors of its own.
type Opener struct {
	dir string
}

// NewOpener returns an Opener rooted at dir. dir must already exist.
func NewOpener(dir string) (*Opener, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "pbase: opening directory %s", dir)
	}
	if !fi.IsDir() {
		return nil, errors.Newf("pbase: %s is not a directory", dir)
	}
	return &Opener{dir: dir}, nil
}

func (o *Opener) dataPath(table string) string {
	return filepath.Join(o.dir, table+".pbd")
}

func (o *Opener) schemaPath(table string) string {
	return filepath.Join(o.dir, table+".pbs")
}

func (o *Opener) indexPath(table, indexName string) string {
	return filepath.Join(o.dir, table+"__"+indexName+".pbi")
}

func (o *Opener) sidecarPath(table string) string {
	return filepath.Join(o.dir, table+".pbx")
}

func (o *Opener) lockPath() string {
	return filepath.Join(o.dir, ".pbase.lock")
}

// TableExists reports whether table has a schema file in this directory.
func (o *Opener) TableExists(table string) bool {
	_, err := os.Stat(o.schemaPath(table))
	return err == nil
}

// ReadSchema loads and parses table's .pbs file.
func (o *Opener) ReadSchema(table string) (*TableSchema, error) {
	f, err := os.Open(o.schemaPath(table))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, markTableNotExist(errors.Wrapf(err, "pbase: table %q", table))
		}
		return nil, errors.Wrapf(err, "pbase: reading schema for %q", table)
	}
	defer f.Close()

	desc, err := schemaio.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "pbase: decoding schema for %q", table)
	}
	return descriptorToSchema(desc)
}

// WriteSchema creates table's .pbs file, failing with
// ErrTableAlreadyExists if one is already present.
func (o *Opener) WriteSchema(ts *TableSchema) error {
	f, err := os.OpenFile(o.schemaPath(ts.Name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return errors.Mark(errors.Wrapf(err, "pbase: table %q", ts.Name), ErrTableAlreadyExists)
		}
		return errors.Wrapf(err, "pbase: creating schema file for %q", ts.Name)
	}
	defer f.Close()

	if err := schemaio.Encode(f, schemaFromSchema(ts)); err != nil {
		return errors.Wrapf(err, "pbase: writing schema for %q", ts.Name)
	}
	return nil
}

func descriptorToSchema(desc schemaio.TableDescriptor) (*TableSchema, error) {
	fields := make([]NamedField, 0, len(desc.Fields))
	for _, fd := range desc.Fields {
		ft, err := parseFieldType(fd.Type)
		if err != nil {
			return nil, err
		}
		fields = append(fields, NamedField{Name: fd.Name, FieldSchema: FieldSchema{Type: ft}})
	}
	indices := make([]IndexSchema, 0, len(desc.Indices))
	for _, id := range desc.Indices {
		indices = append(indices, IndexSchema{Name: id.Name, Fields: id.Fields})
	}
	return NewTableSchema(desc.Name, fields, indices)
}

func schemaFromSchema(ts *TableSchema) schemaio.TableDescriptor {
	fields := make([]schemaio.FieldDescriptor, 0, len(ts.Fields))
	for _, f := range ts.Fields {
		fields = append(fields, schemaio.FieldDescriptor{Name: f.Name, Type: f.Type.String()})
	}
	indices := make([]schemaio.IndexDescriptor, 0, len(ts.Indices))
	for _, idx := range ts.Indices {
		indices = append(indices, schemaio.IndexDescriptor{Name: idx.Name, Fields: idx.Fields})
	}
	return schemaio.TableDescriptor{Name: ts.Name, Fields: fields, Indices: indices}
}

func parseFieldType(s string) (FieldType, error) {
	switch s {
	case "i32":
		return FieldTypeI32, nil
	case "u8":
		return FieldTypeU8, nil
	default:
		return 0, errors.Newf("pbase: unknown field type %q in schema file", s)
	}
}

// MapTable returns a read-only memory mapping of table's data file. The
// caller must call Unmap when done and before any rewrite of the same
// file. If the data file does not yet exist, it returns an empty mapping.
func (o *Opener) MapTable(table string) (mmap.MMap, error) {
	return o.mapFile(o.dataPath(table))
}

// MapIndex returns a read-only memory mapping of one of table's index
// files. See MapTable for lifetime rules.
func (o *Opener) MapIndex(table, indexName string) (mmap.MMap, error) {
	return o.mapFile(o.indexPath(table, indexName))
}

func (o *Opener) mapFile(path string) (mmap.MMap, error) {
	f, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "pbase: opening %s", path)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "pbase: stat %s", path)
	}
	if fi.Size() == 0 {
		// mmap-go refuses to map a zero-length file; an empty table's data
		// and index files legitimately start out that way.
		return mmap.MMap{}, nil
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "pbase: mapping %s", path)
	}
	return m, nil
}

// AppendRow appends row to table's data file, returning the absolute byte
// offset it was written at — the row pointer recorded in every index entry
// referencing it.
func (o *Opener) AppendRow(table string, row []byte) (uint64, error) {
	f, err := os.OpenFile(o.dataPath(table), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, errors.Wrapf(err, "pbase: opening data file for %q", table)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return 0, errors.Wrapf(err, "pbase: stat data file for %q", table)
	}
	pointer := uint64(fi.Size())
	if _, err := f.Write(row); err != nil {
		return 0, errors.Wrapf(err, "pbase: appending row to %q", table)
	}
	return pointer, nil
}

// ReadIndexBytes reads an index file's complete current contents, or an
// empty slice if it does not exist yet (the first insert into a fresh
// index).
func (o *Opener) ReadIndexBytes(table, indexName string) ([]byte, error) {
	b, err := os.ReadFile(o.indexPath(table, indexName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "pbase: reading index %q for %q", indexName, table)
	}
	return b, nil
}

// WriteIndexAtomic replaces an index file's contents with data via a
// write-to-temp-file-then-rename swap, so a concurrent reader never
// observes a partially-written index file.
func (o *Opener) WriteIndexAtomic(table, indexName string, data []byte) error {
	path := o.indexPath(table, indexName)
	tmp, err := os.CreateTemp(o.dir, table+"__"+indexName+".pbi.tmp-*")
	if err != nil {
		return errors.Wrapf(err, "pbase: creating temp index file for %q/%q", table, indexName)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrapf(err, "pbase: writing temp index file for %q/%q", table, indexName)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrapf(err, "pbase: syncing temp index file for %q/%q", table, indexName)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "pbase: closing temp index file for %q/%q", table, indexName)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "pbase: renaming temp index file into place for %q/%q", table, indexName)
	}
	return nil
}

// WriterGuard represents a held advisory single-writer lock on a
// directory. Release must be called exactly once.
type WriterGuard struct {
	f *os.File
}

// AcquireWriterLock takes the directory's advisory single-writer lock,
// returning ErrConcurrentWriter if another PBase handle already holds it.
func (o *Opener) AcquireWriterLock() (*WriterGuard, error) {
	f, err := os.OpenFile(o.lockPath(), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "pbase: opening lock file %s", o.lockPath())
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, errors.Mark(errors.Newf("pbase: directory %s is locked by another writer", o.dir), ErrConcurrentWriter)
		}
		return nil, errors.Wrapf(err, "pbase: locking %s", o.lockPath())
	}
	return &WriterGuard{f: f}, nil
}

// Release drops the lock and closes the underlying file descriptor.
func (g *WriterGuard) Release() error {
	if g == nil || g.f == nil {
		return nil
	}
	_ = unix.Flock(int(g.f.Fd()), unix.LOCK_UN)
	return g.f.Close()
}
