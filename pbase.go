package pbase

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/pbase/pbase/internal/integrity"
	"github.com/pbase/pbase/internal/logging"
	"github.com/pbase/pbase/internal/metrics"
)

// PBase is the façade over one directory of tables: schema management,
// row insertion (with index maintenance), and select-query execution.
// It holds no long-lived mappings of its own — every operation opens,
// uses, and releases exactly the files it touches.
type PBase struct {
	dir    string
	opener *Opener
	log    logging.Logger
	m      *metrics.Metrics
	guard  *WriterGuard

	useWriterGuard bool
}

// Open returns a PBase rooted at dir, which must already exist. By
// default the first Insert/InsertBatch/CreateTable call acquires an
// advisory single-writer lock on the directory (see WithoutWriterGuard).
func Open(dir string, opts ...Option) (*PBase, error) {
	opener, err := NewOpener(dir)
	if err != nil {
		return nil, err
	}
	p := &PBase{
		dir:            dir,
		opener:         opener,
		log:            logging.Noop(),
		useWriterGuard: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Close releases the writer lock, if this handle holds one.
func (p *PBase) Close() error {
	if p.guard != nil {
		err := p.guard.Release()
		p.guard = nil
		return err
	}
	return nil
}

// Metrics returns this handle's metrics bundle, or nil if none was
// configured via WithMetrics.
func (p *PBase) Metrics() *metrics.Metrics { return p.m }

// IsTableExist reports whether table has a schema file in this directory.
func (p *PBase) IsTableExist(table string) bool {
	return p.opener.TableExists(table)
}

func (p *PBase) acquireWriterLockOnce() error {
	if !p.useWriterGuard || p.guard != nil {
		return nil
	}
	guard, err := p.opener.AcquireWriterLock()
	if err != nil {
		return err
	}
	p.guard = guard
	return nil
}

// CreateTable declares a new table's schema, persisting it to a .pbs file.
// It returns ErrTableAlreadyExists if the table is already declared.
func (p *PBase) CreateTable(q CreateTableQuery) error {
	if err := p.acquireWriterLockOnce(); err != nil {
		return err
	}
	ts, err := NewTableSchema(q.Name, q.Fields, q.Indices)
	if err != nil {
		return err
	}
	if err := p.opener.WriteSchema(ts); err != nil {
		return err
	}
	p.log.Infof("created table %s with %d fields and %d indices", logging.Safe(q.Name), len(q.Fields), len(q.Indices))
	return nil
}

// Insert appends one row to a table, maintaining every declared index via
// the atomic rewrite-and-rename splice.
func (p *PBase) Insert(q InsertQuery) error {
	if err := p.acquireWriterLockOnce(); err != nil {
		return err
	}
	start := time.Now()
	defer func() {
		if p.m != nil {
			p.m.ObserveLatency(q.Table, time.Since(start))
		}
	}()

	ts, err := p.opener.ReadSchema(q.Table)
	if err != nil {
		return err
	}

	// A field omitted from q.Values is not an error: EncodeRow/EncodeIndexRow
	// leave its byte slot untouched, the same documented NULL-vs-zero
	// ambiguity as an explicit Null() value.
	row, err := ts.EncodeRow(q.Values)
	if err != nil {
		return err
	}
	pointer, err := p.opener.AppendRow(q.Table, row)
	if err != nil {
		return err
	}

	for _, idx := range ts.Indices {
		if err := p.insertIntoIndex(ts, idx, q.Values, pointer); err != nil {
			return errors.Wrapf(err, "pbase: maintaining index %q after insert into %q", idx.Name, q.Table)
		}
	}

	if p.m != nil {
		p.m.Inserts.Inc()
	}
	p.writeSidecar(q.Table, ts)
	return nil
}

// InsertBatch inserts every row in rows, one at a time through the same
// path as Insert (no bypass of index maintenance), pacing itself so a
// large batch does not monopolise the single append-and-splice path.
// Supplements the distilled spec with the original implementation's bulk
// load tool. Returns the number of rows successfully inserted before any
// error.
func (p *PBase) InsertBatch(table string, rows []map[string]Value) (int, error) {
	ticker := time.NewTicker(time.Microsecond)
	defer ticker.Stop()

	for i, values := range rows {
		if i > 0 {
			<-ticker.C
		}
		if err := p.Insert(InsertQuery{Table: table, Values: values}); err != nil {
			return i, err
		}
	}
	return len(rows), nil
}

func (p *PBase) insertIntoIndex(ts *TableSchema, idx IndexSchema, values map[string]Value, pointer uint64) error {
	indexBytes, err := p.opener.ReadIndexBytes(ts.Name, idx.Name)
	if err != nil {
		return err
	}
	key := make([]Value, len(idx.Fields))
	for i, fn := range idx.Fields {
		v, ok := values[fn]
		if !ok {
			v = Null()
		}
		key[i] = v
	}
	pos, err := findInsertPosition(ts, idx, indexBytes, key)
	if err != nil {
		return err
	}
	rowSize, err := ts.IndexRowByteSize(idx)
	if err != nil {
		return err
	}
	entry, err := ts.EncodeIndexRow(idx, values, pointer)
	if err != nil {
		return err
	}
	spliced := spliceInsert(indexBytes, pos, rowSize, entry)
	if err := p.opener.WriteIndexAtomic(ts.Name, idx.Name, spliced); err != nil {
		return err
	}
	if p.m != nil {
		p.m.IndexRewrites.Inc()
	}
	return nil
}

// writeSidecar refreshes table's optional integrity sidecar. Failure to
// write it is logged, not returned: the sidecar is a detection aid, not
// part of the durable write contract.
func (p *PBase) writeSidecar(table string, ts *TableSchema) {
	dataSum, err := integrity.HashFile(p.opener.dataPath(table))
	if err != nil {
		p.log.Errorf("computing data checksum for %s: %v", table, err)
		return
	}
	indices := make(map[string]uint64, len(ts.Indices))
	for _, idx := range ts.Indices {
		sum, err := integrity.HashFile(p.opener.indexPath(table, idx.Name))
		if err != nil {
			p.log.Errorf("computing index checksum for %s/%s: %v", table, idx.Name, err)
			return
		}
		indices[idx.Name] = sum
	}
	if err := integrity.WriteSidecar(p.opener.sidecarPath(table), integrity.Sidecar{DataChecksum: dataSum, Indices: indices}); err != nil {
		p.log.Errorf("writing integrity sidecar for %s: %v", table, err)
	}
}

// Verify recomputes table's data and index checksums and compares them
// against its sidecar, if one has been written.
func (p *PBase) Verify(table string) (integrity.Report, error) {
	sidecar, err := integrity.ReadSidecar(p.opener.sidecarPath(table))
	if err != nil {
		return integrity.Report{}, err
	}
	ts, err := p.opener.ReadSchema(table)
	if err != nil {
		return integrity.Report{}, err
	}
	dataSum, err := integrity.HashFile(p.opener.dataPath(table))
	if err != nil {
		return integrity.Report{}, err
	}
	report := integrity.Report{Table: table, DataOK: dataSum == sidecar.DataChecksum, IndexFiles: map[string]bool{}}
	for _, idx := range ts.Indices {
		sum, err := integrity.HashFile(p.opener.indexPath(table, idx.Name))
		if err != nil {
			return integrity.Report{}, err
		}
		report.IndexFiles[idx.Name] = sum == sidecar.Indices[idx.Name]
	}
	return report, nil
}

// Select runs q, recovering any panic raised while planning or evaluating
// the query (a cross-tag value comparison, marked ErrIncomparableValues)
// and re-surfacing it as a plain error — this is the one public boundary
// that can reach those panics from caller-supplied, unvalidated query
// input. Unknown fields and unresolved table references are not panics:
// they come back as ordinary errors marked ErrUnknownField or
// ErrUnknownTable.
func (p *PBase) Select(q SelectQuery) (result *Result, err error) {
	start := time.Now()
	defer func() {
		if p.m != nil {
			p.m.ObserveLatency(q.From, time.Since(start))
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			if asErr, ok := r.(error); ok {
				err = errors.Wrap(asErr, "pbase: query validity error")
				return
			}
			err = errors.Newf("pbase: query validity error: %v", r)
		}
	}()
	executor := newSelectQueryExecutor(p.opener, q, p.log, p.m)
	return executor.run()
}
