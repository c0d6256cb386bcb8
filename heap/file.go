package heap

import (
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/catamtz3/cse444-simpledb/types"
)

// Pool is how the file reaches pages: every tuple level operation goes
// through it so locking and caching apply. The buffer pool implements this.
type Pool interface {
	GetPage(tid types.TransactionID, pid types.PageID,
		perm types.Permissions) (*Page, error)
}

// File is a heap file: a sequence of pages backed by one regular file. Page
// i occupies bytes [i*pageSize, (i+1)*pageSize).
type File struct {
	path     string
	id       int32
	desc     *types.TupleDesc
	pageSize int
	f        *os.File

	// mutex serializes file extension; reads and writes of existing pages
	// are protected by page level locks instead.
	mutex sync.Mutex
}

// TableID derives the table id from the canonical absolute path of the
// backing file, so restarts reproduce the same id.
func TableID(path string) (int32, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}
	h := fnv.New32a()
	h.Write([]byte(abs))
	return int32(h.Sum32()), nil
}

// OpenFile opens (or creates) a heap file of the given schema.
func OpenFile(path string, desc *types.TupleDesc, pageSize int) (*File, error) {
	id, err := TableID(path)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	return &File{
		path:     path,
		id:       id,
		desc:     desc,
		pageSize: pageSize,
		f:        f,
	}, nil
}

func (hf *File) ID() int32 {
	return hf.id
}

func (hf *File) Path() string {
	return hf.path
}

func (hf *File) TupleDesc() *types.TupleDesc {
	return hf.desc
}

func (hf *File) PageSize() int {
	return hf.pageSize
}

func (hf *File) Close() error {
	return hf.f.Close()
}

// NumPages is derived from the file length.
func (hf *File) NumPages() (int, error) {
	fi, err := hf.f.Stat()
	if err != nil {
		return 0, err
	}
	return int(fi.Size()) / hf.pageSize, nil
}

// ReadPage reads the page directly from disk, zero filling on a short read
// at the end of the file. It does not go through the buffer pool.
func (hf *File) ReadPage(pid types.PageID) (*Page, error) {
	if pid.TableID != hf.id {
		return nil, fmt.Errorf("%w: page %s is not in table %d", types.ErrNotFound,
			pid, hf.id)
	}

	data := make([]byte, hf.pageSize)
	_, err := hf.f.ReadAt(data, int64(pid.PageNo)*int64(hf.pageSize))
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("heap: read page %s: %w", pid, err)
	}
	return NewPage(pid, hf.desc, hf.pageSize, data)
}

// WritePage writes the page at its offset, extending the file if needed.
func (hf *File) WritePage(p *Page) error {
	data, err := p.Serialize()
	if err != nil {
		return err
	}
	_, err = hf.f.WriteAt(data, int64(p.ID().PageNo)*int64(hf.pageSize))
	if err != nil {
		return fmt.Errorf("heap: write page %s: %w", p.ID(), err)
	}
	return nil
}

// InsertTuple adds t to the first page with a free slot, fetching pages
// READ_WRITE through the pool. If no page has space, a fresh page is
// appended to the file. Returns the dirtied pages; the caller marks them
// dirty and caches them.
func (hf *File) InsertTuple(pool Pool, tid types.TransactionID,
	t *types.Tuple) ([]*Page, error) {

	numPages, err := hf.NumPages()
	if err != nil {
		return nil, err
	}
	for i := 0; i < numPages; i++ {
		pid := types.PageID{TableID: hf.id, PageNo: int32(i)}
		p, err := pool.GetPage(tid, pid, types.ReadWrite)
		if err != nil {
			return nil, err
		}
		if p.NumEmptySlots() == 0 {
			continue
		}
		err = p.InsertTuple(t)
		if err != nil {
			return nil, err
		}
		return []*Page{p}, nil
	}

	// No page has space: append a fresh page. Extension is the only disk
	// operation that needs exclusive coordination.
	hf.mutex.Lock()
	defer hf.mutex.Unlock()

	numPages, err = hf.NumPages()
	if err != nil {
		return nil, err
	}
	pid := types.PageID{TableID: hf.id, PageNo: int32(numPages)}
	p := NewEmptyPage(pid, hf.desc, hf.pageSize)
	err = p.InsertTuple(t)
	if err != nil {
		return nil, err
	}
	err = hf.WritePage(p)
	if err != nil {
		return nil, err
	}
	return []*Page{p}, nil
}

// DeleteTuple removes t from the page named by its record id, fetched
// READ_WRITE through the pool. Returns the dirtied page.
func (hf *File) DeleteTuple(pool Pool, tid types.TransactionID,
	t *types.Tuple) (*Page, error) {

	rid := t.RecordID()
	if rid == nil {
		return nil, fmt.Errorf("%w: tuple has no record id", types.ErrNotFound)
	}
	p, err := pool.GetPage(tid, rid.PageID, types.ReadWrite)
	if err != nil {
		return nil, err
	}
	err = p.DeleteTuple(t)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Iterator returns a rewindable iterator over every tuple in the file, page
// by page, each page fetched READ_ONLY through the pool.
func (hf *File) Iterator(pool Pool, tid types.TransactionID) *FileIterator {
	return &FileIterator{
		hf:   hf,
		pool: pool,
		tid:  tid,
	}
}
