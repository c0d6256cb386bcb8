package heap

import (
	"errors"

	"github.com/catamtz3/cse444-simpledb/types"
)

var errNotOpen = errors.New("heap: iterator not open")

// FileIterator walks a heap file sequentially, concatenating page iterators
// in page number order. Rewind reopens at page zero.
type FileIterator struct {
	hf     *File
	pool   Pool
	tid    types.TransactionID
	opened bool
	pageNo int
	cur    func() (*types.Tuple, bool)
	next   *types.Tuple
}

func (it *FileIterator) Open() error {
	it.opened = true
	it.pageNo = 0
	it.cur = nil
	it.next = nil
	return nil
}

func (it *FileIterator) fetch() error {
	for it.next == nil {
		if it.cur == nil {
			numPages, err := it.hf.NumPages()
			if err != nil {
				return err
			}
			if it.pageNo >= numPages {
				return nil
			}
			pid := types.PageID{TableID: it.hf.id, PageNo: int32(it.pageNo)}
			p, err := it.pool.GetPage(it.tid, pid, types.ReadOnly)
			if err != nil {
				return err
			}
			it.cur = p.Iterator()
		}

		t, ok := it.cur()
		if ok {
			it.next = t
		} else {
			it.cur = nil
			it.pageNo++
		}
	}
	return nil
}

func (it *FileIterator) HasNext() (bool, error) {
	if !it.opened {
		return false, errNotOpen
	}
	err := it.fetch()
	if err != nil {
		return false, err
	}
	return it.next != nil, nil
}

func (it *FileIterator) Next() (*types.Tuple, error) {
	ok, err := it.HasNext()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.ErrNotFound
	}
	t := it.next
	it.next = nil
	return t, nil
}

func (it *FileIterator) Rewind() error {
	if !it.opened {
		return errNotOpen
	}
	return it.Open()
}

func (it *FileIterator) Close() error {
	it.opened = false
	it.cur = nil
	it.next = nil
	return nil
}
