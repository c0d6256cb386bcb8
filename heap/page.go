package heap

import (
	"bytes"
	"fmt"

	"github.com/catamtz3/cse444-simpledb/types"
)

// Page is a fixed size slotted heap page. The on disk layout is a header
// bitmap of ceil(numSlots/8) bytes (bit 7 of byte 0 is slot 0) followed by
// numSlots fixed width tuple bodies; unused trailing bytes are zero.
//
// numSlots = floor(pageSize*8 / (tupleSize*8 + 1)), so each slot pays for
// its body plus one header bit.
type Page struct {
	pid      types.PageID
	desc     *types.TupleDesc
	pageSize int
	numSlots int
	header   []byte
	tuples   []*types.Tuple
	before   []byte
	dirty    bool
	dirtier  types.TransactionID
}

// NumSlots returns the slot count for one page of the given schema and page
// size.
func NumSlots(desc *types.TupleDesc, pageSize int) int {
	return (pageSize * 8) / (desc.Size()*8 + 1)
}

func headerSize(numSlots int) int {
	return (numSlots + 7) / 8
}

// NewPage parses a page from its on disk bytes. All zero bytes produce an
// empty page. data is retained as the page's before image.
func NewPage(pid types.PageID, desc *types.TupleDesc, pageSize int, data []byte) (*Page, error) {
	if len(data) != pageSize {
		return nil, fmt.Errorf("heap: page %s: got %d bytes; want %d", pid, len(data),
			pageSize)
	}

	numSlots := NumSlots(desc, pageSize)
	p := &Page{
		pid:      pid,
		desc:     desc,
		pageSize: pageSize,
		numSlots: numSlots,
		header:   make([]byte, headerSize(numSlots)),
		tuples:   make([]*types.Tuple, numSlots),
		before:   append([]byte(nil), data...),
	}
	copy(p.header, data)

	tupleSize := desc.Size()
	body := data[headerSize(numSlots):]
	for slot := 0; slot < numSlots; slot++ {
		if !p.slotUsed(slot) {
			continue
		}
		r := bytes.NewReader(body[slot*tupleSize : (slot+1)*tupleSize])
		t, err := types.DecodeTuple(desc, r)
		if err != nil {
			return nil, fmt.Errorf("heap: page %s slot %d: %w", pid, slot, err)
		}
		t.SetRecordID(&types.RecordID{PageID: pid, Slot: slot})
		p.tuples[slot] = t
	}
	return p, nil
}

// NewEmptyPage returns a page with every slot free, as if parsed from all
// zero bytes.
func NewEmptyPage(pid types.PageID, desc *types.TupleDesc, pageSize int) *Page {
	p, err := NewPage(pid, desc, pageSize, make([]byte, pageSize))
	if err != nil {
		panic(fmt.Sprintf("heap: empty page: %s", err))
	}
	return p
}

func (p *Page) ID() types.PageID {
	return p.pid
}

func (p *Page) TupleDesc() *types.TupleDesc {
	return p.desc
}

func (p *Page) NumSlots() int {
	return p.numSlots
}

func (p *Page) slotUsed(slot int) bool {
	return p.header[slot/8]&(0x80>>(slot%8)) != 0
}

func (p *Page) setSlot(slot int, used bool) {
	if used {
		p.header[slot/8] |= 0x80 >> (slot % 8)
	} else {
		p.header[slot/8] &^= 0x80 >> (slot % 8)
	}
}

func (p *Page) NumEmptySlots() int {
	var n int
	for slot := 0; slot < p.numSlots; slot++ {
		if !p.slotUsed(slot) {
			n++
		}
	}
	return n
}

// Tuple returns the tuple in the given slot, or nil if the slot is free.
func (p *Page) Tuple(slot int) (*types.Tuple, error) {
	if slot < 0 || slot >= p.numSlots {
		return nil, fmt.Errorf("%w: slot %d of %d", types.ErrNotFound, slot, p.numSlots)
	}
	return p.tuples[slot], nil
}

// InsertTuple places t in the lowest free slot and sets its record id.
func (p *Page) InsertTuple(t *types.Tuple) error {
	if !t.TupleDesc().Equals(p.desc) {
		return fmt.Errorf("heap: page %s: schema mismatch: got %s; want %s", p.pid,
			t.TupleDesc(), p.desc)
	}
	for slot := 0; slot < p.numSlots; slot++ {
		if p.slotUsed(slot) {
			continue
		}
		p.setSlot(slot, true)
		t.SetRecordID(&types.RecordID{PageID: p.pid, Slot: slot})
		p.tuples[slot] = t
		return nil
	}
	return fmt.Errorf("%w: page %s", types.ErrNotEnoughSpace, p.pid)
}

// DeleteTuple frees the slot named by t's record id. The record id must
// reference this page and an occupied slot whose contents match t.
func (p *Page) DeleteTuple(t *types.Tuple) error {
	rid := t.RecordID()
	if rid == nil || rid.PageID != p.pid {
		return fmt.Errorf("%w: tuple not on page %s", types.ErrNotFound, p.pid)
	}
	if rid.Slot < 0 || rid.Slot >= p.numSlots || !p.slotUsed(rid.Slot) ||
		!p.tuples[rid.Slot].EqualFields(t) {
		return fmt.Errorf("%w: tuple not on page %s slot %d", types.ErrNotFound, p.pid,
			rid.Slot)
	}
	p.setSlot(rid.Slot, false)
	p.tuples[rid.Slot] = nil
	t.SetRecordID(nil)
	return nil
}

// MarkDirty sets or clears the dirty flag, recording the dirtying
// transaction.
func (p *Page) MarkDirty(dirty bool, tid types.TransactionID) {
	p.dirty = dirty
	if dirty {
		p.dirtier = tid
	} else {
		p.dirtier = 0
	}
}

// Dirtier returns the transaction that dirtied the page, if it is dirty.
func (p *Page) Dirtier() (types.TransactionID, bool) {
	return p.dirtier, p.dirty
}

// Serialize returns exactly pageSize bytes in the on disk layout.
func (p *Page) Serialize() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, p.pageSize))
	buf.Write(p.header)

	tupleSize := p.desc.Size()
	for slot := 0; slot < p.numSlots; slot++ {
		if p.tuples[slot] == nil {
			buf.Write(make([]byte, tupleSize))
			continue
		}
		err := p.tuples[slot].Encode(buf)
		if err != nil {
			return nil, fmt.Errorf("heap: page %s slot %d: %w", p.pid, slot, err)
		}
	}

	if buf.Len() > p.pageSize {
		return nil, fmt.Errorf("heap: page %s: serialized to %d bytes; want %d", p.pid,
			buf.Len(), p.pageSize)
	}
	buf.Write(make([]byte, p.pageSize-buf.Len()))
	return buf.Bytes(), nil
}

// BeforeImage returns a page parsed from the bytes retained at load time (or
// at the last SetBeforeImage).
func (p *Page) BeforeImage() (*Page, error) {
	return NewPage(p.pid, p.desc, p.pageSize, append([]byte(nil), p.before...))
}

// BeforeImageData returns a copy of the retained before image bytes.
func (p *Page) BeforeImageData() []byte {
	return append([]byte(nil), p.before...)
}

// SetBeforeImage snapshots the current bytes as the new before image. Called
// at commit so a later transaction's undo stops here.
func (p *Page) SetBeforeImage() error {
	data, err := p.Serialize()
	if err != nil {
		return err
	}
	p.before = data
	return nil
}

// Iterator returns the occupied tuples in ascending slot order. The iterator
// is not restartable across page mutation.
func (p *Page) Iterator() func() (*types.Tuple, bool) {
	var slot int
	return func() (*types.Tuple, bool) {
		for slot < p.numSlots {
			t := p.tuples[slot]
			slot++
			if t != nil {
				return t, true
			}
		}
		return nil, false
	}
}
