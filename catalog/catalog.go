package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/catamtz3/cse444-simpledb/heap"
	"github.com/catamtz3/cse444-simpledb/types"
)

// Table is one catalog entry: a heap file plus the name and primary key the
// embedding layer registered it under.
type Table struct {
	File       *heap.File
	Name       string
	PrimaryKey string
}

// Catalog is the process wide registry mapping table ids to heap files and
// schemas. Entries live for the process lifetime.
type Catalog struct {
	mutex  sync.RWMutex
	tables map[int32]*Table
	names  map[string]int32
}

func NewCatalog() *Catalog {
	return &Catalog{
		tables: map[int32]*Table{},
		names:  map[string]int32{},
	}
}

// AddTable registers a heap file under a name. Re-registering a name
// replaces the previous entry.
func (c *Catalog) AddTable(hf *heap.File, name, primaryKey string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if oldID, ok := c.names[name]; ok {
		delete(c.tables, oldID)
	}
	c.tables[hf.ID()] = &Table{File: hf, Name: name, PrimaryKey: primaryKey}
	c.names[name] = hf.ID()
}

func (c *Catalog) table(tableID int32) (*Table, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	tbl, ok := c.tables[tableID]
	if !ok {
		return nil, fmt.Errorf("%w: table %d", types.ErrNotFound, tableID)
	}
	return tbl, nil
}

func (c *Catalog) File(tableID int32) (*heap.File, error) {
	tbl, err := c.table(tableID)
	if err != nil {
		return nil, err
	}
	return tbl.File, nil
}

func (c *Catalog) TupleDesc(tableID int32) (*types.TupleDesc, error) {
	tbl, err := c.table(tableID)
	if err != nil {
		return nil, err
	}
	return tbl.File.TupleDesc(), nil
}

func (c *Catalog) PrimaryKey(tableID int32) (string, error) {
	tbl, err := c.table(tableID)
	if err != nil {
		return "", err
	}
	return tbl.PrimaryKey, nil
}

func (c *Catalog) TableID(name string) (int32, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	id, ok := c.names[name]
	if !ok {
		return 0, fmt.Errorf("%w: table %q", types.ErrNotFound, name)
	}
	return id, nil
}

func (c *Catalog) TableNames() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	names := make([]string, 0, len(c.names))
	for name := range c.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
