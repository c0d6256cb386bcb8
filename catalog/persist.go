package catalog

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/catamtz3/cse444-simpledb/heap"
	"github.com/catamtz3/cse444-simpledb/types"
)

var tablesBucket = []byte("tables")

// tableMeta is the persisted form of one catalog entry.
type tableMeta struct {
	Path       string       `json:"path"`
	PrimaryKey string       `json:"primary_key,omitempty"`
	Types      []types.Type `json:"types"`
	Names      []string     `json:"names"`
}

// Save writes every registration to a bbolt file so a restart can rebuild
// the catalog. Table ids are not stored; they are re-derived from the file
// paths.
func (c *Catalog) Save(path string) error {
	db, err := bbolt.Open(path, 0644, nil)
	if err != nil {
		return fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer db.Close()

	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return db.Update(func(tx *bbolt.Tx) error {
		err := tx.DeleteBucket(tablesBucket)
		if err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		bkt, err := tx.CreateBucket(tablesBucket)
		if err != nil {
			return err
		}

		for _, tbl := range c.tables {
			desc := tbl.File.TupleDesc()
			meta := tableMeta{
				Path:       tbl.File.Path(),
				PrimaryKey: tbl.PrimaryKey,
			}
			for i := 0; i < desc.NumFields(); i++ {
				ft, _ := desc.FieldType(i)
				fn, _ := desc.FieldName(i)
				meta.Types = append(meta.Types, ft)
				meta.Names = append(meta.Names, fn)
			}

			val, err := json.Marshal(meta)
			if err != nil {
				return err
			}
			err = bkt.Put([]byte(tbl.Name), val)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Load rebuilds a catalog from a bbolt file written by Save, reopening each
// heap file with the given page size.
func Load(path string, pageSize int) (*Catalog, error) {
	db, err := bbolt.Open(path, 0644, &bbolt.Options{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer db.Close()

	c := NewCatalog()
	err = db.View(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(tablesBucket)
		if bkt == nil {
			return nil
		}
		return bkt.ForEach(func(name, val []byte) error {
			var meta tableMeta
			err := json.Unmarshal(val, &meta)
			if err != nil {
				return fmt.Errorf("catalog: table %s: %w", name, err)
			}
			desc, err := types.NewTupleDesc(meta.Types, meta.Names)
			if err != nil {
				return fmt.Errorf("catalog: table %s: %w", name, err)
			}
			hf, err := heap.OpenFile(meta.Path, desc, pageSize)
			if err != nil {
				return fmt.Errorf("catalog: table %s: %w", name, err)
			}
			c.AddTable(hf, string(name), meta.PrimaryKey)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
