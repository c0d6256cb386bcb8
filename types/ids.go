package types

import "fmt"

// PageID identifies a page as (table, page number). Table ids are derived
// from the canonical path of the backing file, so ids are stable across
// restarts.
type PageID struct {
	TableID int32
	PageNo  int32
}

func (pid PageID) String() string {
	return fmt.Sprintf("%d.%d", pid.TableID, pid.PageNo)
}

// RecordID identifies a stored tuple as (page, slot). It is a weak back
// pointer used for lookup, not ownership.
type RecordID struct {
	PageID PageID
	Slot   int
}

func (rid RecordID) String() string {
	return fmt.Sprintf("%s:%d", rid.PageID, rid.Slot)
}

type TransactionID int64

// Permissions requested on a page: ReadOnly maps to a shared lock and
// ReadWrite to an exclusive lock.
type Permissions int

const (
	ReadOnly Permissions = iota
	ReadWrite
)

func (p Permissions) String() string {
	if p == ReadOnly {
		return "READ_ONLY"
	}
	return "READ_WRITE"
}
