package wal

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/catamtz3/cse444-simpledb/types"
)

const (
	logVersion = 1

	updateRecordType = 1
)

var (
	logHeaderSignature = [8]byte{'s', 'd', 'b', 'l', 'o', 'g', 0, 0}
)

// LogFile is the append only write ahead log sink consumed by the buffer
// pool. Page writes to disk must be preceded by a LogWrite of the page's
// before and after images followed by Force.
type LogFile interface {
	LogWrite(tid types.TransactionID, pid types.PageID, before, after []byte) error
	Force() error
}

// Record is one decoded update record: the before and after images of a page
// dirtied by a transaction.
type Record struct {
	TID    types.TransactionID
	PageID types.PageID
	Before []byte
	After  []byte
}

type logFile interface {
	io.Writer
	io.Reader
	Truncate(size int64) error
	Stat() (os.FileInfo, error)
	Sync() error
}

// FileLog is a LogFile backed by a single regular file.
type FileLog struct {
	mutex sync.Mutex
	f     logFile
}

// OpenFileLog opens (or creates) a write ahead log at path. An empty or
// missing file gets a fresh header; an existing log is appended to.
func OpenFileLog(path string) (*FileLog, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	lf := &FileLog{f: f}
	err = lf.init()
	if err != nil {
		f.Close()
		return nil, err
	}
	// Leave the offset at the end so writes append.
	_, err = f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return nil, err
	}
	return lf, nil
}

func (lf *FileLog) init() error {
	fi, err := lf.f.Stat()
	if err != nil {
		return err
	}
	if fi.Size() < 16 {
		return lf.newLog()
	}

	var hdr [16]byte
	_, err = io.ReadFull(lf.f, hdr[:])
	if err != nil {
		return err
	}
	if !bytes.Equal(hdr[0:8], logHeaderSignature[:]) {
		return fmt.Errorf("wal: bad log signature: %v", hdr[0:8])
	}
	if hdr[8] > logVersion {
		return fmt.Errorf("wal: bad log version: %d", hdr[8])
	}
	return nil
}

func (lf *FileLog) newLog() error {
	err := lf.f.Truncate(0)
	if err != nil {
		return err
	}

	buf := make([]byte, 0, 16)
	buf = append(buf, logHeaderSignature[:]...)
	buf = append(buf, logVersion)
	buf = append(buf, 0, 0, 0, 0, 0, 0, 0)

	_, err = lf.f.Write(buf)
	return err
}

func encodeRecord(buf []byte, tid types.TransactionID, pid types.PageID,
	before, after []byte) []byte {

	buf = append(buf, updateRecordType)
	buf = binary.BigEndian.AppendUint64(buf, uint64(tid))
	buf = binary.BigEndian.AppendUint32(buf, uint32(pid.TableID))
	buf = binary.BigEndian.AppendUint32(buf, uint32(pid.PageNo))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(before)))
	buf = append(buf, before...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(after)))
	buf = append(buf, after...)
	return buf
}

// LogWrite appends an update record. The record is not durable until Force.
func (lf *FileLog) LogWrite(tid types.TransactionID, pid types.PageID,
	before, after []byte) error {

	lf.mutex.Lock()
	defer lf.mutex.Unlock()

	buf := make([]byte, 0, 25+len(before)+len(after))
	buf = encodeRecord(buf, tid, pid, before, after)
	_, err := lf.f.Write(buf)
	return err
}

// Force makes all appended records durable.
func (lf *FileLog) Force() error {
	lf.mutex.Lock()
	defer lf.mutex.Unlock()

	return lf.f.Sync()
}

func (lf *FileLog) Close() error {
	c, ok := lf.f.(io.Closer)
	if !ok {
		return nil
	}
	return c.Close()
}

// ReadLog decodes all update records in the log at path, in append order.
// Replay is the embedding's responsibility; this only decodes.
func ReadLog(path string) ([]Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(b) < 16 {
		return nil, fmt.Errorf("wal: log too short: %d bytes", len(b))
	}
	if !bytes.Equal(b[0:8], logHeaderSignature[:]) {
		return nil, fmt.Errorf("wal: bad log signature: %v", b[0:8])
	}
	if b[8] > logVersion {
		return nil, fmt.Errorf("wal: bad log version: %d", b[8])
	}
	buf := b[16:]

	var recs []Record
	for len(buf) > 0 {
		if buf[0] != updateRecordType {
			return nil, fmt.Errorf("wal: bad record type: %d", buf[0])
		}
		buf = buf[1:]
		if len(buf) < 16 {
			return nil, fmt.Errorf("wal: truncated record header")
		}
		rec := Record{
			TID: types.TransactionID(binary.BigEndian.Uint64(buf)),
			PageID: types.PageID{
				TableID: int32(binary.BigEndian.Uint32(buf[8:])),
				PageNo:  int32(binary.BigEndian.Uint32(buf[12:])),
			},
		}
		buf = buf[16:]

		rec.Before, buf, err = readImage(buf)
		if err != nil {
			return nil, err
		}
		rec.After, buf, err = readImage(buf)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func readImage(buf []byte) ([]byte, []byte, error) {
	if len(buf) < 4 {
		return nil, nil, fmt.Errorf("wal: truncated image length")
	}
	n := binary.BigEndian.Uint32(buf)
	buf = buf[4:]
	if uint32(len(buf)) < n {
		return nil, nil, fmt.Errorf("wal: bad image length, have %d, want %d", len(buf), n)
	}
	img := make([]byte, n)
	copy(img, buf)
	return img, buf[n:], nil
}
