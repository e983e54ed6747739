package engine

import "sync/atomic"

// Stats is the mutable statistics record shared by a single plan
// execution: pages fetched, rows read, bytes transferred, retries.
// Counters are incremented only by the operator currently producing a
// row, except within parallel-partition where several partition
// goroutines increment concurrently — hence atomic rather than plain
// fields.
type Stats struct {
	pagesFetched int64
	rowsRead     int64
	bytesRead    int64
	retries      int64
}

func (s *Stats) AddPage()            { atomic.AddInt64(&s.pagesFetched, 1) }
func (s *Stats) AddRows(n int64)     { atomic.AddInt64(&s.rowsRead, n) }
func (s *Stats) AddBytes(n int64)    { atomic.AddInt64(&s.bytesRead, n) }
func (s *Stats) AddRetry()           { atomic.AddInt64(&s.retries, 1) }
func (s *Stats) PagesFetched() int64 { return atomic.LoadInt64(&s.pagesFetched) }
func (s *Stats) RowsRead() int64     { return atomic.LoadInt64(&s.rowsRead) }
func (s *Stats) BytesRead() int64    { return atomic.LoadInt64(&s.bytesRead) }
func (s *Stats) Retries() int64      { return atomic.LoadInt64(&s.retries) }
