// Package journal is an in-filesystem metadata journal for a
// microkernel-style disk filesystem: a bounded in-memory queue, a
// background flusher, a raw circular-log writer with CRC-protected
// header and entries, a synchronous-durability fast path, and an
// offline replayer (see the replay subpackage).
package journal

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/behrlich/mjournal/internal/iface"
	"github.com/behrlich/mjournal/internal/layout"
	"github.com/behrlich/mjournal/internal/logging"
	"github.com/behrlich/mjournal/internal/mqueue"
	"github.com/behrlich/mjournal/internal/rawdevice"
)

// Durability selects how LogMetadata persists a payload.
type Durability int

const (
	// Async enqueues the payload for the background flusher.
	Async Durability = iota
	// Sync writes and fsyncs the payload before returning.
	Sync
)

// minReasonableTime and maxReasonableTime bound the mtime/ctime sanity
// window: values outside this range are almost certainly a corrupted
// stat snapshot rather than a real timestamp, and are stored as -1
// rather than propagated. Chosen generously around the practical range
// of on-disk timestamps this filesystem is expected to see.
const (
	minReasonableTime int64 = 0          // 1970-01-01T00:00:00Z
	maxReasonableTime int64 = 4102444800 // 2100-01-01T00:00:00Z
)

// Node is the embedded stat snapshot a caller supplies for the file
// being journaled.
type Node struct {
	Ino    uint32
	Mode   uint32
	Size   uint64
	Nlink  uint64
	Blocks uint64
	Mtime  int64
	Ctime  int64
}

// Info carries the event descriptor: the action being journaled, the
// names and parent inodes it touches, and optional overrides each
// paired with a Has* validity bit.
type Info struct {
	Action                                string
	Name, OldName, NewName, Target, Extra string
	ParentIno, SrcParentIno, DstParentIno  uint32
	UID, GID                               uint32
	HasMode, HasSize, HasUID, HasGID       bool
}

// JournalCore is the single aggregate holding every piece of mutable
// state the original kept as process-wide globals: the dropped-events
// counter, the device-ready flag, the tx_id generator, and the device
// handle. Constructed once by Init and passed by reference; there is
// no package-level mutable state.
type JournalCore struct {
	writer    *rawdevice.Writer
	queue     *mqueue.Queue
	flusher   *mqueue.Flusher
	monitor   *mqueue.Monitor
	readiness *mqueue.Readiness
	metrics   *Metrics
	logger    iface.Logger

	txCounter atomic.Uint64
	ignore    map[uint32]struct{}

	flusherDone chan struct{}
	shutOnce    sync.Once
}

// Config controls Init. Logger and Metrics default to a stderr logger
// and a fresh Metrics instance when left nil; IgnoredInodes is the
// small fixed set of internal inodes LogMetadata silently drops.
type Config struct {
	DevicePath    string
	IgnoredInodes []uint32
	Logger        iface.Logger
	Metrics       *Metrics

	// Open overrides how the backing device is (re)opened. Tests use
	// this to point the journal at a devtest.MockDevice instead of a
	// real file; production callers leave it nil and DevicePath is
	// used with rawdevice.OpenFileDevice.
	Open func() (iface.Device, error)
}

// Init wires up the raw writer, queue, flusher, and readiness monitor,
// and starts their background goroutines. It does not open the backing
// device itself: the writer opens it (creating if necessary) on first
// use, which is normally the readiness monitor's first poll. The
// returned JournalCore is ready to accept LogMetadata calls immediately
// — the readiness monitor catches up asynchronously.
func Init(cfg Config) (*JournalCore, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}

	open := cfg.Open
	if open == nil {
		open = func() (iface.Device, error) {
			return rawdevice.OpenFileDevice(cfg.DevicePath)
		}
	}
	writer := rawdevice.NewWriter(open, logger, metrics)
	queue := mqueue.NewQueue(mqueue.DefaultCapacity, metrics)

	var readiness mqueue.Readiness
	monitor := mqueue.NewMonitor(writer.Ready, &readiness, queue, logger)
	flusher := mqueue.NewFlusher(queue, &meteredWriter{writer: writer, metrics: metrics}, &readiness, logger)

	ignore := make(map[uint32]struct{}, len(cfg.IgnoredInodes))
	for _, ino := range cfg.IgnoredInodes {
		ignore[ino] = struct{}{}
	}

	core := &JournalCore{
		writer:      writer,
		queue:       queue,
		flusher:     flusher,
		monitor:     monitor,
		readiness:   &readiness,
		metrics:     metrics,
		logger:      logger,
		ignore:      ignore,
		flusherDone: make(chan struct{}),
	}

	go monitor.Run()
	go func() {
		flusher.Run()
		close(core.flusherDone)
	}()

	return core, nil
}

// Shutdown stops accepting new async work, waits for the flusher to
// drain whatever remains (or, if the device is not ready, to count it
// as dropped), and releases the device handle. The
// readiness monitor is a best-effort daemon per §4.3 and is stopped
// but not joined.
func (c *JournalCore) Shutdown() error {
	var err error
	c.shutOnce.Do(func() {
		c.queue.Shutdown()
		<-c.flusherDone
		c.monitor.Stop()
		err = c.writer.Close()
	})
	return err
}

// FlushNow signals the flusher to drain immediately rather than wait
// out FlushDeadline or a full queue.
func (c *JournalCore) FlushNow() {
	c.flusher.Kick()
}

// Metrics returns the core's metrics instance for reporting.
func (c *JournalCore) Metrics() *Metrics {
	return c.metrics
}

// LogMetadata implements §4.5's logger facade: validates inputs,
// applies the ignore-list, stamps tx_id and timestamp, clamps and
// copies the stat snapshot, applies overrides, truncates text fields,
// and dispatches to the sync or async path.
func (c *JournalCore) LogMetadata(node *Node, info *Info, durability Durability) error {
	if node == nil || info == nil {
		c.metrics.RecordRejected()
		c.logger.Warnf("log_metadata: rejected nil node or info")
		return NewError("log_metadata", KindPayloadInvalid, "node and info must be non-nil")
	}
	if _, ignored := c.ignore[node.Ino]; ignored {
		return nil
	}

	var p layout.Payload
	p.TxID = c.txCounter.Add(1)
	p.TimestampMs = uint64(time.Now().UnixMilli())

	p.ParentIno = info.ParentIno
	p.SrcParentIno = info.SrcParentIno
	p.DstParentIno = info.DstParentIno
	p.Ino = node.Ino

	p.StMode = node.Mode
	p.StSize = node.Size
	p.StNlink = node.Nlink
	p.StBlocks = node.Blocks
	p.Mtime = clampTime(node.Mtime)
	p.Ctime = clampTime(node.Ctime)

	p.UID = info.UID
	p.GID = info.GID
	p.HasMode = info.HasMode
	p.HasSize = info.HasSize
	p.HasUID = info.HasUID
	p.HasGID = info.HasGID

	layout.SetField(&p.Action, info.Action)
	layout.SetField(&p.Name, info.Name)
	layout.SetField(&p.OldName, info.OldName)
	layout.SetField(&p.NewName, info.NewName)
	layout.SetField(&p.Target, info.Target)
	layout.SetField(&p.Extra, info.Extra)

	if durability == Sync && c.readiness.Load() {
		c.metrics.RecordSyncWrite()
		if err := c.writer.WriteSync(p, true); err != nil {
			return WrapError("log_metadata", KindTransientIO, err)
		}
		return nil
	}

	c.metrics.RecordAsyncWrite()
	if err := c.queue.Enqueue(p); err != nil {
		kind := KindQueueOverflow
		if err == mqueue.ErrShuttingDown {
			kind = KindShuttingDown
		}
		return WrapError("log_metadata", kind, err)
	}
	c.metrics.RecordEnqueued()
	return nil
}

// meteredWriter adapts a *rawdevice.Writer to mqueue.BatchWriter while
// timing each batch into Metrics, so flush throughput and latency are
// observable without the flusher itself knowing about Metrics.
type meteredWriter struct {
	writer  *rawdevice.Writer
	metrics *Metrics
}

func (m *meteredWriter) WriteBatch(entries []layout.Payload) error {
	start := time.Now()
	err := m.writer.WriteBatch(entries)
	m.metrics.RecordFlush(len(entries), uint64(time.Since(start).Nanoseconds()), err == nil)
	return err
}

// clampTime implements §4.5 step 4: values outside the reasonable
// wall-clock window are stored as -1 rather than propagated.
func clampTime(t int64) int64 {
	if t < minReasonableTime || t > maxReasonableTime {
		return -1
	}
	return t
}
