package planner

import (
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/buildbotics/motioncore/logging"
	"github.com/buildbotics/motioncore/status"
)

// defaultHeadroom is the number of slots NewBuffer keeps in reserve
// (NewPlanner replaces it with Config.Headroom); Room() never reports more
// than PoolSize-headroom free slots, giving the
// upstream parser a back-pressure signal before the ring is truly full
// (§3.2 invariant 4, §4.2).
const defaultHeadroom = 4

// Buffer is the bounded ring of Block slots (C2). Producer (main loop)
// owns tail; consumer (exec) owns head. Slot content outside [head, tail)
// is unowned (§5 "Shared resources").
type Buffer struct {
	slots    []Block
	head     atomic.Int32
	tail     atomic.Int32
	fill     atomic.Int32
	headroom int
	logger   logging.Logger
}

// NewBuffer allocates a ring of poolSize block slots.
func NewBuffer(poolSize int, logger logging.Logger) *Buffer {
	if poolSize <= defaultHeadroom {
		poolSize = defaultHeadroom + 1
	}
	return &Buffer{
		slots:    make([]Block, poolSize),
		headroom: defaultHeadroom,
		logger:   logger,
	}
}

func (b *Buffer) poolSize() int32 { return int32(len(b.slots)) }

// Room returns free slots above the reserved headroom (§4.2 room()).
func (b *Buffer) Room() int {
	free := int(b.poolSize()) - int(b.fill.Load())
	free -= b.headroom
	if free < 0 {
		return 0
	}
	return free
}

// Fill returns occupied slot count (§4.2 fill()).
func (b *Buffer) Fill() int { return int(b.fill.Load()) }

// IsEmpty reports whether head == tail.
func (b *Buffer) IsEmpty() bool { return b.fill.Load() == 0 }

// GetTail returns a pointer to the next writable slot. The source
// busy-waits here in single-threaded cooperative use (§4.2); callers in
// this implementation must have already checked Room() > 0 — GetTail
// itself reports an internal error if called while full, rather than
// blocking, since Go callers run as goroutines and should back off via
// their own scheduling instead of spinning inside the ring.
func (b *Buffer) GetTail() (*Block, status.Status) {
	if b.Room() <= 0 {
		return nil, status.New(status.InternalError)
	}
	idx := b.tail.Load() % b.poolSize()
	return &b.slots[idx], status.New(status.OK)
}

// Push commits the slot returned by GetTail: stamps state = NEW and
// advances tail (§4.2 push()). Push does not notify the state machine; the
// READY -> RUNNING transition is the caller's StateMachine.NotifyPush, which
// nonstop pushes of internal commands (jog, calibrate) do not make.
func (b *Buffer) Push(blk *Block) {
	blk.State = StateNew
	b.tail.Inc()
	b.fill.Inc()
	if b.logger != nil {
		b.logger.Debugw("block pushed", "trace", blk.Trace, "kind", blk.Kind, "fill", b.Fill())
	}
}

// GetHead returns the next executable block, or nil if empty (§4.2).
func (b *Buffer) GetHead() *Block {
	if b.IsEmpty() {
		return nil
	}
	idx := b.head.Load() % b.poolSize()
	return &b.slots[idx]
}

// Pop zeros the head slot and advances head (§4.2 pop()). Popping an
// empty ring is an internal-error alarm, mirroring the source's ALARM on
// underflow in buffer.c.
func (b *Buffer) Pop() status.Status {
	if b.IsEmpty() {
		return status.New(status.InternalError)
	}
	idx := b.head.Load() % b.poolSize()
	b.slots[idx].Reset()
	b.head.Inc()
	b.fill.Dec()
	return status.New(status.OK)
}

// SlotAt returns the block at a forward offset from head (0 = head itself,
// Fill()-1 = the most recently pushed block), without removing it — used
// by look-ahead replanning to walk between the tail and the currently
// executing block.
func (b *Buffer) SlotAt(offsetFromHead int) (*Block, error) {
	if offsetFromHead < 0 || offsetFromHead >= b.Fill() {
		return nil, errors.Errorf("planner: offset %d out of range [0,%d)", offsetFromHead, b.Fill())
	}
	idx := (b.head.Load() + int32(offsetFromHead)) % b.poolSize()
	return &b.slots[idx], nil
}

// TailSlot returns the most recently pushed block (Fill()-1 offset from
// head), or nil if empty.
func (b *Buffer) TailSlot() *Block {
	if b.IsEmpty() {
		return nil
	}
	blk, err := b.SlotAt(b.Fill() - 1)
	if err != nil {
		return nil
	}
	return blk
}
