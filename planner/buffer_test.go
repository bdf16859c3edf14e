package planner

import (
	"testing"

	"go.viam.com/test"

	"github.com/buildbotics/motioncore/logging"
	"github.com/buildbotics/motioncore/status"
)

func TestRoomAndFillConservation(t *testing.T) {
	const poolSize = 8
	b := NewBuffer(poolSize, logging.NewTestLogger(t))

	test.That(t, b.Fill(), test.ShouldEqual, 0)
	test.That(t, b.Room(), test.ShouldEqual, poolSize-defaultHeadroom)

	pushed := 0
	for b.Room() > 0 {
		blk, st := b.GetTail()
		test.That(t, st.Code, test.ShouldEqual, status.OK)
		blk.Length = 1
		b.Push(blk)
		pushed++
	}
	test.That(t, b.Fill()+b.Room()+defaultHeadroom, test.ShouldEqual, poolSize)

	_, st := b.GetTail()
	test.That(t, st.Code, test.ShouldEqual, status.InternalError)
}

func TestPushPopRoundTrip(t *testing.T) {
	b := NewBuffer(8, logging.NewTestLogger(t))
	test.That(t, b.IsEmpty(), test.ShouldBeTrue)

	blk, st := b.GetTail()
	test.That(t, st.Code, test.ShouldEqual, status.OK)
	blk.Line = 42
	b.Push(blk)

	test.That(t, b.IsEmpty(), test.ShouldBeFalse)
	head := b.GetHead()
	test.That(t, head.Line, test.ShouldEqual, 42)
	test.That(t, head.State, test.ShouldEqual, StateNew)

	popSt := b.Pop()
	test.That(t, popSt.Code, test.ShouldEqual, status.OK)
	test.That(t, b.IsEmpty(), test.ShouldBeTrue)
}

func TestPopEmptyIsInternalError(t *testing.T) {
	b := NewBuffer(8, logging.NewTestLogger(t))
	st := b.Pop()
	test.That(t, st.Code, test.ShouldEqual, status.InternalError)
}

func TestWrapAround(t *testing.T) {
	b := NewBuffer(8, logging.NewTestLogger(t))
	for i := 0; i < 20; i++ {
		blk, st := b.GetTail()
		test.That(t, st.Code, test.ShouldEqual, status.OK)
		blk.Line = i
		b.Push(blk)

		head := b.GetHead()
		test.That(t, head.Line, test.ShouldEqual, i)
		popSt := b.Pop()
		test.That(t, popSt.Code, test.ShouldEqual, status.OK)
	}
}
