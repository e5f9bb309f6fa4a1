package blink_test

import (
	"errors"
	"math"
	"testing"
	"unsafe"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/zakarumych/blink-alloc/pkg/blink"
)

type testStruct struct {
	X int
	Y float64
}

func TestLocalArena(t *testing.T) {
	Convey("Given a LocalArena", t, func() {
		a := blink.NewLocalArena(blink.WithInitialChunkSize(64))

		Convey("When allocating a value", func() {
			p, err := blink.New(a, testStruct{X: 42, Y: 3.14})
			So(err, ShouldBeNil)
			So(p, ShouldNotBeNil)

			Convey("Then the value is set", func() {
				So(p.X, ShouldEqual, 42)
				So(p.Y, ShouldEqual, 3.14)
			})

			Convey("Then the pointer is aligned", func() {
				So(uintptr(unsafe.Pointer(p))%8, ShouldEqual, uintptr(0))
			})
		})

		Convey("When allocating multiple values", func() {
			var ptrs []*testStruct
			for i := 0; i < 10; i++ {
				p, err := blink.New(a, testStruct{X: i, Y: float64(i)})
				So(err, ShouldBeNil)
				ptrs = append(ptrs, p)
			}

			Convey("Then every value is set", func() {
				for i, p := range ptrs {
					So(p.X, ShouldEqual, i)
					So(p.Y, ShouldEqual, float64(i))
				}
			})

			Convey("Then resetting drops SizeInUse to zero", func() {
				a.Reset()

				So(a.Metrics().SizeInUse, ShouldEqual, 0)
			})
		})

		Convey("When allocating a value larger than the initial chunk", func() {
			p, err := blink.New(a, [1024]byte{})

			So(err, ShouldBeNil)
			So(p, ShouldNotBeNil)
		})

		Convey("When allocating multiple types", func() {
			i, err := blink.New(a, 123)
			So(err, ShouldBeNil)
			So(*i, ShouldEqual, 123)

			f, err := blink.New(a, 3.14)
			So(err, ShouldBeNil)
			So(*f, ShouldEqual, 3.14)

			s, err := blink.New(a, "hello")
			So(err, ShouldBeNil)
			So(*s, ShouldEqual, "hello")
		})

		i, err := blink.New(a, 42)
		So(err, ShouldBeNil)
		So(i, ShouldNotBeNil)
		So(*i, ShouldEqual, 42)

		Convey("When reallocating to the same type", func() {
			i, err = blink.Realloc[int](a, i)

			Convey("Then the value is unchanged", func() {
				So(err, ShouldBeNil)
				So(i, ShouldNotBeNil)
				So(*i, ShouldEqual, 42)
			})
		})

		Convey("When reallocating to a different type of the same width", func() {
			r, err := blink.Realloc[float64](a, i)

			Convey("Then the raw bytes are reinterpreted, not converted", func() {
				So(err, ShouldBeNil)
				So(r, ShouldNotBeNil)
				So(*r, ShouldEqual, math.Float64frombits(42))
			})
		})

		Convey("When growing past the current chunk's capacity", func() {
			type big struct{ bytes [256]byte }

			p, err := blink.New(a, big{})
			So(err, ShouldBeNil)
			p.bytes[0] = 7
			p.bytes[255] = 9

			grown, err := blink.Realloc[[512]byte](a, &p.bytes)
			So(err, ShouldBeNil)
			So(grown[0], ShouldEqual, 7)
			So(grown[255], ShouldEqual, 9)
		})
	})
}

func TestLocalArenaGrowOfNonTipPlacementCopiesToNewAddress(t *testing.T) {
	Convey("Given an arena holding two placements", t, func() {
		a := blink.NewLocalArena(blink.WithInitialChunkSize(64))

		p1, err := blink.New(a, [4]byte{1, 2, 3, 4})
		So(err, ShouldBeNil)

		_, err = blink.New(a, [4]byte{})
		So(err, ShouldBeNil)

		Convey("When growing the first, no-longer-tip placement", func() {
			oldAddr := uintptr(unsafe.Pointer(p1))
			grown, err := blink.Realloc[[8]byte](a, p1)

			Convey("Then it succeeds at a new address with the old bytes preserved", func() {
				So(err, ShouldBeNil)
				So(uintptr(unsafe.Pointer(grown)), ShouldNotEqual, oldAddr)
				So(grown[0], ShouldEqual, 1)
				So(grown[1], ShouldEqual, 2)
				So(grown[2], ShouldEqual, 3)
				So(grown[3], ShouldEqual, 4)
			})
		})
	})
}

func TestLocalArenaResetRetainsLargestChunk(t *testing.T) {
	Convey("Given an arena that has grown across several chunks", t, func() {
		a := blink.NewLocalArena(blink.WithInitialChunkSize(16))

		for i := 0; i < 64; i++ {
			_, err := blink.New(a, [32]byte{})
			So(err, ShouldBeNil)
		}

		before := a.Metrics()
		So(before.NumChunks, ShouldBeGreaterThan, 1)

		Convey("When reset", func() {
			a.Reset()
			after := a.Metrics()

			Convey("Then exactly one chunk survives, and it is the largest", func() {
				So(after.NumChunks, ShouldEqual, 1)
				So(after.CurrentChunkSize, ShouldEqual, before.CurrentChunkSize)
			})

			Convey("Then its cursor is back to zero", func() {
				So(after.SizeInUse, ShouldEqual, 0)
			})
		})
	})
}

func TestLocalArenaZeroSizedAllocation(t *testing.T) {
	Convey("Given a LocalArena", t, func() {
		a := blink.NewLocalArena()

		Convey("When allocating a zero-sized type", func() {
			p, err := blink.New(a, struct{}{})

			Convey("Then it succeeds with a non-nil, well-aligned pointer", func() {
				So(err, ShouldBeNil)
				So(p, ShouldNotBeNil)
			})
		})
	})
}

func TestLocalArenaOutOfMemory(t *testing.T) {
	Convey("Given an arena with a tiny max chunk size", t, func() {
		a := blink.NewLocalArena(
			blink.WithInitialChunkSize(8),
			blink.WithMaxChunkSize(16),
		)

		Convey("When allocating something larger than the max chunk size", func() {
			_, err := blink.New(a, [1024]byte{})

			Convey("Then it fails with ErrOutOfMemory", func() {
				So(errors.Is(err, blink.ErrOutOfMemory), ShouldBeTrue)
			})
		})
	})
}
