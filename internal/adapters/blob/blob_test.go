package blob_test

import (
	"testing"

	"github.com/okian/tryout/internal/adapters/blob"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFSStore(t *testing.T) {
	Convey("Given a filesystem blob store", t, func() {
		store, err := blob.NewFSStore(t.TempDir())
		So(err, ShouldBeNil)

		Convey("When content is stored and read back", func() {
			content := []byte("package main\n\nfunc main() {}\n")
			ref, err := store.Put(content)

			So(err, ShouldBeNil)
			So(len(ref.Digest), ShouldEqual, 64)
			So(ref.Size, ShouldEqual, int64(len(content)))

			got, err := store.Get(ref)
			So(err, ShouldBeNil)
			So(string(got), ShouldEqual, string(content))
		})

		Convey("When identical content is stored twice", func() {
			first, err := store.Put([]byte("same bytes"))
			So(err, ShouldBeNil)
			second, err := store.Put([]byte("same bytes"))
			So(err, ShouldBeNil)

			Convey("Then both writes resolve to one reference", func() {
				So(second, ShouldResemble, first)
			})
		})

		Convey("When different content is stored", func() {
			a, err := store.Put([]byte("a"))
			So(err, ShouldBeNil)
			b, err := store.Put([]byte("b"))
			So(err, ShouldBeNil)

			So(a.Digest, ShouldNotEqual, b.Digest)
		})

		Convey("When a reference points to nothing", func() {
			_, err := store.Get(blob.Ref{
				Digest: "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef",
			})

			So(err, ShouldEqual, blob.ErrBlobNotFound)
		})

		Convey("When a reference digest is malformed", func() {
			_, err := store.Get(blob.Ref{Digest: "x"})

			So(err, ShouldEqual, blob.ErrInvalidRef)
		})
	})
}
