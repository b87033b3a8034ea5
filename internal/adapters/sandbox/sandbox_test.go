package sandbox_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/tryout/internal/adapters/sandbox"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLocalSandbox(t *testing.T) {
	Convey("Given a local sandbox workspace", t, func() {
		sb, err := sandbox.NewLocal(t.TempDir())
		So(err, ShouldBeNil)
		defer sb.Destroy()

		Convey("Then the workspace has a stable identifier", func() {
			So(sb.ID(), ShouldNotBeEmpty)
		})

		Convey("When a file is written and read back", func() {
			So(sb.WriteFile("src/main.go", []byte("package main")), ShouldBeNil)

			content, err := sb.ReadFile("src/main.go")
			So(err, ShouldBeNil)
			So(string(content), ShouldEqual, "package main")
		})

		Convey("When a path tries to escape the workspace", func() {
			So(sb.WriteFile("../outside.txt", []byte("x")), ShouldEqual, sandbox.ErrPathEscapes)

			_, err := sb.ReadFile("../../etc/passwd")
			So(err, ShouldEqual, sandbox.ErrPathEscapes)
		})

		Convey("When a command succeeds", func() {
			result, err := sb.RunCommand(context.Background(), "printf hello")

			So(err, ShouldBeNil)
			So(result.ExitCode, ShouldEqual, 0)
			So(result.Output, ShouldEqual, "hello")
			So(result.Duration, ShouldBeGreaterThan, 0)
		})

		Convey("When a command exits non-zero", func() {
			result, err := sb.RunCommand(context.Background(), "exit 3")

			Convey("Then the exit code is data, not an error", func() {
				So(err, ShouldBeNil)
				So(result.ExitCode, ShouldEqual, 3)
			})
		})

		Convey("When a command runs in the workspace directory", func() {
			So(sb.WriteFile("marker.txt", []byte("here")), ShouldBeNil)

			result, err := sb.RunCommand(context.Background(), "cat marker.txt")
			So(err, ShouldBeNil)
			So(result.Output, ShouldEqual, "here")
		})
	})
}

func TestCommandTimeout(t *testing.T) {
	Convey("Given a sandbox with a tight command timeout", t, func() {
		sb, err := sandbox.NewLocal(t.TempDir(), sandbox.WithCommandTimeout(100*time.Millisecond))
		So(err, ShouldBeNil)
		defer sb.Destroy()

		Convey("When a command overruns the timeout", func() {
			_, err := sb.RunCommand(context.Background(), "sleep 5")

			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "timed out")
		})
	})
}
