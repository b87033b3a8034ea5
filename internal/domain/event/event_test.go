package event_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/okian/tryout/internal/domain/event"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalize(t *testing.T) {
	Convey("Given the closed set of event types", t, func() {
		Convey("When normalizing a flat alias", func() {
			canonical, err := event.Normalize("code_snapshot")

			Convey("Then it maps to the dotted form", func() {
				So(err, ShouldBeNil)
				So(canonical, ShouldEqual, event.TypeCodeSnapshot)
			})
		})

		Convey("When normalizing an already canonical type", func() {
			canonical, err := event.Normalize("terminal.input")

			So(err, ShouldBeNil)
			So(canonical, ShouldEqual, event.TypeTerminalInput)
		})

		Convey("When normalizing an unknown type", func() {
			_, err := event.Normalize("telepathy.session")

			Convey("Then it is rejected", func() {
				So(err, ShouldEqual, event.ErrUnknownType)
			})
		})

		Convey("When normalizing an empty type", func() {
			_, err := event.Normalize("   ")
			So(err, ShouldEqual, event.ErrUnknownType)
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given a candidate event", t, func() {
		Convey("When the event is well formed", func() {
			e := event.SessionEvent{Type: "test_run"}
			err := e.Validate()

			Convey("Then it is canonicalized with defaults applied", func() {
				So(err, ShouldBeNil)
				So(e.Type, ShouldEqual, event.TypeTestRun)
				So(e.Origin, ShouldEqual, event.OriginUser)
				So(e.Timestamp.IsZero(), ShouldBeFalse)
			})
		})

		Convey("When the caller pre-assigned a sequence number", func() {
			e := event.SessionEvent{Type: event.TypeKeystroke, Seq: 7}
			err := e.Validate()

			Convey("Then the event is rejected", func() {
				So(err, ShouldEqual, event.ErrSeqAssigned)
			})
		})

		Convey("When the origin is unknown", func() {
			e := event.SessionEvent{Type: event.TypeKeystroke, Origin: "ROBOT"}
			So(e.Validate(), ShouldEqual, event.ErrUnknownOrigin)
		})

		Convey("When the payload is not valid JSON", func() {
			e := event.SessionEvent{Type: event.TypeCodeSnapshot, Data: json.RawMessage(`{"files":`)}
			So(e.Validate(), ShouldEqual, event.ErrMalformedPayload)
		})

		Convey("When a timestamp is supplied", func() {
			ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
			e := event.SessionEvent{Type: event.TypeKeystroke, Timestamp: ts}
			So(e.Validate(), ShouldBeNil)
			So(e.Timestamp, ShouldEqual, ts)
		})
	})
}

func TestCategory(t *testing.T) {
	Convey("Given event types with and without dot segments", t, func() {
		dotted := event.SessionEvent{Type: "terminal.input"}
		flat := event.SessionEvent{Type: "keystroke"}

		So(dotted.Category(), ShouldEqual, "terminal")
		So(flat.Category(), ShouldEqual, event.DefaultCategory)
	})
}
