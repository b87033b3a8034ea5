package extract_test

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/okian/tryout/internal/domain/event"
	"github.com/okian/tryout/internal/domain/extract"
	. "github.com/smartystreets/goconvey/convey"
)

func payload(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func TestReplayPairing(t *testing.T) {
	Convey("Given an ordered log with chat and terminal streams", t, func() {
		base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
		events := []event.SessionEvent{
			{Seq: 0, Type: event.TypeChatUserMessage, Timestamp: base,
				Data: payload(t, event.ChatMessagePayload{Message: "how do I parse this?"})},
			{Seq: 1, Type: event.TypeChatAssistantMsg, Timestamp: base.Add(time.Second),
				Data: payload(t, event.ChatMessagePayload{Message: "use a scanner"})},
			{Seq: 2, Type: event.TypeTerminalInput, Timestamp: base.Add(2 * time.Second),
				Data: payload(t, event.TerminalInputPayload{Command: "go test ./..."})},
			{Seq: 3, Type: event.TypeTerminalOutput, Timestamp: base.Add(3 * time.Second),
				Data: payload(t, event.TerminalOutputPayload{Output: "ok", ExitCode: 0})},
			{Seq: 4, Type: event.TypeChatUserMessage, Timestamp: base.Add(4 * time.Second),
				Data: payload(t, event.ChatMessagePayload{Message: "unanswered"})},
		}

		Convey("When the log is replayed", func() {
			data := extract.Replay("s-1", events)

			Convey("Then user and assistant messages pair by adjacency", func() {
				So(len(data.AIInteractions), ShouldEqual, 2)
				So(data.AIInteractions[0].Answered(), ShouldBeTrue)
				So(data.AIInteractions[0].AssistantMessage, ShouldEqual, "use a scanner")
				So(data.AIInteractions[1].Answered(), ShouldBeFalse)
			})

			Convey("Then commands pair with their next output", func() {
				So(len(data.TerminalCommands), ShouldEqual, 1)
				So(data.TerminalCommands[0].Completed(), ShouldBeTrue)
				So(data.TerminalCommands[0].Output, ShouldEqual, "ok")
			})

			Convey("Then duration spans first to last timestamp", func() {
				So(data.Duration, ShouldEqual, 4*time.Second)
				So(data.EventCount, ShouldEqual, 5)
			})
		})

		Convey("When the log is replayed twice", func() {
			first := extract.Replay("s-1", events)
			second := extract.Replay("s-1", events)

			Convey("Then the outcome is identical", func() {
				So(reflect.DeepEqual(first, second), ShouldBeTrue)
			})
		})
	})
}

func TestReplayOrphans(t *testing.T) {
	Convey("Given responses with no open request", t, func() {
		events := []event.SessionEvent{
			{Seq: 0, Type: event.TypeChatAssistantMsg,
				Data: payload(t, event.ChatMessagePayload{Message: "hello?"})},
			{Seq: 1, Type: event.TypeTerminalOutput,
				Data: payload(t, event.TerminalOutputPayload{Output: "noise"})},
		}

		data := extract.Replay("s-2", events)

		Convey("Then both are dropped and recorded as anomalies", func() {
			So(len(data.AIInteractions), ShouldEqual, 0)
			So(len(data.TerminalCommands), ShouldEqual, 0)
			So(len(data.Anomalies), ShouldEqual, 2)
		})
	})
}

func TestReplayMetricsLastWins(t *testing.T) {
	Convey("Given multiple metrics events", t, func() {
		events := []event.SessionEvent{
			{Seq: 0, Type: event.TypeSessionMetrics,
				Data: payload(t, event.SessionMetricsPayload{AIDependencyScore: 0.2})},
			{Seq: 1, Type: event.TypeMetricsUpdated,
				Data: payload(t, event.SessionMetricsPayload{AIDependencyScore: 0.9, Keystrokes: 400})},
		}

		data := extract.Replay("s-3", events)

		Convey("Then only the last value is retained", func() {
			So(data.Metrics.Present, ShouldBeTrue)
			So(data.Metrics.AIDependencyScore, ShouldEqual, 0.9)
			So(data.Metrics.Keystrokes, ShouldEqual, 400)
		})
	})
}

func TestReplayUndecodablePayload(t *testing.T) {
	Convey("Given a snapshot with a broken payload", t, func() {
		events := []event.SessionEvent{
			{Seq: 0, Type: event.TypeCodeSnapshot, Data: json.RawMessage(`{"files": 3}`)},
		}

		data := extract.Replay("s-4", events)

		Convey("Then the event is skipped, not fatal", func() {
			So(len(data.CodeSnapshots), ShouldEqual, 0)
			So(len(data.Anomalies), ShouldEqual, 1)
		})
	})
}
