package repository_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tryout/internal/adapters/repository"
	"github.com/okian/tryout/internal/domain/evaluation"
	"github.com/okian/tryout/internal/domain/event"
	"github.com/okian/tryout/internal/domain/experiment"
)

func openStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()
	store, err := repository.NewSQLiteStore(filepath.Join(t.TempDir(), "tryout.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func makeEvents(n int, eventType string) []event.SessionEvent {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	events := make([]event.SessionEvent, n)
	for i := range events {
		events[i] = event.SessionEvent{
			Type:      eventType,
			Origin:    event.OriginUser,
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Data:      []byte(fmt.Sprintf(`{"i":%d}`, i)),
		}
	}
	return events
}

func TestAppendAssignsSequences(t *testing.T) {
	Convey("Given an empty store", t, func() {
		ctx := context.Background()
		store := openStore(t)

		Convey("When the first batch is appended", func() {
			rng, err := store.Append(ctx, "s-1", makeEvents(3, event.TypeKeystroke))

			Convey("Then sequencing starts at zero", func() {
				So(err, ShouldBeNil)
				So(rng.First, ShouldEqual, 0)
				So(rng.Last, ShouldEqual, 2)
				So(rng.Len(), ShouldEqual, 3)
			})

			Convey("And a second batch continues contiguously", func() {
				next, err := store.Append(ctx, "s-1", makeEvents(2, event.TypeKeystroke))
				So(err, ShouldBeNil)
				So(next.First, ShouldEqual, 3)
				So(next.Last, ShouldEqual, 4)
			})
		})

		Convey("When sessions append independently", func() {
			_, err := store.Append(ctx, "s-1", makeEvents(5, event.TypeKeystroke))
			So(err, ShouldBeNil)
			rng, err := store.Append(ctx, "s-2", makeEvents(2, event.TypeKeystroke))

			Convey("Then each session has its own sequence space", func() {
				So(err, ShouldBeNil)
				So(rng.First, ShouldEqual, 0)
			})
		})

		Convey("When an empty batch is appended", func() {
			rng, err := store.Append(ctx, "s-1", nil)

			Convey("Then nothing is reserved", func() {
				So(err, ShouldBeNil)
				So(rng.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestAppendConcurrency(t *testing.T) {
	Convey("Given many goroutines appending to one session", t, func() {
		ctx := context.Background()
		store := openStore(t)

		const (
			appenders = 8
			perBatch  = 25
		)

		ranges := make([]repository.SeqRange, appenders)
		var wg sync.WaitGroup
		for i := 0; i < appenders; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				rng, err := store.Append(ctx, "s-1", makeEvents(perBatch, event.TypeKeystroke))
				if err != nil {
					t.Errorf("append %d: %v", i, err)
					return
				}
				ranges[i] = rng
			}(i)
		}
		wg.Wait()

		Convey("Then the ranges tile the sequence space without gaps or overlaps", func() {
			seen := make(map[int64]bool)
			for _, rng := range ranges {
				So(rng.Len(), ShouldEqual, perBatch)
				for seq := rng.First; seq <= rng.Last; seq++ {
					So(seen[seq], ShouldBeFalse)
					seen[seq] = true
				}
			}
			So(len(seen), ShouldEqual, appenders*perBatch)
			for seq := int64(0); seq < int64(appenders*perBatch); seq++ {
				So(seen[seq], ShouldBeTrue)
			}
		})

		Convey("Then the stored log is dense and ordered", func() {
			events, err := store.Events(ctx, "s-1")
			So(err, ShouldBeNil)
			So(len(events), ShouldEqual, appenders*perBatch)
			for i, e := range events {
				So(e.Seq, ShouldEqual, int64(i))
			}
		})
	})
}

func TestQueryFilters(t *testing.T) {
	Convey("Given a session with mixed event types", t, func() {
		ctx := context.Background()
		store := openStore(t)

		base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
		batch := []event.SessionEvent{
			{Type: event.TypeKeystroke, Origin: event.OriginUser, Timestamp: base},
			{Type: event.TypeCodeSnapshot, Origin: event.OriginSystem, Timestamp: base.Add(time.Minute), Checkpoint: true},
			{Type: event.TypeTerminalInput, Origin: event.OriginUser, Timestamp: base.Add(2 * time.Minute)},
			{Type: event.TypeKeystroke, Origin: event.OriginUser, Timestamp: base.Add(3 * time.Minute)},
			{Type: event.TypeTestResult, Origin: event.OriginSystem, Timestamp: base.Add(4 * time.Minute), Checkpoint: true},
		}
		_, err := store.Append(ctx, "s-1", batch)
		So(err, ShouldBeNil)

		Convey("When filtering by type", func() {
			events, err := store.Query(ctx, "s-1", repository.Filter{
				Types: []string{event.TypeKeystroke},
			})

			So(err, ShouldBeNil)
			So(len(events), ShouldEqual, 2)
			So(events[0].Seq, ShouldEqual, 0)
			So(events[1].Seq, ShouldEqual, 3)
		})

		Convey("When filtering to checkpoints", func() {
			events, err := store.Query(ctx, "s-1", repository.Filter{CheckpointsOnly: true})

			So(err, ShouldBeNil)
			So(len(events), ShouldEqual, 2)
			So(events[0].Type, ShouldEqual, event.TypeCodeSnapshot)
			So(events[1].Type, ShouldEqual, event.TypeTestResult)
		})

		Convey("When filtering by time window", func() {
			events, err := store.Query(ctx, "s-1", repository.Filter{
				From: base.Add(time.Minute),
				To:   base.Add(3 * time.Minute),
			})

			So(err, ShouldBeNil)
			So(len(events), ShouldEqual, 3)
		})

		Convey("When paginating", func() {
			page, err := store.Query(ctx, "s-1", repository.Filter{Limit: 2, Offset: 2})

			So(err, ShouldBeNil)
			So(len(page), ShouldEqual, 2)
			So(page[0].Seq, ShouldEqual, 2)

			Convey("Then counting ignores pagination", func() {
				n, err := store.Count(ctx, "s-1", repository.Filter{Limit: 2, Offset: 2})
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 5)
			})
		})

		Convey("When reading back a stored event", func() {
			events, err := store.Query(ctx, "s-1", repository.Filter{Limit: 1})

			So(err, ShouldBeNil)
			So(events[0].SessionID, ShouldEqual, "s-1")
			So(events[0].Origin, ShouldEqual, event.OriginUser)
			So(events[0].Timestamp.Equal(base), ShouldBeTrue)
		})
	})
}

func TestSessionInfo(t *testing.T) {
	Convey("Given the session metadata view", t, func() {
		ctx := context.Background()
		store := openStore(t)

		Convey("When the session does not exist", func() {
			_, err := store.SessionInfo(ctx, "missing")

			So(err, ShouldEqual, repository.ErrNotFound)
		})

		Convey("When events have been appended", func() {
			_, err := store.Append(ctx, "s-1", makeEvents(4, event.TypeKeystroke))
			So(err, ShouldBeNil)

			info, err := store.SessionInfo(ctx, "s-1")

			So(err, ShouldBeNil)
			So(info.SessionID, ShouldEqual, "s-1")
			So(info.EventCount, ShouldEqual, 4)
			So(info.CreatedAt.IsZero(), ShouldBeFalse)

			Convey("Then the session is counted", func() {
				n, err := store.SessionCount(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})
		})
	})
}

func TestEvaluationVersioning(t *testing.T) {
	Convey("Given stored evaluation runs", t, func() {
		ctx := context.Background()
		store := openStore(t)

		Convey("When no evaluation exists", func() {
			_, err := store.LatestEvaluation(ctx, "s-1")

			So(err, ShouldEqual, repository.ErrNotFound)
		})

		Convey("When two runs are saved", func() {
			first := &evaluation.Result{
				ID:           ulid.Make().String(),
				SessionID:    "s-1",
				CreatedAt:    time.Now().UTC(),
				OverallScore: 60,
			}
			So(store.SaveEvaluation(ctx, first), ShouldBeNil)

			second := &evaluation.Result{
				ID:           ulid.Make().String(),
				SessionID:    "s-1",
				CreatedAt:    time.Now().UTC(),
				OverallScore: 75,
			}
			So(store.SaveEvaluation(ctx, second), ShouldBeNil)

			Convey("Then the later run supersedes the earlier one", func() {
				latest, err := store.LatestEvaluation(ctx, "s-1")
				So(err, ShouldBeNil)
				So(latest.ID, ShouldEqual, second.ID)
				So(latest.OverallScore, ShouldEqual, 75)
			})
		})
	})
}

func TestDeleteSession(t *testing.T) {
	Convey("Given a session with events and an evaluation", t, func() {
		ctx := context.Background()
		store := openStore(t)

		_, err := store.Append(ctx, "s-1", makeEvents(3, event.TypeKeystroke))
		So(err, ShouldBeNil)
		So(store.SaveEvaluation(ctx, &evaluation.Result{
			ID:        ulid.Make().String(),
			SessionID: "s-1",
			CreatedAt: time.Now().UTC(),
		}), ShouldBeNil)

		Convey("When the session is deleted", func() {
			So(store.DeleteSession(ctx, "s-1"), ShouldBeNil)

			Convey("Then every trace is gone", func() {
				_, err := store.SessionInfo(ctx, "s-1")
				So(err, ShouldEqual, repository.ErrNotFound)

				events, err := store.Events(ctx, "s-1")
				So(err, ShouldBeNil)
				So(len(events), ShouldEqual, 0)

				_, err = store.LatestEvaluation(ctx, "s-1")
				So(err, ShouldEqual, repository.ErrNotFound)
			})

			Convey("Then a fresh log restarts sequencing at zero", func() {
				rng, err := store.Append(ctx, "s-1", makeEvents(1, event.TypeKeystroke))
				So(err, ShouldBeNil)
				So(rng.First, ShouldEqual, 0)
			})
		})
	})
}

func TestAssignmentRoundtrip(t *testing.T) {
	Convey("Given the assignment store", t, func() {
		ctx := context.Background()
		store := openStore(t)

		Convey("When no assignment exists", func() {
			_, ok, err := store.LoadAssignment(ctx, "s-1")

			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("When an assignment is saved", func() {
			a := experiment.Assignment{
				ID:           ulid.Make().String(),
				ExperimentID: "scoring-backend",
				VariantID:    "control",
				UserID:       "user-1",
				SessionID:    "s-1",
				AssignedAt:   time.Now().UTC(),
				Backend:      "baseline",
			}
			So(store.SaveAssignment(ctx, a), ShouldBeNil)

			Convey("Then it loads back intact", func() {
				loaded, ok, err := store.LoadAssignment(ctx, "s-1")
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(loaded.ID, ShouldEqual, a.ID)
				So(loaded.VariantID, ShouldEqual, "control")
			})

			Convey("Then a competing save does not overwrite it", func() {
				competing := a
				competing.ID = ulid.Make().String()
				competing.VariantID = "treatment"
				So(store.SaveAssignment(ctx, competing), ShouldBeNil)

				loaded, ok, err := store.LoadAssignment(ctx, "s-1")
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(loaded.VariantID, ShouldEqual, "control")
			})
		})
	})
}
