package interaction

import (
	"testing"

	"adhesim/internal/model"
)

func TestTrackerChangesDoNotClear(t *testing.T) {
	tr := NewTracker()
	tr.RecordMove(3, model.Position{X: 1.5, Y: 2.5})
	tr.RecordRemove(7)

	first := tr.Changes()
	second := tr.Changes()
	if len(first.Moves) != 1 || len(second.Moves) != 1 {
		t.Fatalf("expected reads to leave the diff intact: %+v %+v", first, second)
	}
	if len(second.Removals) != 1 || second.Removals[0] != 7 {
		t.Fatalf("unexpected removals: %+v", second.Removals)
	}
}

func TestTrackerFlushIsExactlyOnce(t *testing.T) {
	tr := NewTracker()
	tr.RecordMove(1, model.Position{X: 0.5, Y: 0.5})
	tr.RecordMove(1, model.Position{X: 1.5, Y: 0.5})

	diff := tr.Flush()
	if got := diff.Moves[1]; got != (model.Position{X: 1.5, Y: 0.5}) {
		t.Fatalf("expected latest move to win, got=%v", got)
	}
	if again := tr.Flush(); !again.Empty() {
		t.Fatalf("expected empty diff after flush, got=%+v", again)
	}
	if tr.Len() != 0 {
		t.Fatalf("expected empty tracker, len=%d", tr.Len())
	}
}

func TestTrackerRemovalDropsPendingMove(t *testing.T) {
	tr := NewTracker()
	tr.RecordMove(4, model.Position{X: 2, Y: 2})
	tr.RecordRemove(4)
	tr.RecordRemove(2)

	diff := tr.Changes()
	if _, ok := diff.Moves[4]; ok {
		t.Fatalf("expected move of removed adhesion to be dropped: %+v", diff.Moves)
	}
	if len(diff.Removals) != 2 || diff.Removals[0] != 2 || diff.Removals[1] != 4 {
		t.Fatalf("expected sorted removals, got=%v", diff.Removals)
	}
}

func TestTrackerChangesAreCopies(t *testing.T) {
	tr := NewTracker()
	tr.RecordMove(1, model.Position{X: 1, Y: 1})
	diff := tr.Changes()
	diff.Moves[2] = model.Position{}
	if tr.Len() != 1 {
		t.Fatalf("mutating a returned diff must not affect the tracker, len=%d", tr.Len())
	}
}
