package metrics

import "testing"

func TestObserveAccumulatesPerAction(t *testing.T) {
	c := New("test", nil)
	c.Observe("create", OutcomeSuccess, 12, 128, 1)
	c.Observe("create", OutcomeCommandFailure, 5, 0, 0)
	c.Observe("retrieve", OutcomeSuccess, 3, 64, 0)

	snap := c.Snapshot()
	byAction := map[string]ActionSnapshot{}
	for _, s := range snap {
		byAction[s.Action] = s
	}

	create, ok := byAction["create"]
	if !ok {
		t.Fatal("expected create action in snapshot")
	}
	if create.Total != 2 || create.Success != 1 || create.CommandFailure != 1 {
		t.Fatalf("unexpected create snapshot: %+v", create)
	}
	if create.HistoryWrites != 1 {
		t.Fatalf("expected 1 history write, got %d", create.HistoryWrites)
	}

	retrieve, ok := byAction["retrieve"]
	if !ok {
		t.Fatal("expected retrieve action in snapshot")
	}
	if retrieve.Total != 1 || retrieve.Success != 1 {
		t.Fatalf("unexpected retrieve snapshot: %+v", retrieve)
	}
}
