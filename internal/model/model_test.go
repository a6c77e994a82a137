package model

import (
	"encoding/json"
	"testing"
)

func TestActionFlow_EveryActionClassified(t *testing.T) {
	inflow := map[Action]bool{ActionBuy: true, ActionAddLiquidity: true}

	for _, a := range Actions {
		f := a.Flow()
		if f == FlowNeutral {
			t.Errorf("%s: defined action must be inflow or outflow", a)
		}
		if inflow[a] && f != FlowInflow {
			t.Errorf("%s: expected inflow, got %d", a, f)
		}
		if !inflow[a] && f != FlowOutflow {
			t.Errorf("%s: expected outflow, got %d", a, f)
		}
	}
	if ActionUnknown.Flow() != FlowNeutral {
		t.Error("unknown action should be neutral")
	}
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		raw  uint8
		want Action
	}{
		{0, ActionBuy},
		{1, ActionSell},
		{7, ActionClaimVoided},
		{8, ActionUnknown},
		{200, ActionUnknown},
	}
	for _, tt := range tests {
		if got := ParseAction(tt.raw); got != tt.want {
			t.Errorf("ParseAction(%d) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestActionLabel(t *testing.T) {
	if ActionClaimWinnings.Label() != "Claim Winnings" {
		t.Errorf("got %q", ActionClaimWinnings.Label())
	}
	if ActionUnknown.Label() != "Unknown" {
		t.Errorf("got %q", ActionUnknown.Label())
	}
}

func TestMarketSet_SortedNumerically(t *testing.T) {
	s := MarketSet{}
	for _, id := range []string{"10", "2", "7", "2"} {
		s.Add(id)
	}
	got := s.Sorted()
	want := []string{"2", "7", "10"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `["2","7","10"]` {
		t.Errorf("unexpected JSON %s", data)
	}
}

func TestEmptySnapshot_SerialisesEmptyCollections(t *testing.T) {
	data, err := json.Marshal(EmptySnapshot())
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if string(decoded["positions"]) != "[]" {
		t.Errorf("positions should be [], got %s", decoded["positions"])
	}
	if string(decoded["transactions"]) != "[]" {
		t.Errorf("transactions should be [], got %s", decoded["transactions"])
	}
}
