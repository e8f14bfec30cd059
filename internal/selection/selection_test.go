package selection

import (
	"errors"
	"sync"
	"testing"
	"time"

	"optiscope/internal/domain"
)

func mustSelect(t *testing.T, s State, f Field, v string) State {
	t.Helper()
	next, err := Select(s, f, v)
	if err != nil {
		t.Fatalf("Select(%s, %q) error: %v", f, v, err)
	}
	return next
}

func full(t *testing.T) State {
	t.Helper()
	s := mustSelect(t, State{}, FieldExpiration, "2024-06-21")
	s = mustSelect(t, s, FieldStrike, "172.5")
	s = mustSelect(t, s, FieldRight, "call")
	s = mustSelect(t, s, FieldStartDate, "20240101")
	return mustSelect(t, s, FieldEndDate, "2024-02-01")
}

func TestSelectProgression(t *testing.T) {
	s := State{}
	if s.Stage() != StageNone || s.Ready() {
		t.Fatalf("zero state stage = %s", s.Stage())
	}

	steps := []struct {
		field Field
		value string
		want  Stage
	}{
		{FieldExpiration, "2024-06-21", StageExpiration},
		{FieldStrike, "172.5", StageStrike},
		{FieldRight, "CALL", StageRight},
		{FieldStartDate, "20240101", StageRight},
		{FieldEndDate, "2024-02-01", StageDates},
	}
	for i, st := range steps {
		s = mustSelect(t, s, st.field, st.value)
		if s.Stage() != st.want {
			t.Errorf("after %s stage = %s, want %s", st.field, s.Stage(), st.want)
		}
		if s.Generation != uint64(i+1) {
			t.Errorf("after %s generation = %d, want %d", st.field, s.Generation, i+1)
		}
	}

	if !s.Ready() {
		t.Fatal("fully selected state should be ready")
	}
	req, err := s.Request("AAPL")
	if err != nil {
		t.Fatalf("Request() error: %v", err)
	}
	want := domain.EODRequest{
		Root: "AAPL", Expiration: "2024-06-21", Strike: 172.5,
		Right: domain.RightCall, StartDate: "2024-01-01", EndDate: "2024-02-01",
	}
	if req != want {
		t.Errorf("Request() = %+v, want %+v", req, want)
	}
}

func TestSelectClearsDownstream(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		value string
		check func(State) bool
	}{
		{"new expiration", FieldExpiration, "2024-09-20", func(s State) bool {
			return s.Expiration == "2024-09-20" && !s.HasStrike && s.Right == "" && s.StartDate == "" && s.EndDate == ""
		}},
		{"new strike", FieldStrike, "180", func(s State) bool {
			return s.Expiration == "2024-06-21" && s.Strike == 180 && s.Right == "" && s.StartDate == "" && s.EndDate == ""
		}},
		{"new right", FieldRight, "put", func(s State) bool {
			return s.HasStrike && s.Right == domain.RightPut && s.StartDate == "" && s.EndDate == ""
		}},
		{"new start date", FieldStartDate, "2023-12-01", func(s State) bool {
			return s.Right == domain.RightCall && s.StartDate == "2023-12-01" && s.EndDate == "2024-02-01"
		}},
		{"cleared strike", FieldStrike, "", func(s State) bool {
			return s.Expiration == "2024-06-21" && !s.HasStrike && s.Right == "" && s.StartDate == ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := full(t)
			after := mustSelect(t, before, tt.field, tt.value)
			if !tt.check(after) {
				t.Errorf("Select(%s, %q) = %+v", tt.field, tt.value, after)
			}
			if after.Generation <= before.Generation {
				t.Errorf("generation %d did not advance past %d", after.Generation, before.Generation)
			}
			if !before.Ready() {
				t.Error("Select mutated its input")
			}
		})
	}
}

func TestSelectPrerequisite(t *testing.T) {
	tests := []struct {
		name  string
		state State
		field Field
	}{
		{"strike without expiration", State{}, FieldStrike},
		{"right without strike", State{Expiration: "2024-06-21"}, FieldRight},
		{"dates without right", State{Expiration: "2024-06-21", Strike: 1, HasStrike: true}, FieldStartDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value := "1"
			if tt.field == FieldStartDate {
				value = "2024-01-01"
			}
			got, err := Select(tt.state, tt.field, value)
			if !errors.Is(err, ErrPrerequisite) {
				t.Errorf("Select() error = %v, want ErrPrerequisite", err)
			}
			if got != tt.state {
				t.Errorf("failed Select changed state to %+v", got)
			}
		})
	}
}

func TestSelectInvalidValues(t *testing.T) {
	s := mustSelect(t, State{}, FieldExpiration, "2024-06-21")
	for _, tc := range []struct {
		field Field
		value string
	}{
		{FieldExpiration, "June"},
		{FieldExpiration, "2024-13-01"},
		{FieldStrike, "abc"},
		{FieldStrike, "-5"},
	} {
		if _, err := Select(s, tc.field, tc.value); !errors.Is(err, ErrInvalidValue) {
			t.Errorf("Select(%s, %q) error = %v, want ErrInvalidValue", tc.field, tc.value, err)
		}
	}
}

func TestRightMapping(t *testing.T) {
	s := mustSelect(t, State{}, FieldExpiration, "2024-06-21")
	s = mustSelect(t, s, FieldStrike, "100")
	for in, want := range map[string]string{"call": "C", "Call": "C", "put": "P", "straddle": "P"} {
		got := mustSelect(t, s, FieldRight, in)
		if got.Right.Code() != want {
			t.Errorf("right %q code = %q, want %q", in, got.Right.Code(), want)
		}
	}
}

func TestSelectDatesDefaults(t *testing.T) {
	now := time.Date(2024, 12, 12, 23, 22, 42, 0, time.UTC)
	start, end := DefaultDates(now)
	if start != "2024-11-12" || end != "2024-12-12" {
		t.Fatalf("DefaultDates() = %s, %s", start, end)
	}

	s := full(t)
	s = mustSelect(t, s, FieldRight, "put")

	got, err := SelectDates(s, "2024-10-01", "", now)
	if err != nil {
		t.Fatalf("SelectDates() error: %v", err)
	}
	if got.StartDate != "2024-10-01" || got.EndDate != "2024-12-12" {
		t.Errorf("start only = %s..%s", got.StartDate, got.EndDate)
	}
	if got.Generation != s.Generation+1 {
		t.Errorf("generation = %d, want %d", got.Generation, s.Generation+1)
	}

	got, err = SelectDates(s, "", "2024-12-01", now)
	if err != nil {
		t.Fatalf("SelectDates() error: %v", err)
	}
	if got.StartDate != "2024-11-12" || got.EndDate != "2024-12-01" {
		t.Errorf("end only = %s..%s", got.StartDate, got.EndDate)
	}

	if _, err := SelectDates(s, "", "", now); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("SelectDates() with no dates error = %v", err)
	}
}

func TestGuard(t *testing.T) {
	var g Guard
	s1 := mustSelect(t, State{}, FieldExpiration, "2024-06-21")
	t1 := g.Begin(s1)
	if !g.Accept(t1) {
		t.Fatal("latest ticket rejected")
	}

	s2 := mustSelect(t, s1, FieldStrike, "100")
	t2 := g.Begin(s2)
	if g.Accept(t1) {
		t.Error("stale ticket accepted")
	}
	if !g.Accept(t2) {
		t.Error("current ticket rejected")
	}

	s3 := mustSelect(t, s2, FieldRight, "call")
	g.Advance(s3)
	if g.Accept(t2) {
		t.Error("ticket accepted after the selection advanced")
	}

	// An older state must not roll the guard back.
	g.Begin(s1)
	if g.Accept(t1) {
		t.Error("guard moved backwards")
	}
}

func TestGuardConcurrent(t *testing.T) {
	var g Guard
	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(gen uint64) {
			defer wg.Done()
			g.Begin(State{Generation: gen})
		}(uint64(i))
	}
	wg.Wait()

	if !g.Accept(Ticket{generation: 50}) {
		t.Error("highest generation should be current")
	}
	if g.Accept(Ticket{generation: 49}) {
		t.Error("older generation accepted")
	}
}
