package cohort

import (
	"testing"

	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/domain"
)

const day = int64(24 * 3600)

func stateWith(addr string, firstBond, firstUnbond, firstExit int64) *domain.AddressState {
	s := domain.NewAddressState(addr)
	s.FirstBondTS = firstBond
	s.FirstUnbondTS = firstUnbond
	s.FirstExitTS = firstExit
	return s
}

func TestBuild_MembershipByFirstBond(t *testing.T) {
	states := map[string]*domain.AddressState{
		"0xin":     stateWith("0xin", 1000, 0, 0),
		"0xbefore": stateWith("0xbefore", 999, 0, 0),
		"0xatend":  stateWith("0xatend", 2000, 0, 0),
		"0xnever":  stateWith("0xnever", 0, 0, 0),
	}

	c, err := Build("test", states, 1000, 2000)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(c.Members) != 1 {
		t.Fatalf("Members = %d, want 1", len(c.Members))
	}
	if entry, ok := c.Members["0xin"]; !ok || entry != 1000 {
		t.Errorf("member 0xin entry = %d (present %v), want 1000", entry, ok)
	}
}

func TestBuild_RejectsEmptyWindow(t *testing.T) {
	if _, err := Build("bad", nil, 2000, 1000); err == nil {
		t.Fatal("expected error for inverted window")
	}
}

func TestRetention_RightCensoring(t *testing.T) {
	// Two members: one entered 40 days ago and unbonded after 5 days, one
	// entered 10 days ago and never unbonded. At a 30-day horizon only the
	// older member is eligible; the younger is censored, not retained.
	now := 100 * day
	states := map[string]*domain.AddressState{
		"0xold":   stateWith("0xold", now-40*day, now-35*day, 0),
		"0xyoung": stateWith("0xyoung", now-10*day, 0, 0),
	}
	c, err := Build("test", states, 0, now)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	points, err := Retention(c, states, domain.ExitByFirstUnbond, []int{30}, now)
	if err != nil {
		t.Fatalf("Retention failed: %v", err)
	}

	p := points[0]
	if p.Eligible != 1 {
		t.Errorf("Eligible = %d, want 1 (young member censored)", p.Eligible)
	}
	if p.Exited != 1 {
		t.Errorf("Exited = %d, want 1", p.Exited)
	}
	if p.PctExited != 1.0 {
		t.Errorf("PctExited = %f, want 1.0", p.PctExited)
	}
}

func TestRetention_ExitAfterHorizonNotCounted(t *testing.T) {
	// The member exited 50 days after entry; at the 30-day horizon it still
	// counts as retained.
	now := 100 * day
	states := map[string]*domain.AddressState{
		"0xslow": stateWith("0xslow", now-60*day, now-10*day, 0),
	}
	c, err := Build("test", states, 0, now)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	points, err := Retention(c, states, domain.ExitByFirstUnbond, []int{30, 60}, now)
	if err != nil {
		t.Fatalf("Retention failed: %v", err)
	}

	if points[0].Exited != 0 {
		t.Errorf("30d Exited = %d, want 0", points[0].Exited)
	}
	if points[1].Exited != 1 {
		t.Errorf("60d Exited = %d, want 1", points[1].Exited)
	}
}

func TestRetention_ExitDefinitionSelectsTimestamp(t *testing.T) {
	// Unbonded 5 days after entry but withdrew 45 days after. The two exit
	// definitions disagree at the 30-day horizon.
	now := 100 * day
	states := map[string]*domain.AddressState{
		"0xa": stateWith("0xa", now-60*day, now-55*day, now-15*day),
	}
	c, err := Build("test", states, 0, now)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	byUnbond, err := Retention(c, states, domain.ExitByFirstUnbond, []int{30}, now)
	if err != nil {
		t.Fatalf("Retention failed: %v", err)
	}
	byWithdraw, err := Retention(c, states, domain.ExitByFirstWithdraw, []int{30}, now)
	if err != nil {
		t.Fatalf("Retention failed: %v", err)
	}

	if byUnbond[0].Exited != 1 {
		t.Errorf("first_unbond Exited = %d, want 1", byUnbond[0].Exited)
	}
	if byWithdraw[0].Exited != 0 {
		t.Errorf("first_withdraw Exited = %d, want 0", byWithdraw[0].Exited)
	}
}

func TestRetention_UnknownDefinitionRejected(t *testing.T) {
	c := &domain.Cohort{Name: "test", WindowStart: 0, WindowEnd: 1, Members: map[string]int64{}}
	if _, err := Retention(c, nil, "whenever", []int{30}, 0); err == nil {
		t.Fatal("expected error for unknown exit definition")
	}
}
