package scanner

import (
	"testing"

	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/domain"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/ethrpc"
)

func TestDecoder_Bond(t *testing.T) {
	newDelegate := "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	oldDelegate := "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	delegator := "0xcccccccccccccccccccccccccccccccccccccccc"

	lg := ethrpc.Log{
		Address:         "0xmanager",
		Topics:          []string{EventTopic(SigBond), pad32(newDelegate), pad32(oldDelegate), pad32(delegator)},
		Data:            "0x" + word(250) + word(1250),
		BlockNumber:     "0x64",
		TransactionHash: "0xBondTx",
		LogIndex:        "0x3",
	}

	d := NewDecoder(1)
	e, err := d.Decode(lg, 999)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if e.Kind != domain.KindBond {
		t.Errorf("Kind = %s, want bond", e.Kind)
	}
	if e.FromAddr != delegator {
		t.Errorf("FromAddr = %s, want delegator", e.FromAddr)
	}
	if e.ToAddr != newDelegate {
		t.Errorf("ToAddr = %s, want new delegate", e.ToAddr)
	}
	if e.Amount.Int64() != 250 {
		t.Errorf("Amount = %s, want 250", e.Amount)
	}
	if e.Extra["bonded_amount"] != "1250" {
		t.Errorf("bonded_amount = %s, want 1250", e.Extra["bonded_amount"])
	}
	if e.BlockNumber != 100 || e.LogIndex != 3 || e.Timestamp != 999 {
		t.Errorf("position = (%d, %d, %d)", e.BlockNumber, e.LogIndex, e.Timestamp)
	}
	if e.TxHash != "0xbondtx" {
		t.Errorf("TxHash not lowercased: %s", e.TxHash)
	}
}

func TestDecoder_WithdrawRecipientIsDelegator(t *testing.T) {
	delegator := "0xcccccccccccccccccccccccccccccccccccccccc"
	lg := ethrpc.Log{
		Address:         "0xManager",
		Topics:          []string{EventTopic(SigWithdrawStake), pad32(delegator)},
		Data:            "0x" + word(7) + word(900) + word(42),
		BlockNumber:     "0x64",
		TransactionHash: "0xwd",
		LogIndex:        "0x0",
	}

	e, err := NewDecoder(1).Decode(lg, 999)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if e.Kind != domain.KindWithdraw {
		t.Errorf("Kind = %s, want withdraw", e.Kind)
	}
	if !e.IsExit() {
		t.Error("withdraw is not recognized as an exit")
	}
	if e.ToAddr != delegator {
		t.Errorf("ToAddr = %s, want delegator (the trace root)", e.ToAddr)
	}
	if e.Amount.Int64() != 900 {
		t.Errorf("Amount = %s, want 900", e.Amount)
	}
}

func TestDecoder_UnknownTopic(t *testing.T) {
	lg := ethrpc.Log{
		Topics:          []string{EventTopic("Sprayed(address,uint256)")},
		TransactionHash: "0xmystery",
	}
	if _, err := NewDecoder(1).Decode(lg, 0); err == nil {
		t.Fatal("expected error for unknown topic")
	}
}

func TestDecoder_TopicsCoverRegisteredEvents(t *testing.T) {
	d := NewDecoder(1)
	topics := d.Topics()

	want := map[string]bool{
		EventTopic(SigBond):     false,
		EventTopic(SigTransfer): false,
	}
	for _, topic := range topics {
		if _, ok := want[topic]; ok {
			want[topic] = true
		}
	}
	for topic, seen := range want {
		if !seen {
			t.Errorf("topic %s missing from filter set", topic)
		}
	}
}
