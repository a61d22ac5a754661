package scanner

import (
	"fmt"
	"strings"

	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/domain"
	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/ethrpc"
)

// Canonical event signatures of the staking protocol and the staked token.
const (
	SigBond            = "Bond(address,address,address,uint256,uint256)"
	SigUnbond          = "Unbond(address,address,uint256,uint256,uint256)"
	SigRebond          = "Rebond(address,address,uint256,uint256)"
	SigWithdrawStake   = "WithdrawStake(address,uint256,uint256,uint256)"
	SigEarningsClaimed = "EarningsClaimed(address,address,uint256,uint256,uint256,uint256)"
	SigTransfer        = "Transfer(address,address,uint256)"

	// Token bridge gateway legs for the cross-chain correlator.
	SigBridgeWithdrawal = "WithdrawalInitiated(address,address,address,uint256,uint256,uint256)"
	SigBridgeDeposit    = "DepositFinalized(address,address,address,uint256)"
)

// decodeFunc turns one raw log into a domain event. The block timestamp is
// resolved by the scanner before decoding.
type decodeFunc func(lg ethrpc.Log, chainID, ts int64) (*domain.Event, error)

// Decoder maps topic0 hashes onto event decoders.
type Decoder struct {
	chainID  int64
	handlers map[string]decodeFunc
	topics   []string
}

// NewDecoder creates a decoder with the default protocol event set
// registered.
func NewDecoder(chainID int64) *Decoder {
	d := &Decoder{
		chainID:  chainID,
		handlers: make(map[string]decodeFunc),
	}
	d.Register(SigBond, decodeBond)
	d.Register(SigUnbond, decodeUnbond)
	d.Register(SigRebond, decodeRebond)
	d.Register(SigWithdrawStake, decodeWithdrawStake)
	d.Register(SigEarningsClaimed, decodeEarningsClaimed)
	d.Register(SigTransfer, decodeTransfer)
	d.Register(SigBridgeWithdrawal, decodeBridgeWithdrawal)
	d.Register(SigBridgeDeposit, decodeBridgeDeposit)
	return d
}

// Register adds a decoder for a canonical event signature.
func (d *Decoder) Register(signature string, fn decodeFunc) {
	topic := strings.ToLower(EventTopic(signature))
	if _, ok := d.handlers[topic]; !ok {
		d.topics = append(d.topics, topic)
	}
	d.handlers[topic] = fn
}

// Topics returns the registered topic0 hashes for the eth_getLogs filter.
func (d *Decoder) Topics() []string {
	out := make([]string, len(d.topics))
	copy(out, d.topics)
	return out
}

// Decode turns a raw log into a domain event. Unknown topics and malformed
// logs return an error; the scanner skips those with a recorded warning
// instead of aborting the range.
func (d *Decoder) Decode(lg ethrpc.Log, ts int64) (*domain.Event, error) {
	if len(lg.Topics) == 0 {
		return nil, fmt.Errorf("log %s has no topics", lg.TransactionHash)
	}
	fn, ok := d.handlers[strings.ToLower(lg.Topics[0])]
	if !ok {
		return nil, fmt.Errorf("unknown topic %s", lg.Topics[0])
	}
	return fn(lg, d.chainID, ts)
}

// base fills the fields common to every decoded event.
func base(lg ethrpc.Log, chainID, ts int64, kind domain.EventKind) (*domain.Event, error) {
	blockNumber, err := ethrpc.ParseQuantity(lg.BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("parse block number: %w", err)
	}
	logIndex, err := ethrpc.ParseQuantity(lg.LogIndex)
	if err != nil {
		return nil, fmt.Errorf("parse log index: %w", err)
	}
	return &domain.Event{
		Kind:        kind,
		ChainID:     chainID,
		BlockNumber: blockNumber,
		TxHash:      strings.ToLower(lg.TransactionHash),
		LogIndex:    int(logIndex),
		Timestamp:   ts,
	}, nil
}

// Bond(newDelegate idx, oldDelegate idx, delegator idx, additionalAmount, bondedAmount)
func decodeBond(lg ethrpc.Log, chainID, ts int64) (*domain.Event, error) {
	if len(lg.Topics) < 4 {
		return nil, fmt.Errorf("bond log has %d topics", len(lg.Topics))
	}
	e, err := base(lg, chainID, ts, domain.KindBond)
	if err != nil {
		return nil, err
	}
	newDelegate, err := ethrpc.TopicAddress(lg.Topics[1])
	if err != nil {
		return nil, err
	}
	oldDelegate, err := ethrpc.TopicAddress(lg.Topics[2])
	if err != nil {
		return nil, err
	}
	delegator, err := ethrpc.TopicAddress(lg.Topics[3])
	if err != nil {
		return nil, err
	}
	additional, err := ethrpc.DataWord(lg.Data, 0)
	if err != nil {
		return nil, err
	}
	bonded, err := ethrpc.DataWord(lg.Data, 1)
	if err != nil {
		return nil, err
	}
	e.FromAddr = delegator
	e.ToAddr = newDelegate
	e.Amount = additional
	e.Extra = map[string]string{
		"old_delegate":  oldDelegate,
		"bonded_amount": bonded.String(),
	}
	return e, nil
}

// Unbond(delegate idx, delegator idx, unbondingLockId, amount, withdrawRound)
func decodeUnbond(lg ethrpc.Log, chainID, ts int64) (*domain.Event, error) {
	if len(lg.Topics) < 3 {
		return nil, fmt.Errorf("unbond log has %d topics", len(lg.Topics))
	}
	e, err := base(lg, chainID, ts, domain.KindUnbond)
	if err != nil {
		return nil, err
	}
	delegate, err := ethrpc.TopicAddress(lg.Topics[1])
	if err != nil {
		return nil, err
	}
	delegator, err := ethrpc.TopicAddress(lg.Topics[2])
	if err != nil {
		return nil, err
	}
	lockID, err := ethrpc.DataWord(lg.Data, 0)
	if err != nil {
		return nil, err
	}
	amount, err := ethrpc.DataWord(lg.Data, 1)
	if err != nil {
		return nil, err
	}
	withdrawRound, err := ethrpc.DataWord(lg.Data, 2)
	if err != nil {
		return nil, err
	}
	e.FromAddr = delegator
	e.ToAddr = delegate
	e.Amount = amount
	e.Extra = map[string]string{
		"unbonding_lock_id": lockID.String(),
		"withdraw_round":    withdrawRound.String(),
	}
	return e, nil
}

// Rebond(delegate idx, delegator idx, unbondingLockId, amount)
func decodeRebond(lg ethrpc.Log, chainID, ts int64) (*domain.Event, error) {
	if len(lg.Topics) < 3 {
		return nil, fmt.Errorf("rebond log has %d topics", len(lg.Topics))
	}
	e, err := base(lg, chainID, ts, domain.KindRebond)
	if err != nil {
		return nil, err
	}
	delegate, err := ethrpc.TopicAddress(lg.Topics[1])
	if err != nil {
		return nil, err
	}
	delegator, err := ethrpc.TopicAddress(lg.Topics[2])
	if err != nil {
		return nil, err
	}
	lockID, err := ethrpc.DataWord(lg.Data, 0)
	if err != nil {
		return nil, err
	}
	amount, err := ethrpc.DataWord(lg.Data, 1)
	if err != nil {
		return nil, err
	}
	e.FromAddr = delegator
	e.ToAddr = delegate
	e.Amount = amount
	e.Extra = map[string]string{"unbonding_lock_id": lockID.String()}
	return e, nil
}

// WithdrawStake(delegator idx, unbondingLockId, amount, withdrawRound)
// The delegator is the exit recipient the flow tracer starts from.
func decodeWithdrawStake(lg ethrpc.Log, chainID, ts int64) (*domain.Event, error) {
	if len(lg.Topics) < 2 {
		return nil, fmt.Errorf("withdraw log has %d topics", len(lg.Topics))
	}
	e, err := base(lg, chainID, ts, domain.KindWithdraw)
	if err != nil {
		return nil, err
	}
	delegator, err := ethrpc.TopicAddress(lg.Topics[1])
	if err != nil {
		return nil, err
	}
	lockID, err := ethrpc.DataWord(lg.Data, 0)
	if err != nil {
		return nil, err
	}
	amount, err := ethrpc.DataWord(lg.Data, 1)
	if err != nil {
		return nil, err
	}
	withdrawRound, err := ethrpc.DataWord(lg.Data, 2)
	if err != nil {
		return nil, err
	}
	e.FromAddr = strings.ToLower(lg.Address)
	e.ToAddr = delegator
	e.Amount = amount
	e.Extra = map[string]string{
		"unbonding_lock_id": lockID.String(),
		"withdraw_round":    withdrawRound.String(),
	}
	return e, nil
}

// EarningsClaimed(delegate idx, delegator idx, rewards, fees, startRound, endRound)
func decodeEarningsClaimed(lg ethrpc.Log, chainID, ts int64) (*domain.Event, error) {
	if len(lg.Topics) < 3 {
		return nil, fmt.Errorf("claim log has %d topics", len(lg.Topics))
	}
	e, err := base(lg, chainID, ts, domain.KindClaim)
	if err != nil {
		return nil, err
	}
	delegate, err := ethrpc.TopicAddress(lg.Topics[1])
	if err != nil {
		return nil, err
	}
	delegator, err := ethrpc.TopicAddress(lg.Topics[2])
	if err != nil {
		return nil, err
	}
	rewards, err := ethrpc.DataWord(lg.Data, 0)
	if err != nil {
		return nil, err
	}
	fees, err := ethrpc.DataWord(lg.Data, 1)
	if err != nil {
		return nil, err
	}
	e.FromAddr = delegate
	e.ToAddr = delegator
	e.Amount = rewards
	e.Extra = map[string]string{"fees": fees.String()}
	return e, nil
}

// Transfer(from idx, to idx, value)
func decodeTransfer(lg ethrpc.Log, chainID, ts int64) (*domain.Event, error) {
	if len(lg.Topics) < 3 {
		return nil, fmt.Errorf("transfer log has %d topics", len(lg.Topics))
	}
	e, err := base(lg, chainID, ts, domain.KindTransfer)
	if err != nil {
		return nil, err
	}
	from, err := ethrpc.TopicAddress(lg.Topics[1])
	if err != nil {
		return nil, err
	}
	to, err := ethrpc.TopicAddress(lg.Topics[2])
	if err != nil {
		return nil, err
	}
	amount, err := ethrpc.DataWord(lg.Data, 0)
	if err != nil {
		return nil, err
	}
	e.FromAddr = from
	e.ToAddr = to
	e.Amount = amount
	return e, nil
}

// WithdrawalInitiated(l1Token idx, from idx, to idx, l2ToL1Id, exitNum, amount)
func decodeBridgeWithdrawal(lg ethrpc.Log, chainID, ts int64) (*domain.Event, error) {
	if len(lg.Topics) < 4 {
		return nil, fmt.Errorf("bridge withdrawal log has %d topics", len(lg.Topics))
	}
	e, err := base(lg, chainID, ts, domain.KindBridgeOut)
	if err != nil {
		return nil, err
	}
	from, err := ethrpc.TopicAddress(lg.Topics[2])
	if err != nil {
		return nil, err
	}
	to, err := ethrpc.TopicAddress(lg.Topics[3])
	if err != nil {
		return nil, err
	}
	amount, err := ethrpc.DataWord(lg.Data, 2)
	if err != nil {
		return nil, err
	}
	e.FromAddr = from
	e.ToAddr = to
	e.Amount = amount
	return e, nil
}

// DepositFinalized(l1Token idx, from idx, to idx, amount)
func decodeBridgeDeposit(lg ethrpc.Log, chainID, ts int64) (*domain.Event, error) {
	if len(lg.Topics) < 4 {
		return nil, fmt.Errorf("bridge deposit log has %d topics", len(lg.Topics))
	}
	e, err := base(lg, chainID, ts, domain.KindBridgeReceipt)
	if err != nil {
		return nil, err
	}
	from, err := ethrpc.TopicAddress(lg.Topics[2])
	if err != nil {
		return nil, err
	}
	to, err := ethrpc.TopicAddress(lg.Topics[3])
	if err != nil {
		return nil, err
	}
	amount, err := ethrpc.DataWord(lg.Data, 0)
	if err != nil {
		return nil, err
	}
	e.FromAddr = from
	e.ToAddr = to
	e.Amount = amount
	return e, nil
}
