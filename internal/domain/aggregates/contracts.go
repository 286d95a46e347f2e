package aggregates

import "slices"

// Op names one write an aggregate performs. Ops label aggregate metrics and
// fill the Op field of errors returned from writes.
type Op string

const (
	OpRecordInteraction Op = "record_interaction"
	OpAdjustMastery     Op = "adjust_mastery"
	OpResetMastery      Op = "reset_mastery"
	OpApplyDecay        Op = "apply_decay"
)

// Retried reports whether a version conflict on op is retried inside the
// aggregate. Decay conflicts go back to the sweeper, which skips the row.
func (o Op) Retried() bool {
	return o != OpApplyDecay
}

// Contract describes the table an aggregate owns and the writes it exposes.
type Contract struct {
	Name  string
	Table string
	Ops   []Op
	Notes string
}

// Owns reports whether op is one of the contract's writes.
func (c Contract) Owns(op Op) bool {
	return slices.Contains(c.Ops, op)
}

type Aggregate interface {
	Contract() Contract
}
