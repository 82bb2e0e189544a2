package service

import "github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"

// GateState is the access point's own state, evaluated before any identity
// is looked at.
type GateState int

const (
	// GateInactive denies every scan.
	GateInactive GateState = iota
	// GateUnarmed grants every scan without identity checks.
	GateUnarmed
	// GateArmed runs full identity evaluation.
	GateArmed
)

func (g GateState) String() string {
	switch g {
	case GateInactive:
		return "inactive"
	case GateUnarmed:
		return "unarmed"
	case GateArmed:
		return "armed"
	}
	return "unknown"
}

func EvaluateGate(ap types.AccessPoint) GateState {
	switch {
	case !ap.Active:
		return GateInactive
	case !ap.Armed:
		return GateUnarmed
	default:
		return GateArmed
	}
}
