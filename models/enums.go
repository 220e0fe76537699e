package models

import "fmt"

// NecessityStatus is the workflow position of a generated necessity as it
// moves between nutritionist, coordination and logistics. The labels are the
// ones the business process uses on screen and in the database.
type NecessityStatus string

const (
	StatusGenerated NecessityStatus = "NEC"
	StatusNecNutri  NecessityStatus = "NEC NUTRI"
	StatusNecCoord  NecessityStatus = "NEC COORD"
	StatusNecLog    NecessityStatus = "NEC LOG"
	StatusConfNutri NecessityStatus = "CONF NUTRI"
	StatusConfCoord NecessityStatus = "CONF COORD"
	StatusConfirmed NecessityStatus = "CONF"
)

func ParseNecessityStatus(s string) (NecessityStatus, error) {
	switch NecessityStatus(s) {
	case StatusGenerated, StatusNecNutri, StatusNecCoord, StatusNecLog,
		StatusConfNutri, StatusConfCoord, StatusConfirmed:
		return NecessityStatus(s), nil
	}
	return "", fmt.Errorf("invalid necessity status %q", s)
}

type Role string

const (
	RoleNutritionist Role = "nutricionista"
	RoleCoordination Role = "coordenacao"
	RoleLogistics    Role = "logistica"
)

type AdjustmentAction string

const (
	ActionSave    AdjustmentAction = "save"
	ActionRelease AdjustmentAction = "release"
)

// AdjustmentStage identifies which quantity column a role writes in a given
// status. Resolution precedence lives in NecessityItem.AuthoritativeQuantity.
type AdjustmentStage string

const (
	StageNutritionist AdjustmentStage = "ajuste_nutricionista"
	StageCoordination AdjustmentStage = "ajuste_coordenacao"
	StageLogistics    AdjustmentStage = "ajuste_logistica"
	StageConfNutri    AdjustmentStage = "ajuste_conf_nutri"
	StageConfCoord    AdjustmentStage = "ajuste_conf_coord"
)

// NextStatus is the single transition table for the adjustment workflow.
// Every status change anywhere in the codebase goes through it; returns
// false for any (status, role, action) the process does not allow.
func NextStatus(current NecessityStatus, role Role, action AdjustmentAction) (NecessityStatus, bool) {
	switch action {
	case ActionSave:
		// Saving keeps the set in place, except the very first nutritionist
		// save which moves NEC to NEC NUTRI.
		stage, ok := StageFor(current, role)
		if !ok {
			return "", false
		}
		if current == StatusGenerated && stage == StageNutritionist {
			return StatusNecNutri, true
		}
		return current, true

	case ActionRelease:
		switch {
		case (current == StatusGenerated || current == StatusNecNutri) && role == RoleNutritionist:
			return StatusNecCoord, true
		case current == StatusNecCoord && role == RoleCoordination:
			return StatusNecLog, true
		case current == StatusNecLog && role == RoleLogistics:
			return StatusConfNutri, true
		case current == StatusConfNutri && role == RoleNutritionist:
			return StatusConfCoord, true
		case current == StatusConfCoord && role == RoleCoordination:
			return StatusConfirmed, true
		}
	}
	return "", false
}

// StageFor says which adjustment column a role may write while the set is in
// the given status. No stage means the role has no pen at this point.
func StageFor(current NecessityStatus, role Role) (AdjustmentStage, bool) {
	switch role {
	case RoleNutritionist:
		switch current {
		case StatusGenerated, StatusNecNutri:
			return StageNutritionist, true
		case StatusConfNutri:
			return StageConfNutri, true
		}
	case RoleCoordination:
		switch current {
		case StatusNecCoord:
			return StageCoordination, true
		case StatusConfCoord:
			return StageConfCoord, true
		}
	case RoleLogistics:
		if current == StatusNecLog {
			return StageLogistics, true
		}
	}
	return "", false
}

// CanDeleteItem gates the hard delete of a single item on role and status.
// Confirmed items are immutable for everyone.
func CanDeleteItem(current NecessityStatus, role Role) bool {
	if current == StatusConfirmed {
		return false
	}
	switch role {
	case RoleNutritionist:
		return current == StatusGenerated || current == StatusNecNutri || current == StatusConfNutri
	case RoleCoordination:
		return current == StatusGenerated || current == StatusNecNutri ||
			current == StatusNecCoord || current == StatusConfNutri || current == StatusConfCoord
	case RoleLogistics:
		return current == StatusNecLog
	}
	return false
}
