package models

import "testing"

func TestNextStatus_ReleaseChain(t *testing.T) {
	cases := []struct {
		current NecessityStatus
		role    Role
		want    NecessityStatus
	}{
		{StatusGenerated, RoleNutritionist, StatusNecCoord},
		{StatusNecNutri, RoleNutritionist, StatusNecCoord},
		{StatusNecCoord, RoleCoordination, StatusNecLog},
		{StatusNecLog, RoleLogistics, StatusConfNutri},
		{StatusConfNutri, RoleNutritionist, StatusConfCoord},
		{StatusConfCoord, RoleCoordination, StatusConfirmed},
	}
	for _, c := range cases {
		got, ok := NextStatus(c.current, c.role, ActionRelease)
		if !ok {
			t.Errorf("release %s by %s: expected allowed", c.current, c.role)
			continue
		}
		if got != c.want {
			t.Errorf("release %s by %s = %s, want %s", c.current, c.role, got, c.want)
		}
	}
}

func TestNextStatus_RejectsOutOfTurnRelease(t *testing.T) {
	cases := []struct {
		current NecessityStatus
		role    Role
	}{
		{StatusGenerated, RoleCoordination},
		{StatusGenerated, RoleLogistics},
		{StatusNecCoord, RoleNutritionist},
		{StatusNecCoord, RoleLogistics},
		{StatusNecLog, RoleNutritionist},
		{StatusNecLog, RoleCoordination},
		{StatusConfNutri, RoleCoordination},
		{StatusConfCoord, RoleNutritionist},
		{StatusConfirmed, RoleNutritionist},
		{StatusConfirmed, RoleCoordination},
		{StatusConfirmed, RoleLogistics},
	}
	for _, c := range cases {
		if _, ok := NextStatus(c.current, c.role, ActionRelease); ok {
			t.Errorf("release %s by %s: expected rejected", c.current, c.role)
		}
	}
}

func TestNextStatus_FirstNutritionistSaveMovesOutOfGenerated(t *testing.T) {
	got, ok := NextStatus(StatusGenerated, RoleNutritionist, ActionSave)
	if !ok || got != StatusNecNutri {
		t.Fatalf("save NEC by nutritionist = (%s, %v), want (NEC NUTRI, true)", got, ok)
	}

	// Every later save keeps the set where it is.
	keeps := []struct {
		current NecessityStatus
		role    Role
	}{
		{StatusNecNutri, RoleNutritionist},
		{StatusNecCoord, RoleCoordination},
		{StatusNecLog, RoleLogistics},
		{StatusConfNutri, RoleNutritionist},
		{StatusConfCoord, RoleCoordination},
	}
	for _, c := range keeps {
		got, ok := NextStatus(c.current, c.role, ActionSave)
		if !ok || got != c.current {
			t.Errorf("save %s by %s = (%s, %v), want it kept in place", c.current, c.role, got, ok)
		}
	}
}

func TestNextStatus_SaveRejectedWhenRoleHasNoStage(t *testing.T) {
	cases := []struct {
		current NecessityStatus
		role    Role
	}{
		{StatusGenerated, RoleCoordination},
		{StatusNecNutri, RoleLogistics},
		{StatusNecCoord, RoleNutritionist},
		{StatusConfirmed, RoleNutritionist},
		{StatusConfirmed, RoleCoordination},
		{StatusConfirmed, RoleLogistics},
	}
	for _, c := range cases {
		if _, ok := NextStatus(c.current, c.role, ActionSave); ok {
			t.Errorf("save %s by %s: expected rejected", c.current, c.role)
		}
	}
}

func TestStageFor_ColumnOwnership(t *testing.T) {
	cases := []struct {
		current NecessityStatus
		role    Role
		want    AdjustmentStage
	}{
		{StatusGenerated, RoleNutritionist, StageNutritionist},
		{StatusNecNutri, RoleNutritionist, StageNutritionist},
		{StatusNecCoord, RoleCoordination, StageCoordination},
		{StatusNecLog, RoleLogistics, StageLogistics},
		{StatusConfNutri, RoleNutritionist, StageConfNutri},
		{StatusConfCoord, RoleCoordination, StageConfCoord},
	}
	for _, c := range cases {
		got, ok := StageFor(c.current, c.role)
		if !ok || got != c.want {
			t.Errorf("StageFor(%s, %s) = (%s, %v), want %s", c.current, c.role, got, ok, c.want)
		}
	}

	if _, ok := StageFor(StatusConfirmed, RoleNutritionist); ok {
		t.Error("confirmed necessities must not accept adjustments")
	}
	if _, ok := StageFor(StatusNecLog, RoleNutritionist); ok {
		t.Error("nutritionist must not write during the logistics stage")
	}
}

func TestCanDeleteItem(t *testing.T) {
	all := []NecessityStatus{
		StatusGenerated, StatusNecNutri, StatusNecCoord, StatusNecLog,
		StatusConfNutri, StatusConfCoord, StatusConfirmed,
	}
	for _, status := range all {
		if CanDeleteItem(status, RoleNutritionist) != (status == StatusGenerated || status == StatusNecNutri || status == StatusConfNutri) {
			t.Errorf("nutritionist delete gate wrong for %s", status)
		}
		if CanDeleteItem(status, RoleLogistics) != (status == StatusNecLog) {
			t.Errorf("logistics delete gate wrong for %s", status)
		}
		if status == StatusConfirmed && CanDeleteItem(status, RoleCoordination) {
			t.Error("confirmed items must be immutable")
		}
	}
	if !CanDeleteItem(StatusNecCoord, RoleCoordination) {
		t.Error("coordination must be able to delete during its own stage")
	}
}

func TestParseNecessityStatus(t *testing.T) {
	if _, err := ParseNecessityStatus("NEC COORD"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseNecessityStatus("bogus"); err == nil {
		t.Fatal("expected an error for an unknown status")
	}
}
