package models

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestAuthoritativeQuantity_FallsBackToGenerated(t *testing.T) {
	item := NecessityItem{Quantity: dec("9.600"), Status: StatusGenerated}
	if got := item.AuthoritativeQuantity(); !got.Equal(dec("9.600")) {
		t.Fatalf("expected the generated quantity, got %s", got)
	}
}

func TestAuthoritativeQuantity_PrecedenceByStatus(t *testing.T) {
	base := NecessityItem{
		Quantity:            dec("10"),
		AjusteNutricionista: decPtr("11"),
		AjusteCoordenacao:   decPtr("12"),
		AjusteLogistica:     decPtr("13"),
		AjusteConfNutri:     decPtr("14"),
		AjusteConfCoord:     decPtr("15"),
	}

	cases := []struct {
		status NecessityStatus
		want   string
	}{
		{StatusGenerated, "11"},
		{StatusNecNutri, "11"},
		{StatusNecCoord, "12"},
		{StatusNecLog, "13"},
		{StatusConfNutri, "14"},
		{StatusConfCoord, "15"},
		{StatusConfirmed, "15"},
	}
	for _, c := range cases {
		item := base
		item.Status = c.status
		if got := item.AuthoritativeQuantity(); !got.Equal(dec(c.want)) {
			t.Errorf("status %s resolved %s, want %s", c.status, got, c.want)
		}
	}
}

func TestAuthoritativeQuantity_SkipsUnsetStages(t *testing.T) {
	// Coordination stage with no coordination value falls through to the
	// nutritionist value, then to the generated quantity.
	item := NecessityItem{
		Quantity:            dec("10"),
		AjusteNutricionista: decPtr("11"),
		Status:              StatusNecCoord,
	}
	if got := item.AuthoritativeQuantity(); !got.Equal(dec("11")) {
		t.Fatalf("expected fall-through to the nutritionist value, got %s", got)
	}

	item.AjusteNutricionista = nil
	if got := item.AuthoritativeQuantity(); !got.Equal(dec("10")) {
		t.Fatalf("expected fall-through to the generated quantity, got %s", got)
	}

	// Confirmation resolution prefers conf-nutri over the earlier stages.
	conf := NecessityItem{
		Quantity:          dec("10"),
		AjusteCoordenacao: decPtr("12"),
		AjusteConfNutri:   decPtr("14"),
		Status:            StatusConfirmed,
	}
	if got := conf.AuthoritativeQuantity(); !got.Equal(dec("14")) {
		t.Fatalf("expected the conf-nutri value, got %s", got)
	}
}

func TestApplyStageValue_SnapshotsPreviousAuthoritative(t *testing.T) {
	item := NecessityItem{
		Quantity:            dec("10"),
		AjusteNutricionista: decPtr("11"),
		Status:              StatusNecCoord,
	}

	prev := item.AuthoritativeQuantity()
	if !item.ApplyStageValue(StageCoordination, decPtr("20")) {
		t.Fatal("expected the write to be applied")
	}
	if item.AjusteAnterior == nil || !item.AjusteAnterior.Equal(prev) {
		t.Fatalf("ajuste_anterior = %v, want the value in force before the write (%s)", item.AjusteAnterior, prev)
	}
	if item.AjusteCoordenacao == nil || !item.AjusteCoordenacao.Equal(dec("20")) {
		t.Fatalf("stage column not written, got %v", item.AjusteCoordenacao)
	}
	if got := item.AuthoritativeQuantity(); !got.Equal(dec("20")) {
		t.Fatalf("resolved quantity after the write = %s, want 20", got)
	}

	// A second write in the same stage snapshots the value it replaces.
	if !item.ApplyStageValue(StageCoordination, decPtr("25")) {
		t.Fatal("expected the second write to be applied")
	}
	if !item.AjusteAnterior.Equal(dec("20")) {
		t.Fatalf("ajuste_anterior after the second write = %s, want 20", item.AjusteAnterior)
	}
}

func TestApplyStageValue_NilKeepsLastValue(t *testing.T) {
	item := NecessityItem{
		Quantity:            dec("10"),
		AjusteNutricionista: decPtr("11"),
		Status:              StatusNecNutri,
	}
	if item.ApplyStageValue(StageNutritionist, nil) {
		t.Fatal("a nil value must not write anything")
	}
	if !item.AjusteNutricionista.Equal(dec("11")) {
		t.Fatalf("stage column changed, got %s", item.AjusteNutricionista)
	}
	if item.AjusteAnterior != nil {
		t.Fatal("a nil value must not snapshot")
	}
	if got := item.AuthoritativeQuantity(); !got.Equal(dec("11")) {
		t.Fatalf("resolved quantity changed to %s", got)
	}
}

func TestReleaseNeverChangesResolvedQuantity(t *testing.T) {
	// Walking an item through every release transition without saves must
	// keep the resolved quantity stable at each hop, whichever stage wrote
	// the last value.
	releaser := map[NecessityStatus]Role{
		StatusGenerated: RoleNutritionist,
		StatusNecNutri:  RoleNutritionist,
		StatusNecCoord:  RoleCoordination,
		StatusNecLog:    RoleLogistics,
		StatusConfNutri: RoleNutritionist,
		StatusConfCoord: RoleCoordination,
	}

	// Each item starts at the status its last-written stage column left it in.
	items := []NecessityItem{
		{Quantity: dec("10"), Status: StatusGenerated},
		{Quantity: dec("10"), AjusteNutricionista: decPtr("11"), Status: StatusNecNutri},
		{Quantity: dec("10"), AjusteNutricionista: decPtr("11"), AjusteCoordenacao: decPtr("12"), Status: StatusNecCoord},
		{Quantity: dec("10"), AjusteCoordenacao: decPtr("12"), Status: StatusNecCoord},
		{Quantity: dec("10"), AjusteNutricionista: decPtr("11"), AjusteCoordenacao: decPtr("12"), AjusteLogistica: decPtr("13"), Status: StatusNecLog},
		{Quantity: dec("10"), AjusteLogistica: decPtr("13"), Status: StatusNecLog},
	}

	for i := range items {
		item := items[i]
		before := item.AuthoritativeQuantity()
		for item.Status != StatusConfirmed {
			role := releaser[item.Status]
			next, ok := NextStatus(item.Status, role, ActionRelease)
			if !ok {
				t.Fatalf("release from %s by %s unexpectedly rejected", item.Status, role)
			}
			item.Release(next)
			after := item.AuthoritativeQuantity()
			if !after.Equal(before) {
				t.Fatalf("item %d: release to %s changed the resolved quantity from %s to %s", i, next, before, after)
			}
			before = after
		}
	}
}

func TestRelease_CarriesLogisticsValueIntoConfirmation(t *testing.T) {
	item := NecessityItem{
		Quantity:          dec("10"),
		AjusteCoordenacao: decPtr("12"),
		AjusteLogistica:   decPtr("13"),
		Status:            StatusNecLog,
	}
	item.Release(StatusConfNutri)
	if item.AjusteConfNutri == nil || !item.AjusteConfNutri.Equal(dec("13")) {
		t.Fatalf("ajuste_conf_nutri = %v, want the logistics value 13", item.AjusteConfNutri)
	}

	// Without a logistics value the coordination value is the one in force.
	coordOnly := NecessityItem{
		Quantity:          dec("10"),
		AjusteCoordenacao: decPtr("12"),
		Status:            StatusNecLog,
	}
	coordOnly.Release(StatusConfNutri)
	if coordOnly.AjusteConfNutri == nil || !coordOnly.AjusteConfNutri.Equal(dec("12")) {
		t.Fatalf("ajuste_conf_nutri = %v, want the coordination value 12", coordOnly.AjusteConfNutri)
	}

	// No stage value at all leaves the confirmation column untouched.
	plain := NecessityItem{Quantity: dec("10"), Status: StatusNecLog}
	plain.Release(StatusConfNutri)
	if plain.AjusteConfNutri != nil {
		t.Fatalf("ajuste_conf_nutri = %v, want nil", plain.AjusteConfNutri)
	}
}

func TestMissingAveragesError_ListsEveryFault(t *testing.T) {
	err := &MissingAveragesError{Faults: []MissingAverageFault{
		{KitchenName: "Cozinha Norte", PeriodName: "Almoco", MenuTypeLabel: "Refeicao Almoco"},
		{KitchenName: "Cozinha Sul", PeriodName: "Jantar", MenuTypeLabel: "Refeicao Jantar"},
	}}
	msg := err.Error()
	for _, want := range []string{"1. Cozinha Norte", "2. Cozinha Sul", "Almoco", "Jantar"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message missing %q:\n%s", want, msg)
		}
	}
}
