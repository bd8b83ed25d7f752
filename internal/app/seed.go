package app

import (
	"context"
	"fmt"

	"shopfloor/internal/engine"
)

type seedReason struct {
	kind, code, description, category string
}

var seedLines = []struct {
	name     string
	machines []string
}{
	{"Line_A", []string{"Conveyor_1", "Robot_Arm_1"}},
	{"Line_B", []string{"Packer_1"}},
}

var seedOperators = []struct{ name, badge string }{
	{"John_Doe", "OP-001"},
	{"Jane_Smith", "OP-002"},
	{"Mike_Johnson", "OP-003"},
}

var seedReasons = []seedReason{
	{"downtime", "NO_MAT", "No material", "Logistics"},
	{"downtime", "JAM", "Machine jam", "Equipment"},
	{"downtime", "MECH", "Mechanical failure", "Equipment"},
	{"downtime", "BRK", "Scheduled break", "Planned"},
	{"downtime", "CHG", "Changeover", "Planned"},
	{"quality", "DIM", "Dimension out of spec", "Process"},
	{"quality", "SCR", "Surface scratch", "Handling"},
	{"quality", "MAT", "Material defect", "Supplier"},
	{"quality", "REW", "Rework required", "Process"},
}

// Seed fills an empty workspace with a small demo plant. A workspace
// that already has lines is left untouched.
func Seed(ctx context.Context, e engine.Engine, actorID string) error {
	existing, err := e.Repo.ListLines(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, seed := range seedLines {
		line, err := e.CreateLine(ctx, seed.name, "", actorID)
		if err != nil {
			return fmt.Errorf("seed line %s: %w", seed.name, err)
		}
		for _, machineName := range seed.machines {
			if _, err := e.CreateMachine(ctx, line.ID, machineName, "", actorID); err != nil {
				return fmt.Errorf("seed machine %s: %w", machineName, err)
			}
		}
	}
	for _, op := range seedOperators {
		if _, err := e.CreateOperator(ctx, op.name, op.badge, actorID); err != nil {
			return fmt.Errorf("seed operator %s: %w", op.name, err)
		}
	}
	for _, rs := range seedReasons {
		if _, err := e.CreateReason(ctx, rs.kind, rs.code, rs.description, rs.category, actorID); err != nil {
			return fmt.Errorf("seed reason %s: %w", rs.code, err)
		}
	}
	return nil
}
