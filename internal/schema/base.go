package schema

import "github.com/roach88/sysa/internal/ir"

// Base slot names shared by every component model.
const (
	SlotType        = "type"
	SlotTeam        = "team"
	SlotSystem      = "system"
	SlotDescription = "description"
	SlotSourceCode  = "sourceCode"
	SlotDeployment  = "deployment"
	SlotLogging     = "logging"
	SlotLinks       = "links"
)

// Base returns the component model every extraction starts from. Rule sets
// extend it with their own slots through Builder.Merge.
//
// sourceCode, deployment and logging hold reference values (see package ref);
// links holds objects with a "value" URL and optional "title"/"description".
func Base() *Schema {
	return new(Builder).
		Single(SlotType, ir.KindString).
		Single(SlotTeam, ir.KindString).
		Single(SlotSystem, ir.KindString).
		Single(SlotDescription, ir.KindString).
		Single(SlotSourceCode, ir.KindObject).
		Multi(SlotDeployment, ir.KindObject).
		Multi(SlotLogging, ir.KindObject).
		Multi(SlotLinks, ir.KindObject).
		MustBuild()
}
