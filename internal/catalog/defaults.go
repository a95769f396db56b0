package catalog

// Default returns a catalog pre-populated with the controllers, commands
// and attribute patterns. It is the baseline every
// compilation starts from before project-specific elements/attributes are
// registered by the scanner/importer.
func Default() *Catalog {
	b := NewBuilder()

	b.RegisterController(Controller{
		Name:        "repeat",
		Trigger:     TriggerIterator,
		Scope:       ScopeOverlay,
		Cardinality: CardinalityOne,
		Placement:   PlacementInPlace,
		Injected: []InjectedVariable{
			{Name: "$index", TypeHint: "number"},
			{Name: "$first", TypeHint: "boolean"},
			{Name: "$last", TypeHint: "boolean"},
			{Name: "$even", TypeHint: "boolean"},
			{Name: "$odd", TypeHint: "boolean"},
			{Name: "$length", TypeHint: "number"},
			{Name: "$middle", TypeHint: "boolean"},
		},
	})
	b.RegisterController(Controller{
		Name:          "if",
		Trigger:       TriggerValue,
		Scope:         ScopeReuse,
		Cardinality:   CardinalityOneOfN,
		Placement:     PlacementInPlace,
		ValidBranches: []string{"else"},
	})
	b.RegisterController(Controller{
		Name:        "else",
		Trigger:     TriggerMarker,
		Scope:       ScopeReuse,
		Cardinality: CardinalityOneOfN,
		Placement:   PlacementInPlace,
	})
	b.RegisterController(Controller{
		Name:        "switch",
		Trigger:     TriggerValue,
		Scope:       ScopeReuse,
		Cardinality: CardinalityOne,
		Placement:   PlacementInPlace,
		ValidBranches: []string{"case", "default-case"},
	})
	b.RegisterController(Controller{
		Name:        "case",
		Trigger:     TriggerBranchOfParent,
		Scope:       ScopeReuse,
		Cardinality: CardinalityZeroMany,
		Placement:   PlacementInPlace,
	})
	b.RegisterController(Controller{
		Name:        "default-case",
		Trigger:     TriggerMarker,
		Scope:       ScopeReuse,
		Cardinality: CardinalityZeroOne,
		Placement:   PlacementInPlace,
	})
	b.RegisterController(Controller{
		Name:        "with",
		Trigger:     TriggerValue,
		Scope:       ScopeOverlay,
		Cardinality: CardinalityOne,
		Placement:   PlacementInPlace,
	})
	b.RegisterController(Controller{
		Name:        "promise",
		Trigger:     TriggerValue,
		Scope:       ScopeOverlay,
		Cardinality: CardinalityOne,
		Placement:   PlacementInPlace,
		ValidBranches: []string{"then", "catch", "pending"},
	})
	b.RegisterController(Controller{
		Name:        "then",
		Trigger:     TriggerBranchOfParent,
		Scope:       ScopeOverlay,
		Cardinality: CardinalityZeroOne,
		Placement:   PlacementInPlace,
		Injected:    []InjectedVariable{{Name: "data", TypeHint: "Awaited<Base>", UserAlias: true}},
	})
	b.RegisterController(Controller{
		Name:        "catch",
		Trigger:     TriggerBranchOfParent,
		Scope:       ScopeOverlay,
		Cardinality: CardinalityZeroOne,
		Placement:   PlacementInPlace,
		Injected:    []InjectedVariable{{Name: "error", TypeHint: "any", UserAlias: true}},
	})
	b.RegisterController(Controller{
		Name:        "pending",
		Trigger:     TriggerMarker,
		Scope:       ScopeReuse,
		Cardinality: CardinalityZeroOne,
		Placement:   PlacementInPlace,
	})
	b.RegisterController(Controller{
		Name:        "portal",
		Trigger:     TriggerValue,
		Scope:       ScopeReuse,
		Cardinality: CardinalityZeroOne,
		Placement:   PlacementTeleported,
	})

	b.RegisterCommand(Command{Name: "bind", Kind: CommandProperty, Mode: ModeDefault})
	b.RegisterCommand(Command{Name: "one-time", Kind: CommandProperty, Mode: ModeOneTime})
	b.RegisterCommand(Command{Name: "to-view", Kind: CommandProperty, Mode: ModeToView})
	b.RegisterCommand(Command{Name: "from-view", Kind: CommandProperty, Mode: ModeFromView})
	b.RegisterCommand(Command{Name: "two-way", Kind: CommandProperty, Mode: ModeTwoWay})
	b.RegisterCommand(Command{Name: "trigger", Kind: CommandListener})
	b.RegisterCommand(Command{Name: "capture", Kind: CommandListener})
	b.RegisterCommand(Command{Name: "for", Kind: CommandIterator})
	b.RegisterCommand(Command{Name: "ref", Kind: CommandRef})
	b.RegisterCommand(Command{Name: "attr", Kind: CommandAttribute})
	b.RegisterCommand(Command{Name: "style", Kind: CommandStyle})
	b.RegisterCommand(Command{Name: "class", Kind: CommandAttribute})
	b.RegisterCommand(Command{Name: "t", Kind: CommandTranslation})

	// MatchAttributePattern's longest-symbol scoring prefers the
	// event-modifier pattern over the generic ones whatever the order here.
	b.RegisterAttributePattern(AttributePattern{Pattern: "@PART:PART", Interpretation: InterpretEventModifier, InjectCommand: "trigger"})
	b.RegisterAttributePattern(AttributePattern{Pattern: "PART.ref", Interpretation: InterpretFixedCommand, FixedCommand: "ref", FixedMode: ModeDefault})
	b.RegisterAttributePattern(AttributePattern{Pattern: "PART.PART", Interpretation: InterpretTargetCommand})
	b.RegisterAttributePattern(AttributePattern{Pattern: ":PART", Interpretation: InterpretFixedCommand, FixedCommand: "bind", FixedMode: ModeToView})
	b.RegisterAttributePattern(AttributePattern{Pattern: "@PART", Interpretation: InterpretFixedCommand, FixedCommand: "trigger"})

	return b.Build()
}
