// Package ast defines the typed syntax tree produced by the Tenor parser
// (spec §4.1). Every construct kind, step kind, target kind, and predicate
// node kind is a closed, tagged variant — spec §9 calls for exhaustive
// pattern matching over these sets rather than runtime reflection.
package ast

// Pos is a 1-based source position, carried by every node for diagnostic
// reporting (spec §4.1: "every error carries {file, line, column, ...}").
type Pos struct {
	File   string
	Line   int
	Column int
}

// ConstructKind is the closed set of top-level construct kinds (spec §3).
type ConstructKind string

const (
	KindFact     ConstructKind = "fact"
	KindEntity   ConstructKind = "entity"
	KindPersona  ConstructKind = "persona"
	KindRule     ConstructKind = "rule"
	KindOperation ConstructKind = "operation"
	KindFlow     ConstructKind = "flow"
	KindType     ConstructKind = "type"
	KindSystem   ConstructKind = "system"
)

// Construct is implemented by every top-level declaration.
type Construct interface {
	ID() string
	Kind() ConstructKind
	Position() Pos
}

// File is one parsed .tenor source file: its imports plus the constructs
// it declares, before cross-file bundling (Pass 1).
type File struct {
	Path       string
	Imports    []Import
	Constructs []Construct
}

type Import struct {
	Path string
	Pos  Pos
}

// ---- Types ----------------------------------------------------------

// TypeExpr is the closed set of type expression nodes (spec §3).
type TypeExpr interface {
	typeExpr()
}

type BoolType struct{}

type IntType struct {
	Min, Max *int64 // nil = unbounded
}

type DecimalType struct {
	Precision, Scale int
}

type MoneyType struct {
	Currency string // "" = any currency accepted at the fact boundary
}

type TextType struct {
	MaxLength *int
}

type DateType struct{}

type DateTimeType struct{}

type DurationUnit string

const (
	DurationSeconds DurationUnit = "seconds"
	DurationMinutes DurationUnit = "minutes"
	DurationHours   DurationUnit = "hours"
	DurationDays    DurationUnit = "days"
)

type DurationType struct {
	Unit DurationUnit
}

type EnumType struct {
	Values []string
}

type RecordType struct {
	Fields []RecordField
}

type RecordField struct {
	Name string
	Type TypeExpr
}

type ListType struct {
	Elem      TypeExpr
	MaxLength *int
}

type TaggedUnionType struct {
	TagField string
	Variants []TaggedVariant
}

type TaggedVariant struct {
	Tag    string
	Record RecordType
}

// NamedType is a reference to a TypeDecl by name, resolved structurally in
// Pass 3 (spec §4.4).
type NamedType struct {
	Name string
	Pos  Pos
}

func (BoolType) typeExpr()        {}
func (IntType) typeExpr()         {}
func (DecimalType) typeExpr()     {}
func (MoneyType) typeExpr()       {}
func (TextType) typeExpr()        {}
func (DateType) typeExpr()        {}
func (DateTimeType) typeExpr()    {}
func (DurationType) typeExpr()    {}
func (EnumType) typeExpr()        {}
func (RecordType) typeExpr()      {}
func (ListType) typeExpr()        {}
func (TaggedUnionType) typeExpr() {}
func (NamedType) typeExpr()       {}

// ---- Expressions (predicates) ----------------------------------------

// Expr is the closed predicate-expression grammar (spec §4.1: "the language
// has no user-definable functions").
type Expr interface {
	exprNode()
	Position() Pos
}

type BoolLit struct {
	Value bool
	Pos   Pos
}

type IntLit struct {
	Value int64
	Pos   Pos
}

// DecimalLit preserves the exact source string until type-checking
// resolves its declared type (spec §4.1).
type DecimalLit struct {
	Raw string
	Pos Pos
}

type StringLit struct {
	Value string
	Pos   Pos
}

type FactRef struct {
	FactID string
	Pos    Pos
}

type VerdictPresent struct {
	VerdictType string
	Pos         Pos
}

type BinOp string

const (
	OpEq  BinOp = "=="
	OpNeq BinOp = "!="
	OpLt  BinOp = "<"
	OpLte BinOp = "<="
	OpGt  BinOp = ">"
	OpGte BinOp = ">="
	OpAnd BinOp = "and"
	OpOr  BinOp = "or"
	OpAdd BinOp = "+"
	OpMul BinOp = "*"
)

type BinaryExpr struct {
	Op    BinOp
	Left  Expr
	Right Expr
	Pos   Pos
}

type NotExpr struct {
	Operand Expr
	Pos     Pos
}

type QuantKind string

const (
	QuantForall QuantKind = "forall"
	QuantExists QuantKind = "exists"
)

// QuantifierExpr binds Var over the list-typed fact ListFact and evaluates
// Body for each element (spec §4.9: bounded quantification only).
type QuantifierExpr struct {
	Kind     QuantKind
	Var      string
	ListFact string
	Body     Expr
	Pos      Pos
}

func (e BoolLit) Position() Pos        { return e.Pos }
func (e IntLit) Position() Pos         { return e.Pos }
func (e DecimalLit) Position() Pos     { return e.Pos }
func (e StringLit) Position() Pos      { return e.Pos }
func (e FactRef) Position() Pos        { return e.Pos }
func (e VerdictPresent) Position() Pos { return e.Pos }
func (e BinaryExpr) Position() Pos     { return e.Pos }
func (e NotExpr) Position() Pos        { return e.Pos }
func (e QuantifierExpr) Position() Pos { return e.Pos }

func (BoolLit) exprNode()        {}
func (IntLit) exprNode()         {}
func (DecimalLit) exprNode()     {}
func (StringLit) exprNode()      {}
func (FactRef) exprNode()        {}
func (VerdictPresent) exprNode() {}
func (BinaryExpr) exprNode()     {}
func (NotExpr) exprNode()        {}
func (QuantifierExpr) exprNode() {}

// ---- Top-level constructs ---------------------------------------------

type FactDecl struct {
	Id       string
	Type     TypeExpr
	Source   string
	Default  Expr
	EnumVals []string
	Pos      Pos
}

func (f *FactDecl) ID() string          { return f.Id }
func (f *FactDecl) Kind() ConstructKind { return KindFact }
func (f *FactDecl) Position() Pos       { return f.Pos }

type EntityTransition struct {
	From, To string
}

type EntityDecl struct {
	Id          string
	States      []string
	Initial     string
	Transitions []EntityTransition
	Pos         Pos
}

func (e *EntityDecl) ID() string          { return e.Id }
func (e *EntityDecl) Kind() ConstructKind { return KindEntity }
func (e *EntityDecl) Position() Pos       { return e.Pos }

type PersonaDecl struct {
	Id  string
	Pos Pos
}

func (p *PersonaDecl) ID() string          { return p.Id }
func (p *PersonaDecl) Kind() ConstructKind { return KindPersona }
func (p *PersonaDecl) Position() Pos       { return p.Pos }

type RuleDecl struct {
	Id            string
	Stratum       int
	Condition     Expr
	VerdictType   string
	PayloadExpr   Expr
	PayloadTypeID string
	Pos           Pos
}

func (r *RuleDecl) ID() string          { return r.Id }
func (r *RuleDecl) Kind() ConstructKind { return KindRule }
func (r *RuleDecl) Position() Pos       { return r.Pos }

// EffectSpec describes one entity-state transition an operation performs,
// optionally scoped to a subset of the operation's declared outcomes (spec
// §3: "effect-to-outcome mapping, mandatory when outcomes > 1").
type EffectSpec struct {
	EntityID string
	From, To string
	Outcomes []string // empty = applies under the single outcome
}

type OnFailureKind string

const (
	OnFailureTerminate  OnFailureKind = "terminate"
	OnFailureEscalate   OnFailureKind = "escalate"
	OnFailureCompensate OnFailureKind = "compensate"
)

type OnFailure struct {
	Kind          OnFailureKind
	Terminal      string   // OnFailureTerminate
	ToPersona     string   // OnFailureEscalate
	Next          string   // OnFailureEscalate: step id or "" for none
	Compensation  []string // OnFailureCompensate: step ids to run in reverse
}

type OperationDecl struct {
	Id              string
	AllowedPersonas []string
	Precondition    Expr
	Effects         []EffectSpec
	Outcomes        []string
	ErrorContract   []string
	Pos             Pos
}

func (o *OperationDecl) ID() string          { return o.Id }
func (o *OperationDecl) Kind() ConstructKind { return KindOperation }
func (o *OperationDecl) Position() Pos       { return o.Pos }

// StepTarget is either a step id or a terminal outcome (spec §3: "A target
// is either a step id or a Terminal{outcome}").
type StepTarget struct {
	StepID   string
	Terminal string // non-empty iff this target is a Terminal
}

func (t StepTarget) IsTerminal() bool { return t.Terminal != "" }

type StepKind string

const (
	StepOperation StepKind = "operation"
	StepBranch    StepKind = "branch"
	StepHandoff   StepKind = "handoff"
	StepSubFlow   StepKind = "subflow"
	StepParallel  StepKind = "parallel"
)

// Step is the closed flow-step variant set (spec §3).
type Step interface {
	StepID() string
	StepKind() StepKind
}

type OperationStep struct {
	Id        string
	Op        string
	Persona   string
	Outcomes  map[string]StepTarget
	OnFailure OnFailure
}

func (s *OperationStep) StepID() string     { return s.Id }
func (s *OperationStep) StepKind() StepKind { return StepOperation }

type BranchStep struct {
	Id        string
	Condition Expr
	IfTrue    StepTarget
	IfFalse   StepTarget
}

func (s *BranchStep) StepID() string     { return s.Id }
func (s *BranchStep) StepKind() StepKind { return StepBranch }

type HandoffStep struct {
	Id         string
	FromPersona string
	ToPersona  string
	Next       string
}

func (s *HandoffStep) StepID() string     { return s.Id }
func (s *HandoffStep) StepKind() StepKind { return StepHandoff }

type SubFlowStep struct {
	Id        string
	Flow      string
	OnSuccess StepTarget
	OnFailure OnFailure
}

func (s *SubFlowStep) StepID() string     { return s.Id }
func (s *SubFlowStep) StepKind() StepKind { return StepSubFlow }

type ParallelBranch struct {
	Id    string
	Steps []string // step ids belonging to this branch
}

type ParallelJoin struct {
	OnAllSuccess StepTarget
	OnAnyFailure StepTarget
}

type ParallelStep struct {
	Id       string
	Branches []ParallelBranch
	Join     ParallelJoin
}

func (s *ParallelStep) StepID() string     { return s.Id }
func (s *ParallelStep) StepKind() StepKind { return StepParallel }

type FlowDecl struct {
	Id                string
	InitiatingPersona string
	Entry             string
	Steps             map[string]Step
	StepOrder         []string // declaration order, for deterministic iteration
	Pos               Pos
}

func (f *FlowDecl) ID() string          { return f.Id }
func (f *FlowDecl) Kind() ConstructKind { return KindFlow }
func (f *FlowDecl) Position() Pos       { return f.Pos }

type TypeDecl struct {
	Id   string
	Body TypeExpr
	Pos  Pos
}

func (t *TypeDecl) ID() string          { return t.Id }
func (t *TypeDecl) Kind() ConstructKind { return KindType }
func (t *TypeDecl) Position() Pos       { return t.Pos }

type SystemTrigger struct {
	SourceContract, SourceFlow string
	TargetContract, TargetFlow string
}

type SystemDecl struct {
	Id              string
	Members         []string
	SharedPersonas  []string
	Triggers        []SystemTrigger
	SharedEntities  []string
	Pos             Pos
}

func (s *SystemDecl) ID() string          { return s.Id }
func (s *SystemDecl) Kind() ConstructKind { return KindSystem }
func (s *SystemDecl) Position() Pos       { return s.Pos }
