// Package config loads and validates the pool configuration document
// described by spec §6: executor hierarchy, priority tree or flat rule
// list, and queue capacities.
package config

// Document is the root of a configuration file. The top-level `pool:`
// wrapper is optional — Load accepts either a document with a `pool` key
// or one whose top level directly holds the pool body.
type Document struct {
	Pool Pool `yaml:"pool"`
}

// Pool is the full pool configuration body (spec §6).
type Pool struct {
	Name             string           `yaml:"name"`
	Version          string           `yaml:"version"`
	SyntaxUsed       string           `yaml:"syntax-used"`
	Scheduler        Scheduler        `yaml:"scheduler"`
	Adapters         Adapters         `yaml:"adapters"`
	PriorityStrategy PriorityStrategy `yaml:"priority-strategy"`
	PriorityTree     []PriorityNode   `yaml:"priority-tree"`
}

// Scheduler holds the named/indexed queue declarations. These are display
// and capacity-planning metadata; the actual bounded heaps live per
// executor (spec §4.9), keyed by adapters.executors[].queue_capacity.
type Scheduler struct {
	Queues []Queue `yaml:"queues"`
}

// Queue is one scheduler.queues[] entry.
type Queue struct {
	Name     string `yaml:"name"`
	Index    int    `yaml:"index"`
	Capacity int    `yaml:"capacity"`
}

// Adapters holds the executor hierarchy declarations.
type Adapters struct {
	Executors []Executor `yaml:"executors"`
}

// Executor is one adapters.executors[] entry, the config-level mirror of
// executor.Spec.
type Executor struct {
	ID              string `yaml:"id"`
	Parent          string `yaml:"parent"`
	TPS             int    `yaml:"tps"`
	QueueCapacity   int    `yaml:"queue_capacity"`
	IdentifierField string `yaml:"identifier_field"`
}

// PriorityStrategy is the priority-strategy.type document key. Only FIFO is
// implemented; other values are parsed but rejected at Build time.
type PriorityStrategy struct {
	Type string `yaml:"type"`
}

const (
	StrategyFIFO        = "FIFO"
	StrategyTimeBased   = "TIME_BASED"
	StrategyBucketBased = "BUCKET_BASED"
)

const (
	SyntaxConditionTree = "CONDITION_TREE"
	SyntaxConditionExpr = "CONDITION_EXPR"
)

// SortBy is one priority-tree leaf's secondary-ordering directive.
type SortBy struct {
	Field     string `yaml:"field"`
	Direction string `yaml:"direction"`
}

// PriorityNode is one priority-tree entry. In CONDITION_TREE mode, Condition
// holds a structured map or plain string and NestedLevels may recurse. In
// CONDITION_EXPR mode, ConditionExpr replaces Condition and NestedLevels is
// disallowed (flat rule list only).
type PriorityNode struct {
	Name          string         `yaml:"name"`
	Condition     any            `yaml:"condition"`
	ConditionExpr string         `yaml:"condition-expr"`
	NestedLevels  []PriorityNode `yaml:"nested-levels"`
	SortByField   *SortBy        `yaml:"sort-by"`
	Executor      string         `yaml:"executor"`
}
