package interval

import "fmt"

// Relation is the reduced relation alphabet used to decide whether a
// classifier window and a ground-truth event share any frames. The name
// describes the second interval with respect to the first.
type Relation string

const (
	Undefined   Relation = ""
	During      Relation = "DURING"
	DuringInv   Relation = "DURING_INV"
	Overlaps    Relation = "OVERLAPS"
	OverlapsInv Relation = "OVERLAPS_INV"
	Starts      Relation = "STARTS"
	StartsInv   Relation = "STARTS_INV"
	Finishes    Relation = "FINISHES"
	FinishesInv Relation = "FINISHES_INV"
	Equal       Relation = "EQUAL"
)

var reducedTable = map[Signs]Relation{
	{1, -1, -1, 1}:  During,
	{-1, 1, -1, 1}:  DuringInv,
	{-1, -1, -1, 1}: Overlaps,
	{1, 1, -1, 1}:   OverlapsInv,
	{0, -1, -1, 1}:  Starts,
	{0, 1, -1, 1}:   StartsInv,
	{1, 0, -1, 1}:   Finishes,
	{-1, 0, -1, 1}:  FinishesInv,
	{0, 0, -1, 1}:   Equal,
}

var reducedInverse = map[Relation]Relation{
	Undefined:   Undefined,
	During:      DuringInv,
	DuringInv:   During,
	Overlaps:    OverlapsInv,
	OverlapsInv: Overlaps,
	Starts:      StartsInv,
	StartsInv:   Starts,
	Finishes:    FinishesInv,
	FinishesInv: Finishes,
	Equal:       Equal,
}

// Inverse returns the relation obtained by swapping the two intervals.
func (r Relation) Inverse() Relation { return reducedInverse[r] }

// Known reports whether r is a recognized relation.
func (r Relation) Known() bool { return r != Undefined }

// Extended is the numbered relation alphabet consumed by the temporal model.
// It adds strict precedence and adjacency to the reduced set. NoRelation is
// returned for sign patterns outside the table.
type Extended int

const (
	NoRelation Extended = iota
	ExtBefore
	ExtAfter
	ExtMeets
	ExtMetBy
	ExtOverlaps
	ExtOverlapsInv
	ExtDuring
	ExtDuringInv
	ExtStarts
	ExtStartsInv
	ExtFinishes
	ExtFinishesInv
	ExtEqual
)

// MaxExtended is the highest numbered extended relation.
const MaxExtended = ExtEqual

var extendedTable = map[Signs]Extended{
	{-1, -1, -1, -1}: ExtBefore,
	{1, 1, 1, 1}:     ExtAfter,
	{-1, -1, -1, 0}:  ExtMeets,
	{1, 1, 0, 1}:     ExtMetBy,
	{-1, -1, -1, 1}:  ExtOverlaps,
	{1, 1, -1, 1}:    ExtOverlapsInv,
	{1, -1, -1, 1}:   ExtDuring,
	{-1, 1, -1, 1}:   ExtDuringInv,
	{0, -1, -1, 1}:   ExtStarts,
	{0, 1, -1, 1}:    ExtStartsInv,
	{1, 0, -1, 1}:    ExtFinishes,
	{-1, 0, -1, 1}:   ExtFinishesInv,
	{0, 0, -1, 1}:    ExtEqual,
}

var extendedNames = [...]string{
	"none", "before", "after", "meets", "met_by", "overlaps", "overlaps_inv",
	"during", "during_inv", "starts", "starts_inv", "finishes", "finishes_inv", "equal",
}

// Inverse returns the relation obtained by swapping the two intervals.
func (x Extended) Inverse() Extended {
	switch {
	case x <= NoRelation || x > MaxExtended:
		return NoRelation
	case x == ExtEqual:
		return ExtEqual
	case x%2 == 1:
		return x + 1
	}
	return x - 1
}

// Valid reports whether x is NoRelation or one of the numbered relations.
func (x Extended) Valid() bool { return x >= NoRelation && x <= MaxExtended }

func (x Extended) String() string {
	if !x.Valid() {
		return fmt.Sprintf("Extended(%d)", int(x))
	}
	return extendedNames[x]
}

// Relate returns the reduced relation of b with respect to a, or Undefined.
func Relate(a, b Interval) Relation {
	return reducedTable[SignsOf(a, b)]
}

// RelateExtended returns the numbered relation of b with respect to a, or
// NoRelation.
func RelateExtended(a, b Interval) Extended {
	return extendedTable[SignsOf(a, b)]
}

// RelateChecked is Relate with both intervals validated first.
func RelateChecked(a, b Interval) (Relation, error) {
	if err := a.Validate(); err != nil {
		return Undefined, err
	}
	if err := b.Validate(); err != nil {
		return Undefined, err
	}
	return Relate(a, b), nil
}

// RelateExtendedChecked is RelateExtended with both intervals validated first.
func RelateExtendedChecked(a, b Interval) (Extended, error) {
	if err := a.Validate(); err != nil {
		return NoRelation, err
	}
	if err := b.Validate(); err != nil {
		return NoRelation, err
	}
	return RelateExtended(a, b), nil
}
