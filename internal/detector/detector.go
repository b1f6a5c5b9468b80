// Package detector classifies the relationship between a supplier's remote
// snapshot and the local inventory. Everything here is pure: no I/O and no
// mutation of its inputs.
package detector

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/voyagedesk/inventory-sync/internal/inventory"
)

// Action is the outcome of classifying one remote item
type Action string

const (
	// ActionAdd means the item is new and can be written through
	ActionAdd Action = "add"
	// ActionUpdate means only free attributes changed and the item can be written through
	ActionUpdate Action = "update"
	// ActionNoop means local and remote are identical
	ActionNoop Action = "noop"
	// ActionConflict means the difference must be resolved before writing
	ActionConflict Action = "conflict"
	// ActionInvalid means a new item is malformed and cannot be stored
	ActionInvalid Action = "invalid"
)

// Result is the classification of one remote item
type Result struct {
	ItemID       string
	Action       Action
	ConflictType inventory.ConflictType
	Reason       string
}

// IsClean reports whether the item can be written through without review
func (r Result) IsClean() bool {
	return r.Action == ActionAdd || r.Action == ActionUpdate
}

// Input is everything Classify looks at for one item
type Input struct {
	// Local is nil when the item does not exist locally
	Local  *inventory.Item
	Remote inventory.RemoteItem
	// Duplicate is set when an earlier entry of the same snapshot has the same id
	Duplicate bool
}

// Classify returns exactly one outcome for the item. When several conflict
// types apply, the highest precedence wins: structure_mismatch, duplicate,
// price_mismatch, availability_mismatch.
func Classify(in Input, policy inventory.ConflictPolicy) Result {
	res := Result{ItemID: in.Remote.ID}

	remoteProblems := shapeProblems(in.Remote.Fields, policy.RequiredFields)

	if in.Local == nil {
		switch {
		case len(remoteProblems) > 0:
			res.Action = ActionInvalid
			res.Reason = strings.Join(remoteProblems, "; ")
		case in.Duplicate:
			res.Action = ActionConflict
			res.ConflictType = inventory.ConflictDuplicate
			res.Reason = "snapshot contains the item more than once"
		default:
			res.Action = ActionAdd
		}
		return res
	}

	local := in.Local.Fields
	structural := append(remoteProblems, typeChanges(local, in.Remote.Fields)...)
	if len(structural) > 0 {
		res.Action = ActionConflict
		res.ConflictType = inventory.ConflictStructureMismatch
		res.Reason = strings.Join(structural, "; ")
		return res
	}

	if in.Duplicate {
		res.Action = ActionConflict
		res.ConflictType = inventory.ConflictDuplicate
		res.Reason = "snapshot contains the item more than once"
		return res
	}

	if lp, rp, differs := priceDiffers(local, in.Remote.Fields, policy.PriceTolerance); differs {
		res.Action = ActionConflict
		res.ConflictType = inventory.ConflictPriceMismatch
		res.Reason = fmt.Sprintf("price %v -> %v", lp, rp)
		return res
	}

	if !valuesEqual(local[inventory.FieldAvailability], in.Remote.Fields[inventory.FieldAvailability]) {
		res.Action = ActionConflict
		res.ConflictType = inventory.ConflictAvailabilityMismatch
		res.Reason = fmt.Sprintf("availability %v -> %v",
			local[inventory.FieldAvailability], in.Remote.Fields[inventory.FieldAvailability])
		return res
	}

	if attributesEqual(local, in.Remote.Fields, policy.PriceTolerance) {
		res.Action = ActionNoop
	} else {
		res.Action = ActionUpdate
	}
	return res
}

// MarkDuplicates flags every occurrence of an id after its first one
func MarkDuplicates(items []inventory.RemoteItem) []bool {
	seen := make(map[string]struct{}, len(items))
	out := make([]bool, len(items))
	for i, item := range items {
		if _, ok := seen[item.ID]; ok {
			out[i] = true
			continue
		}
		seen[item.ID] = struct{}{}
	}
	return out
}

// ClassifySnapshot classifies a whole snapshot against the local items,
// keyed by item id. Results are in snapshot order.
func ClassifySnapshot(
	local map[string]*inventory.Item,
	remote []inventory.RemoteItem,
	policy inventory.ConflictPolicy,
) []Result {
	dups := MarkDuplicates(remote)
	out := make([]Result, len(remote))
	for i, item := range remote {
		out[i] = Classify(Input{Local: local[item.ID], Remote: item, Duplicate: dups[i]}, policy)
	}
	return out
}

// MissingLocally returns the ids of local items absent from the snapshot, sorted
func MissingLocally(local map[string]*inventory.Item, remote []inventory.RemoteItem) []string {
	present := make(map[string]struct{}, len(remote))
	for _, item := range remote {
		present[item.ID] = struct{}{}
	}
	var missing []string
	for id := range local {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	return missing
}

// Validate reports why a snapshot entry cannot be stored, or nil
func Validate(fields inventory.Fields, requiredFields []string) error {
	if problems := shapeProblems(fields, requiredFields); len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// shapeProblems lists missing or mistyped required fields
func shapeProblems(fields inventory.Fields, requiredFields []string) []string {
	var problems []string

	price, ok := fields[inventory.FieldPrice]
	switch {
	case !ok:
		problems = append(problems, "missing required field price")
	case kindOf(price) != kindNumber:
		problems = append(problems, fmt.Sprintf("price must be a number, got %s", kindOf(price)))
	}

	avail, ok := fields[inventory.FieldAvailability]
	switch {
	case !ok:
		problems = append(problems, "missing required field availability")
	case kindOf(avail) != kindNumber && kindOf(avail) != kindBool:
		problems = append(problems, fmt.Sprintf("availability must be a number or bool, got %s", kindOf(avail)))
	}

	for _, name := range requiredFields {
		if name == inventory.FieldPrice || name == inventory.FieldAvailability {
			continue
		}
		if v, ok := fields[name]; !ok || v == nil {
			problems = append(problems, "missing required field "+name)
		}
	}
	return problems
}

// typeChanges lists keys present on both sides whose JSON kind differs, sorted by key
func typeChanges(local, remote inventory.Fields) []string {
	keys := make([]string, 0, len(remote))
	for k := range remote {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var changes []string
	for _, k := range keys {
		lv, ok := local[k]
		if !ok {
			continue
		}
		rv := remote[k]
		// null on one side is an attribute being cleared, not a shape change
		if lv == nil || rv == nil {
			continue
		}
		if lk, rk := kindOf(lv), kindOf(rv); lk != rk {
			changes = append(changes, fmt.Sprintf("field %s changed type from %s to %s", k, lk, rk))
		}
	}
	return changes
}

func priceDiffers(local, remote inventory.Fields, tolerance float64) (float64, float64, bool) {
	lp, _ := toFloat(local[inventory.FieldPrice])
	rp, _ := toFloat(remote[inventory.FieldPrice])
	return lp, rp, math.Abs(lp-rp) > math.Max(tolerance, 0)
}

// attributesEqual compares everything except the price, which has already
// been found equal within tolerance
func attributesEqual(local, remote inventory.Fields, tolerance float64) bool {
	if tolerance <= 0 {
		return valuesEqual(map[string]any(local), map[string]any(remote))
	}
	if len(local) != len(remote) {
		return false
	}
	for k, lv := range local {
		if k == inventory.FieldPrice {
			continue
		}
		rv, ok := remote[k]
		if !ok || !valuesEqual(lv, rv) {
			return false
		}
	}
	_, hasPrice := remote[inventory.FieldPrice]
	return hasPrice
}
