// Package cleaner normalizes notebook metadata and strips execution
// results before notebooks are committed.
package cleaner

import (
	"fmt"
	"maps"
	"reflect"
	"slices"

	"github.com/phobologic/nbdoc/internal/notebook"
)

// DefaultPreserved are the metadata keys kept without asking.
var DefaultPreserved = []string{"tags", "nbsphinx"}

// Action is what happened to a metadata item.
type Action int

const (
	// Reset means a common key was overwritten with the common value.
	Reset Action = iota
	// Preserved means the key is on the preserved list.
	Preserved
	// Kept means the decision function kept the key.
	Kept
	// Removed means the key was dropped.
	Removed
)

func (a Action) String() string {
	switch a {
	case Reset:
		return "reset"
	case Preserved:
		return "preserved"
	case Kept:
		return "kept"
	default:
		return "removed"
	}
}

// Change records one metadata decision.
type Change struct {
	// Where is "notebook" or "cell N" (1-based).
	Where  string
	Key    string
	Value  any
	Action Action
}

// DecideFunc reports whether an unlisted metadata item should be kept.
type DecideFunc func(key string, value any, where string) bool

// Options controls Clean.
type Options struct {
	// Preserved keys are always kept. Nil means DefaultPreserved.
	Preserved []string
	// Decide is consulted for keys that are neither common nor preserved.
	// Nil drops them.
	Decide DecideFunc
}

// Clean resets nb's top-level metadata to the common kernel description,
// filters every cell's metadata and clears code cell outputs. It returns
// the decisions it made, in order.
func Clean(nb *notebook.Notebook, opts Options) []Change {
	preserved := opts.Preserved
	if preserved == nil {
		preserved = DefaultPreserved
	}
	keep := make(map[string]struct{}, len(preserved))
	for _, k := range preserved {
		keep[k] = struct{}{}
	}

	var changes []Change
	common := notebook.CommonMetadata()
	meta := notebook.CommonMetadata()
	for _, k := range slices.Sorted(maps.Keys(nb.Metadata)) {
		v := nb.Metadata[k]
		if cv, ok := common[k]; ok {
			if !reflect.DeepEqual(v, cv) {
				changes = append(changes, Change{Where: "notebook", Key: k, Value: v, Action: Reset})
			}
			continue
		}
		action := decide(k, v, "notebook", keep, opts.Decide)
		if action != Removed {
			meta[k] = v
		}
		changes = append(changes, Change{Where: "notebook", Key: k, Value: v, Action: action})
	}
	nb.Metadata = meta

	for i, c := range nb.Cells {
		c.ClearOutputs()
		where := fmt.Sprintf("cell %d", i+1)
		cm := map[string]any{}
		for _, k := range slices.Sorted(maps.Keys(c.Metadata)) {
			v := c.Metadata[k]
			action := decide(k, v, where, keep, opts.Decide)
			if action != Removed {
				cm[k] = v
			}
			changes = append(changes, Change{Where: where, Key: k, Value: v, Action: action})
		}
		c.Metadata = cm
	}
	return changes
}

func decide(key string, value any, where string, keep map[string]struct{}, fn DecideFunc) Action {
	if _, ok := keep[key]; ok {
		return Preserved
	}
	if fn != nil && fn(key, value, where) {
		return Kept
	}
	return Removed
}
