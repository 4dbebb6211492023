package propagation

import (
	"bytes"
	"sort"

	"github.com/tesserachain/tessera/core"
)

// Tree plans stake-weighted fanout layers for broadcasting a block or vote
// batch across the validator set. High-stake validators sit close to the
// root so the bulk of the stake hears about new data early.
type Tree struct {
	fanout int
}

// NewTree creates a propagation tree planner with the given fanout.
func NewTree(fanout int) *Tree {
	if fanout <= 0 {
		panic("Fanout must be positive")
	}
	return &Tree{fanout: fanout}
}

// Layers arranges the validators into broadcast layers. The leader forms the
// root layer on its own; the remaining validators are sorted by descending
// stake and sliced into layers of fanout size. Within a layer validators are
// ordered by address, so every replica derives the identical plan without
// coordination.
func (t *Tree) Layers(validators []core.Validator, leader core.Validator) [][]core.Validator {
	rest := make([]core.Validator, 0, len(validators))
	for _, v := range validators {
		if v.Address() == leader.Address() {
			continue
		}
		rest = append(rest, v)
	}
	sort.SliceStable(rest, func(i, j int) bool {
		if rest[i].Stake() != rest[j].Stake() {
			return rest[i].Stake() > rest[j].Stake()
		}
		return bytes.Compare(rest[i].Address().Bytes(), rest[j].Address().Bytes()) < 0
	})

	layers := [][]core.Validator{{leader}}
	for start := 0; start < len(rest); start += t.fanout {
		end := start + t.fanout
		if end > len(rest) {
			end = len(rest)
		}
		layer := make([]core.Validator, end-start)
		copy(layer, rest[start:end])
		sort.Sort(core.ByAddress(layer))
		layers = append(layers, layer)
	}
	return layers
}

// PropagationTime estimates the worst-case relative time for data to reach
// every layer, weighing each layer by its depth and width.
func (t *Tree) PropagationTime(layers [][]core.Validator) uint64 {
	total := uint64(0)
	for i, layer := range layers {
		total += uint64(i+1) * uint64(len(layer))
	}
	return total
}
