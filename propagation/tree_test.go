// +build unit

package propagation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tesserachain/tessera/common"
	"github.com/tesserachain/tessera/core"
)

func TestTreeLayers(t *testing.T) {
	assert := assert.New(t)

	v1 := core.NewValidator(common.HexToAddress("01"), 1000, true)
	v2 := core.NewValidator(common.HexToAddress("02"), 2000, true)
	v3 := core.NewValidator(common.HexToAddress("03"), 1500, true)
	v4 := core.NewValidator(common.HexToAddress("04"), 500, true)

	tree := NewTree(2)
	layers := tree.Layers([]core.Validator{v1, v2, v3, v4}, v1)

	assert.Equal(3, len(layers))

	// The leader forms the root layer regardless of its stake.
	assert.Equal([]core.Validator{v1}, layers[0])

	// The remaining validators fill layers by descending stake, ordered by
	// address within a layer.
	assert.Equal([]core.Validator{v2, v3}, layers[1])
	assert.Equal([]core.Validator{v4}, layers[2])
}

func TestTreeLayersDeterministic(t *testing.T) {
	assert := assert.New(t)

	v1 := core.NewValidator(common.HexToAddress("01"), 300, true)
	v2 := core.NewValidator(common.HexToAddress("02"), 300, true)
	v3 := core.NewValidator(common.HexToAddress("03"), 300, true)

	tree := NewTree(2)
	a := tree.Layers([]core.Validator{v3, v1, v2}, v2)
	b := tree.Layers([]core.Validator{v1, v2, v3}, v2)
	assert.Equal(a, b)

	// Equal stakes break ties by address.
	assert.Equal([]core.Validator{v2}, a[0])
	assert.Equal([]core.Validator{v1, v3}, a[1])
}

func TestTreePropagationTime(t *testing.T) {
	assert := assert.New(t)

	v1 := core.NewValidator(common.HexToAddress("01"), 1000, true)
	v2 := core.NewValidator(common.HexToAddress("02"), 2000, true)
	v3 := core.NewValidator(common.HexToAddress("03"), 1500, true)
	v4 := core.NewValidator(common.HexToAddress("04"), 500, true)

	tree := NewTree(2)
	layers := tree.Layers([]core.Validator{v1, v2, v3, v4}, v1)

	// 1*1 + 2*2 + 3*1 = 8
	assert.Equal(uint64(8), tree.PropagationTime(layers))
}
