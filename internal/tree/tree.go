// tree.go - Append-only Merkle tree of account commitments.
//
// Leaves are inserted in the order the pool emits them (their on-chain index). Nodes are
// combined with Poseidon2 and empty subtrees hash up from a fixed zero leaf.
//
// NOTE: Tree is not thread-safe; it is rebuilt per operation from the event log.

package tree

import (
	"errors"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"poofkit/internal/crypto"
)

// DefaultLevels is the depth of the pool's account tree.
const DefaultLevels = 20

var (
	ErrFull         = errors.New("tree: no room for another leaf")
	ErrIndexOutside = errors.New("tree: leaf index out of range")
)

// ZeroLeaf is keccak256("poof") reduced into the field.
var ZeroLeaf = new(big.Int).Mod(new(big.Int).SetBytes(ethcrypto.Keccak256([]byte("poof"))), crypto.FieldSize)

// Tree keeps every layer so paths can be produced for any leaf.
type Tree struct {
	levels int
	zeros  []*big.Int
	layers [][]*big.Int
	index  map[string]int
}

// Path is an authentication path from a leaf to the root.
type Path struct {
	Elements []*big.Int
	Index    uint64
}

// New builds a tree of the given depth holding leaves.
func New(levels int, leaves []*big.Int) (*Tree, error) {
	if levels <= 0 {
		levels = DefaultLevels
	}
	t := &Tree{
		levels: levels,
		zeros:  make([]*big.Int, levels+1),
		layers: make([][]*big.Int, levels+1),
		index:  make(map[string]int),
	}
	t.zeros[0] = ZeroLeaf
	for i := 1; i <= levels; i++ {
		z, err := crypto.Poseidon2(t.zeros[i-1], t.zeros[i-1])
		if err != nil {
			return nil, err
		}
		t.zeros[i] = z
	}
	if len(leaves) > t.Capacity() {
		return nil, ErrFull
	}
	t.layers[0] = make([]*big.Int, 0, len(leaves))
	for _, leaf := range leaves {
		t.index[leaf.String()] = len(t.layers[0])
		t.layers[0] = append(t.layers[0], new(big.Int).Set(leaf))
	}
	if err := t.rebuild(); err != nil {
		return nil, err
	}
	return t, nil
}

// Capacity is the maximum number of leaves.
func (t *Tree) Capacity() int { return 1 << t.levels }

// Levels is the depth of the tree.
func (t *Tree) Levels() int { return t.levels }

// Len is the number of inserted leaves, which is also the index of the next one.
func (t *Tree) Len() int { return len(t.layers[0]) }

// Root returns the current root.
func (t *Tree) Root() *big.Int {
	top := t.layers[t.levels]
	if len(top) == 0 {
		return new(big.Int).Set(t.zeros[t.levels])
	}
	return new(big.Int).Set(top[0])
}

// IndexOf reports the position of leaf, if present.
func (t *Tree) IndexOf(leaf *big.Int) (int, bool) {
	i, ok := t.index[leaf.String()]
	return i, ok
}

// Insert appends leaf and updates the nodes above it.
func (t *Tree) Insert(leaf *big.Int) error {
	if t.Len() >= t.Capacity() {
		return ErrFull
	}
	idx := t.Len()
	t.index[leaf.String()] = idx
	t.layers[0] = append(t.layers[0], new(big.Int).Set(leaf))
	for level := 1; level <= t.levels; level++ {
		idx >>= 1
		node, err := t.node(level, idx)
		if err != nil {
			return err
		}
		if idx < len(t.layers[level]) {
			t.layers[level][idx] = node
		} else {
			t.layers[level] = append(t.layers[level], node)
		}
	}
	return nil
}

// Path returns the authentication path of the leaf at index.
func (t *Tree) Path(index int) (Path, error) {
	if index < 0 || index >= t.Len() {
		return Path{}, fmt.Errorf("%w: %d", ErrIndexOutside, index)
	}
	p := Path{Elements: make([]*big.Int, t.levels), Index: uint64(index)}
	idx := index
	for level := 0; level < t.levels; level++ {
		p.Elements[level] = t.at(level, idx^1)
		idx >>= 1
	}
	return p, nil
}

// Root recomputes the root reached from leaf along p.
func (p Path) Root(leaf *big.Int) (*big.Int, error) {
	cur := new(big.Int).Set(leaf)
	for level, sibling := range p.Elements {
		var err error
		if (p.Index>>level)&1 == 0 {
			cur, err = crypto.Poseidon2(cur, sibling)
		} else {
			cur, err = crypto.Poseidon2(sibling, cur)
		}
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

func (t *Tree) rebuild() error {
	for level := 1; level <= t.levels; level++ {
		n := (len(t.layers[level-1]) + 1) / 2
		t.layers[level] = make([]*big.Int, n)
		for i := 0; i < n; i++ {
			node, err := t.node(level, i)
			if err != nil {
				return err
			}
			t.layers[level][i] = node
		}
	}
	return nil
}

func (t *Tree) node(level, i int) (*big.Int, error) {
	return crypto.Poseidon2(t.at(level-1, 2*i), t.at(level-1, 2*i+1))
}

func (t *Tree) at(level, i int) *big.Int {
	if i < len(t.layers[level]) {
		return t.layers[level][i]
	}
	return t.zeros[level]
}
