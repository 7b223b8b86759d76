package circuits

import "github.com/consensys/gnark/frontend"

// InputRootCircuit attests the path of the spent account under Root.
type InputRootCircuit struct {
	Root       frontend.Variable `gnark:",public"`
	Commitment frontend.Variable `gnark:",public"`
	PathIndex  frontend.Variable `gnark:",public"`

	PathElements [TreeLevels]frontend.Variable
}

func (c *InputRootCircuit) Define(api frontend.API) error {
	api.ToBinary(c.PathIndex, TreeLevels)
	api.ToBinary(c.Root)
	api.ToBinary(c.Commitment)
	for i := range c.PathElements {
		api.ToBinary(c.PathElements[i])
	}
	return nil
}

// OutputRootCircuit attests the insertion of Commitment at PathIndex, moving OldRoot to NewRoot.
type OutputRootCircuit struct {
	OldRoot    frontend.Variable `gnark:",public"`
	NewRoot    frontend.Variable `gnark:",public"`
	Commitment frontend.Variable `gnark:",public"`
	PathIndex  frontend.Variable `gnark:",public"`

	PathElements [TreeLevels]frontend.Variable
}

func (c *OutputRootCircuit) Define(api frontend.API) error {
	api.AssertIsDifferent(c.OldRoot, c.NewRoot)
	api.ToBinary(c.PathIndex, TreeLevels)
	api.ToBinary(c.Commitment)
	for i := range c.PathElements {
		api.ToBinary(c.PathElements[i])
	}
	return nil
}
