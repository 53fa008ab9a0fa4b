package hwval

import (
	"github.com/ethereum-optimism/infra/op-hwval/testcase"
	"github.com/ethereum-optimism/infra/op-hwval/testcase/uefiversion"
)

// DefaultCatalog returns a catalog with every built-in test case kind registered
func DefaultCatalog() *testcase.Catalog {
	c := testcase.NewCatalog()
	mustRegister(c, uefiversion.Kind, uefiversion.New)
	return c
}

func mustRegister(c *testcase.Catalog, kind string, f testcase.Factory) {
	if err := c.Register(kind, f); err != nil {
		panic(err)
	}
}
