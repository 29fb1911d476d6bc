package control

import "github.com/davecgh/go-spew/spew"

var dumpConfig = func() *spew.ConfigState {
	c := spew.NewDefaultConfig()
	c.DisableCapacities = true
	c.DisablePointerAddresses = true
	c.SortKeys = true
	c.MaxDepth = 6
	return c
}()

// Dump renders v for the /debug/asset endpoint.
func Dump(v interface{}) string {
	return dumpConfig.Sdump(v)
}
