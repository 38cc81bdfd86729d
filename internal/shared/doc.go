// Package shared holds helpers used across wexport packages that do not
// belong to a single layer.
//
// # Test Utilities
//
// The testutil subpackage provides:
//
//	- A buffered slog handler for asserting on structured log output
//	- Order and catalog fixtures covering simple products, variable
//	  products with variations, and orders without line items
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    orders := testutil.SampleOrders()
//	    ...
//	    testutil.AssertLogContains(t, logs, slog.LevelInfo, "export completed")
//	}
package shared
