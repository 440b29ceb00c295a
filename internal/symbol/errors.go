package symbol

import "errors"

var (
	// ErrNotAFunction is returned by function-only operations on a symbol
	// whose address is not exactly a function entry.
	ErrNotAFunction = errors.New("symbol is not a function")

	// ErrNoStore is returned by metadata operations when the locator was
	// built without a node store.
	ErrNoStore = errors.New("no node store configured")

	// ErrNoTypeParser is returned by FindSymbolType when the locator was
	// built without a type parser.
	ErrNoTypeParser = errors.New("no type parser configured")
)
