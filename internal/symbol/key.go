package symbol

import "fmt"

// Namespaces for persisted per-function metadata.
const (
	NamespaceRegVar = "regvar"
	NamespaceType   = "type"
)

// Key addresses one persisted record. Its String form is the on-store
// encoding and must not change, or previously saved records become unreachable.
type Key struct {
	Namespace string
	Function  uint64
	Variable  string
}

func (k Key) String() string {
	return fmt.Sprintf("$ %#x.%s.%s", k.Function, k.Namespace, k.Variable)
}

func openKey(store Store, k Key) (Node, error) {
	if store == nil {
		return nil, ErrNoStore
	}
	n, err := store.Open(k.String())
	if err != nil {
		return nil, fmt.Errorf("open node %q: %w", k, err)
	}
	return n, nil
}
