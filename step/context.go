package step

import (
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/xmrecipe/runtime"
)

// Context is the per-chain state handed to every step. One chain owns it;
// it is never shared between concurrent chains.
type Context struct {
	// URL identifies the input.
	URL string
	// StagedPath, when set, is a local HTML file fetch_html reads instead
	// of going to the network.
	StagedPath string
	// ForceFetch skips staging lookups.
	ForceFetch bool

	Runtime runtime.Runtime
	Outputs OutputStore
	Logger  *logrus.Entry
}

// NewContext builds a context with an in-memory output store.
func NewContext(url string, rt runtime.Runtime) *Context {
	return &Context{
		URL:     url,
		Runtime: rt,
		Outputs: NewMemoryOutputStore(),
	}
}

// Output returns the stored output of an earlier step as T.
func Output[T any](sc *Context, stepName string) (T, bool) {
	return OutputAs[T](sc.Outputs, stepName)
}
