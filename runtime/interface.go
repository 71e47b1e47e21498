package runtime

import (
	"github.com/mensylisir/xmrecipe/buildid"
	"github.com/mensylisir/xmrecipe/httpcache"
	"github.com/mensylisir/xmrecipe/photostore"
	"github.com/mensylisir/xmrecipe/sink"
	"github.com/mensylisir/xmrecipe/staging"
)

// Runtime is the set of collaborators shared by every chain of a run.
// Everything it returns is safe for concurrent use.
type Runtime interface {
	HTTPClient() httpcache.Client
	Sink() sink.Sink

	// Photos returns nil when image storage is disabled.
	Photos() photostore.Store

	// Staging returns nil when no staging directory is configured.
	Staging() *staging.Store

	BuildID() buildid.ID
	WorkDir() string
	Verbose() bool

	// Close releases collaborators that hold connections.
	Close() error
}
