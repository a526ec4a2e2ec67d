// Command cqlforge manages the example messaging schema and serves as the
// embedding reference: an application builds the same binary from its own
// entity declarations.
package main

import (
	"github.com/cqlforge/cqlforge/cli"
	"github.com/cqlforge/cqlforge/examples/messaging/schema"
)

var (
	// Version information - will be set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	cli.Main(cli.App{
		Name:     "cqlforge",
		Version:  Version,
		Commit:   GitCommit,
		Date:     BuildDate,
		Entities: schema.Entities,
	})
}
