// Command loomctl is an admin/maintenance CLI for a loom database: stats,
// orphan cleanup, call inspection, registered-op listing, configuration
// dump, and JSONPath queries over a call's slot rows. It is not a wrapper for invoking memoized
// user ops — that surface belongs to the embedding application, which
// registers its own Op implementations against engine.Storage directly.
package main

func main() {
	Execute()
}
