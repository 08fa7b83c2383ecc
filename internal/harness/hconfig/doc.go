/*
Package hconfig defines the YAML-unmarshalable configuration for this
repository's two binaries: cmd/dbtestharness (the controller process) and
cmd/dbtester (the tester process).

# Harness configuration

HarnessConfig configures the controller: the fleet it recruits, how long it
waits for a tester to reply to a phase call, and the run-wide settings that
surround every test spec.

	testerEndpoints:
	  - 127.0.0.1:9001
	  - 127.0.0.1:9002
	minTestersExpected: 2
	replyWindow: 60s
	startingConfiguration: ""
	enableDD: false

# Tester configuration

TesterConfig configures a tester process: the address it serves
harnessrpc.Server on.

	listenAddress: 0.0.0.0:9001

# Validation

Both types have a Validate() method checked before the binary does anything
else, following the same pattern as this repository's spec package: fail
fast with a descriptive error rather than a nil pointer deep in a run.
*/
package hconfig
