// Package commands defines the forwarder CLI.
//
// Commands
//
//   - init      Create the local identity (or rotate it with --force)
//   - address   Print the key peers use to reach this forwarder
//   - run       Connect to the hub and relay messages until interrupted
//
// # Implementation
//
// The root command loads the JSON config (if --config is given), applies the
// --datadir override and builds the logger before any subcommand runs. The
// passphrase comes from -p or FORWARDER_PASSPHRASE.
package commands
