// Package cli parses command-line arguments for the pibt runner, validates
// user input, and carries process exit codes back to main.
package cli
