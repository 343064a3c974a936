// Package scenario loads scenario documents and normalizes them into an
// executable contract: an invocation, the files to stage, and the files
// expected after the tool runs.
//
// # Document Format
//
// A scenario is one YAML document. Two invocation styles are supported and
// selected by the keys present.
//
// Template style declares a command line containing the tool's bare name.
// Every other top-level key is a file to stage, and the assert block lists
// the files expected afterwards:
//
//	cmd: findany -i an words > output
//	words:
//	  - apple
//	  - banana
//	assert:
//	  output: banana
//
// Structured style declares stdin, stdout, substrings and arguments with
// fixed file names:
//
//	input: [apple, banana]
//	substrings: an
//	args: [-i]
//	output: banana
//
// which runs as "./findany -i substrings < input > output". Setting
// "shell: true" runs the same command line through the platform shell.
//
// # Normalization
//
// File content may be absent, a scalar, or a list of scalars. Absent becomes
// empty content, a scalar is a one-line list, and a list is joined with "\n"
// in declared order without a trailing newline.
//
// # Names
//
// A scenario's name is its document path relative to the cases directory,
// extension stripped, with separators replaced by dots: help/basic.yaml is
// "help.basic".
package scenario
