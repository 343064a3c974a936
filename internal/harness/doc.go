// Package harness stages, runs, and verifies conformance scenarios against
// a built command-line tool.
//
// Each scenario runs in its own working directory:
//
//  1. the staging directory is removed and replaced by a fresh copy of the
//     build output; outside Windows the tool's executable bits are set again
//  2. the scenario's input files are written next to the tool
//  3. the invocation is built and run as a child process inside the staging
//     directory, bounded by the configured timeout
//  4. every expected output file is read back and compared for exact
//     equality
//
// Failures never abort other scenarios. They are recorded on the Result as
// typed errors (StagingError, ExecutionHang, ExecutionError,
// ContentMismatch, MissingOutputFile, plus the scenario package's
// SchemaError and AssertionDeclarationError) and classified with KindOf.
//
// # Invocation
//
// The tool is referenced as "./<tool>" outside Windows and "<tool>.exe" on
// Windows. Template commands have every standalone occurrence of the tool
// name replaced by that reference and run through the platform shell
// (sh -c or cmd.exe /c). Structured scenarios are run directly from an
// argument vector with stdin bound to the staged input file and stdout
// written to the staged output file, unless the scenario sets shell: true.
//
// # Concurrency
//
// With Config.Jobs greater than one, RunAll runs scenarios concurrently and
// each scenario is staged under StagingDir/<name>. Otherwise every scenario
// reuses StagingDir, one at a time.
package harness
