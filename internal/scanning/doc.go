// Package scanning runs nmap for the operator and reports its progress.
//
// A Session owns at most one running scan. Starting a scan validates the
// form against the option catalog, builds the argument vector (including the
// sudo prefix for privileged scans on linux) and launches the process in its
// own goroutine. While nmap runs, every stderr line is forwarded to the Sink
// as it arrives and stdout is collected in full as the XML document.
//
// # Events
//
// The Sink receives, in order:
//   - Started with the scan's id, target, argument vector and any privilege warning
//   - Output for the "Executing command" line, each stderr line, error text and
//     the "--- Scan Complete ---" marker
//   - Completed with the collected XML, the rendered post-scan summary and the
//     final status (completed, stopped or failed)
//
// Completion always happens, including after Stop and after launch failures.
// When the form asked for it, the completion alarm is started shortly after.
//
// # Processes
//
// Processes are started through the Runner interface. ExecRunner uses os/exec;
// tests substitute the gomock implementation in the mocks subpackage.
package scanning
