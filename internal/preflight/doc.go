// Package preflight provides readiness checks for the binaries and
// filesystem paths aaxsplit depends on.
//
// These checks run in two contexts:
//   - The convert command calls RunAll before touching any input. If a check
//     fails, nothing is converted.
//   - The "aaxsplit status" command uses the individual check functions
//     (CheckSystemDeps, CheckDirectoryAccess) to display readiness.
package preflight
