// A setup and verification tool for the StructCoder research environment.
//
// The tool bootstraps the project's Python virtual environment, installs the
// requirements manifest, applies the ordered reinstall sequence that works
// around the numpy/torch binary-wheel mismatch, optionally rebuilds the
// tree-sitter parser library for the local architecture, and verifies the
// whole installation. A Markdown status report is written after each run.
//
// See the README.md for usage info and customization instructions.
package setup
