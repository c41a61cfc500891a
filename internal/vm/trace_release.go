//go:build !loxtrace

package vm

// traceInstruction is a no-op unless the loxtrace build tag is set, so the
// release binary pays nothing for the execution trace (spec.md §6's
// "gated by a build-time debug flag").
func traceInstruction(vm *VM, f *frame) {}
