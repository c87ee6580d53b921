package tagquery

import "fmt"

// CompileError names the offending node in a predicate that the compiler
// refused to lower, per the AST's "total or structured error" contract.
// Backends map CompileError to their InvalidStructure error kind.
type CompileError struct {
	Reason string
	Name   []byte
}

func (e *CompileError) Error() string {
	if len(e.Name) == 0 {
		return fmt.Sprintf("tagquery: %s", e.Reason)
	}
	return fmt.Sprintf("tagquery: %s (tag %q)", e.Reason, e.Name)
}

func errStringOpOnEncrypted(name []byte, op Op) error {
	return &CompileError{Reason: fmt.Sprintf("operator %s is only valid on plain-text tags", op), Name: name}
}

func errEmptyGroup(kind string) error {
	return &CompileError{Reason: fmt.Sprintf("%s group must have at least one child", kind)}
}

func errEmptyIn(name []byte) error {
	return &CompileError{Reason: "IN requires at least one value", Name: name}
}
