package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different outcomes
const (
	ExitSuccess   = 0 // Optimal mixture found
	ExitNoOptimal = 1 // Solver finished without an optimal mixture
	ExitError     = 2 // Configuration or runtime error
)

// NoOptimalError indicates that the solve ran, but no optimal mixture exists
// for the formulation.
type NoOptimalError struct {
	Message string
}

func (e *NoOptimalError) Error() string {
	return e.Message
}

func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var noOptimalErr *NoOptimalError
	if errors.As(err, &noOptimalErr) {
		return ExitNoOptimal
	}
	return ExitError
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
