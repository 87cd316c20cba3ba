// Package readwriter groups the output streams commands write to.
package readwriter

import (
	"io"
	"os"
)

// ReadWriter holds the streams of a command.
type ReadWriter struct {
	Out    io.Writer
	ErrOut io.Writer
}

// Std returns the process streams.
func Std() *ReadWriter {
	return &ReadWriter{Out: os.Stdout, ErrOut: os.Stderr}
}
