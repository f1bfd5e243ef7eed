package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
)

// Classify maps an arbitrary error onto the taxonomy using message and type inspection.
// Structured errors already in the chain are returned as is, with missing context filled in.
func Classify(err error, ctx Context) *StructuredError {
	if err == nil {
		return nil
	}

	var se *StructuredError
	if errors.As(err, &se) {
		fillContext(se, ctx)
		return se
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	var code Code
	switch {
	case strings.Contains(lower, "unauthorized") || strings.Contains(lower, "authentication"):
		code = CodeAPIAuth
	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "429"):
		code = CodeAPIRateLimit
	case strings.Contains(lower, "timeout") || isTimeout(err):
		code = CodeAPITimeout
	case strings.Contains(lower, "connection") || isConnection(err):
		code = CodeNetwork
	case strings.Contains(lower, "mongo") || strings.Contains(lower, "database") || strings.Contains(lower, "persistence"):
		code = CodeDBOperation
	default:
		out := New(CodeUnknown, fmt.Sprintf("%s: %s", typeName(err), msg), ctx)
		out.cause = err
		return out
	}

	out := New(code, msg, ctx)
	out.cause = err
	return out
}

func fillContext(se *StructuredError, ctx Context) {
	if se.Provider == "" {
		se.Provider = ctx.Provider
	}
	if se.NodeID == "" {
		se.NodeID = ctx.NodeID
	}
	if se.Username == "" {
		se.Username = ctx.Username
	}
	for k, v := range ctx.Metadata {
		if _, exists := se.Metadata[k]; !exists {
			se.Metadata[k] = v
		}
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isConnection(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED)
}

// typeName reports the dynamic type of the innermost error in the chain.
func typeName(err error) string {
	root := eris.Cause(err)
	if root == nil {
		root = err
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", root), "*")
}
