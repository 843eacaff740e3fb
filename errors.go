package srcbatch

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// BatchError error with a code classifying where a run failed
type BatchError interface {
	Code() string
	Message() string
	Error() string
	StackTrace() errors.StackTrace
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

type batchErr struct {
	code  string
	msg   string
	cause error
	stack error
}

func (err *batchErr) Code() string {
	return err.code
}

func (err *batchErr) Message() string {
	return err.msg
}

func (err *batchErr) Error() string {
	if err.cause != nil {
		return fmt.Sprintf("batch err, code:%v, message:%v, cause:%v", err.code, err.msg, err.cause)
	}
	return fmt.Sprintf("batch err, code:%v, message:%v", err.code, err.msg)
}

func (err *batchErr) Cause() error {
	return err.cause
}

func (err *batchErr) Unwrap() error {
	return err.cause
}

func (err *batchErr) StackTrace() errors.StackTrace {
	if st, ok := err.stack.(stackTracer); ok {
		return st.StackTrace()
	}
	return nil
}

func (err *batchErr) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			io.WriteString(s, err.Error())
			fmt.Fprintf(s, "%+v", err.StackTrace())
			return
		}
		fallthrough
	case 's':
		io.WriteString(s, err.Error())
	case 'q':
		fmt.Fprintf(s, "%q", err.Error())
	}
}

// NewBatchError creates a BatchError. msg is a printf format for args; when the last arg is an
// error that is not consumed by a verb in msg, it becomes the cause of the BatchError.
// An existing BatchError passed as cause is returned unchanged.
func NewBatchError(code string, msg string, args ...interface{}) BatchError {
	var cause error
	if n := len(args); n > 0 {
		if e, ok := args[n-1].(error); ok {
			if be, ok := e.(BatchError); ok && countVerbs(msg) < n {
				return be
			}
			cause = e
			if countVerbs(msg) < n {
				args = args[:n-1]
			}
		}
	}
	be := &batchErr{code: code, msg: fmt.Sprintf(msg, args...), cause: cause}
	if cause != nil {
		be.stack = errors.WithStack(cause)
	} else {
		be.stack = errors.New(be.msg)
	}
	return be
}

func countVerbs(format string) int {
	return strings.Count(format, "%") - 2*strings.Count(format, "%%")
}

// IsCode reports whether err is a BatchError with the given code
func IsCode(err error, code string) bool {
	var be BatchError
	if errors.As(err, &be) {
		return be.Code() == code
	}
	return false
}

const (
	ErrCodeInvalidArgument  = "invalid_argument"
	ErrCodeMissingCatalog   = "missing_catalog"
	ErrCodeUnresolvedBin    = "unresolved_bin"
	ErrCodeEntityProcessing = "entity_processing"
	ErrCodeArtifactInit     = "artifact_init"
	ErrCodeDuplicateJob     = "duplicate_job"
	ErrCodeStop             = "stop"
	ErrCodeDbFail           = "db_fail"
	ErrCodeGeneral          = "general"
)
