package ssh

// Operations reported by ExecutionError.
const (
	OpPolicy  = "policy"
	OpAcquire = "acquire"
	OpConnect = "connect"
	OpRun     = "run"
)

// ExecutionError wraps any failure between the host check and the end of the
// remote command. Its message is the message of the underlying error.
type ExecutionError struct {
	Op  string
	Err error
}

func (e *ExecutionError) Error() string {
	return e.Err.Error()
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
