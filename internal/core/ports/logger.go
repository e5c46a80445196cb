package ports

// Logger defines the interface for logging.
//
//go:generate go run go.uber.org/mock/mockgen -source=logger.go -destination=mocks/mock_logger.go -package=mocks
type Logger interface {
	// Info reports a completed mutation or a cascade summary.
	Info(msg string)
	// Warn reports something that was skipped or rejected while the operation still succeeded,
	// such as a missing dependent during a cascade.
	Warn(msg string)
	// Error reports a failed operation together with its wrapped cause chain.
	Error(err error)
}
