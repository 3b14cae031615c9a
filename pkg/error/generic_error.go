package error

type GenericError interface {
	ErrCode() string
	StatusCode() int
	Error() string
}
