package claims

import "errors"

var (
	ErrBadRequest   = errors.New("bad request")
	ErrNotFound     = errors.New("not found")
	ErrVerifyFailed = errors.New("claims verification failed")
)

func IsErrBadRequest(err error) bool {
	return errors.Is(err, ErrBadRequest)
}

func IsErrNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsErrVerifyFailed(err error) bool {
	return errors.Is(err, ErrVerifyFailed)
}
