//go:build !unix
// +build !unix

package backend

func newPoll() (Backend, error) {
	return nil, ErrUnavailable
}
