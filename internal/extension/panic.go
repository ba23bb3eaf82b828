package extension

import "fmt"

func newPanicError(r interface{}) error {
	return fmt.Errorf("hook handler panicked: %v", r)
}
