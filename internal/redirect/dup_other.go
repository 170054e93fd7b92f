//go:build !unix

package redirect

func dupOnto(int, int) error {
	return ErrUnsupported
}
