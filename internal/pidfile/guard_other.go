//go:build !unix

package pidfile

// KeepAcrossExec is a no-op where exec is unsupported.
func (g *Guard) KeepAcrossExec() error {
	return nil
}
