//go:build llama

package manager

// Links against libllama from ./bin and looks for it next to the binary at run time.

/*
#cgo LDFLAGS: -Wl,-rpath,'$ORIGIN' -L${SRCDIR}/../../bin -lllama
*/
import "C"
