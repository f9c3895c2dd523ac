//go:build llama

package predictor

// Link against libllama from ./bin and find it at runtime next to the binary.
/*
#cgo LDFLAGS: -Wl,-rpath,'$ORIGIN' -L${SRCDIR}/../../bin -lllama
*/
import "C"
