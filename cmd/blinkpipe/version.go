package main

import (
	"fmt"
	"io"
	"runtime"

	"github.com/e1732a364fed/blinkpipe/presetLayer"
)

const (
	desc      = "A tcp relay that disguises its traffic with a chain of presets\n"
	delimiter = "===============================\n"
)

var Version string = "[version_undefined]" //can be set with -ldflags "-X 'main.Version=v1.x.x'"

func versionStr() string {
	return fmt.Sprintf("blinkpipe %s, %s %s %s, with presets: %v \n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH, presetLayer.AllNames())
}

func printVersion_simple(w io.StringWriter) {
	w.WriteString(versionStr())
}

func printVersion(w io.StringWriter) {
	w.WriteString(delimiter)
	printVersion_simple(w)
	w.WriteString(delimiter)
	w.WriteString(desc)
	w.WriteString(delimiter)
}
