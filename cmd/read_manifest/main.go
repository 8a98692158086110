// Command read_manifest writes an APK's pretty, resolved AndroidManifest.xml
// to a file.
package main

import (
	"fmt"
	"os"

	"github.com/binres/apkres"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "%s APKFile OutFile\n", os.Args[0])
		os.Exit(1)
	}

	h, err := apkres.Open(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer h.Close()

	text, _, err := h.ParseXML("AndroidManifest.xml", true, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := os.WriteFile(os.Args[2], []byte(text), 0644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
