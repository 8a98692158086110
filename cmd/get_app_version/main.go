// Command get_app_version prints an APK's versionCode and versionName.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/binres/apkres"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "%s APKFile\n", os.Args[0])
		os.Exit(1)
	}

	h, err := apkres.Open(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer h.Close()

	_, elements, err := h.ParseXML("AndroidManifest.xml", false, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var versionCode, versionName string
	for _, el := range elements {
		if !el.IsRoot {
			continue
		}
		for _, a := range el.Attributes {
			switch a.Name {
			case "versionCode":
				versionCode = a.Value
			case "versionName":
				versionName = a.Value
			}
		}
	}

	out, err := json.Marshal([2]string{versionCode, versionName})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
