// Command issuetoken mints a signed access token for the document store.
//
//	issuetoken --user dr-silva --role manager --validity 8h
//
// The signing secret is read from --secret or DENTDOCS_SECRET_KEY.
package main

import (
	"os"

	"github.com/dmitrijs2005/dentdocs/internal/envx"
)

func main() {
	_ = envx.LoadDotEnv()

	if err := newCommand(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
