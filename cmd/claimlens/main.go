package main

import (
	"fmt"
	"os"

	"github.com/openclaims/claimlens/internal/cli"

	// Register the s3:// scheme for the artifact store client.
	_ "github.com/viant/afsc/s3"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
