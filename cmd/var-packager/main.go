package main

import "github.com/oshokin/var-packager/cmd/var-packager/cmd"

func main() {
	cmd.Execute()
}
