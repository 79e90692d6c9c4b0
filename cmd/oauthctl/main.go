package main

import "go.pilab.hu/oauthkit/cmd/oauthctl/cmd"

func main() {
	cmd.Execute()
}
