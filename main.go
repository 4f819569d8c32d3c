package main

import "github.com/Resurrectum/media-structurer/cmd"

func main() {
	cmd.Execute()
}
