package main

import "github.com/jar-ry/Snowflake-Data-Science/cmd"

func main() {
	cmd.Execute()
}
