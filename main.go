/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/SargisDallakyan/blogPlatform/cmd"

func main() {
	cmd.Execute()
}
