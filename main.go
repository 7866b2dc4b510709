/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/bookline/ballast/cmd"

func main() {
	cmd.Execute()
}
