/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/tablehop/apiserver/cmd"

func main() {
	cmd.Execute()
}
