// Package main is the entry point for the tooldock module host.
package main

func main() {
	Execute()
}
