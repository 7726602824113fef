// Package main is the entry point for formbase.
package main

func main() {
	Execute()
}
