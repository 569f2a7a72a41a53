// Package main is the entrypoint for the valguard validation host.
package main

func main() {
	execute()
}
