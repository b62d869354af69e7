// Package main provides the entry point for the webspectre CLI.
//
// webspectre crawls a website breadth-first from a seed URL, checks every
// same-site link it finds and reports which ones are reachable and which
// are broken.
//
// Usage:
//
//	webspectre scan <url>
//	webspectre scan --fast-scan -d 3 <url> <url>
//	webspectre history <target>
//	webspectre compare <target>
//
// See --help for all available options.
package main

func main() {
	Execute()
}
