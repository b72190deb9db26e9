// Command enumvalidator runs the analyzer standalone or as a vet tool:
//
//	go build -o bin/enumvalidator ./tools/linters/enumvalidator/cmd
//	go vet -vettool=bin/enumvalidator ./...
package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"github.com/Samoxive/modbot/tools/linters/enumvalidator"
)

func main() {
	singlechecker.Main(enumvalidator.Analyzer)
}
