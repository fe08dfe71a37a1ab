/*
main.go - surveyctl, the offline companion of the compilation server

PURPOSE:
  Runs the compiler and the condition evaluator on files, without a server.
  Used to debug a survey schema or replay stored answers.

COMMANDS:
  surveyctl compile FILE...                   compile answer files concurrently
  surveyctl eval EXPR --answers FILE          evaluate one visibleWhen expression
  surveyctl visible --schema F --answers F    answers kept after visibility filtering
  surveyctl mappings                          list the mapping registry

FILES:
  Answer files are JSON, either a bare answers object or
  {"answers": {...}, "questions": [...]}. Schema files are JSON or YAML,
  chosen by extension.

EXIT STATUS:
  Non-zero when a command fails or any compiled file has build errors and
  --partial is not set.
*/
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
